package handler

import (
	"github.com/gin-gonic/gin"

	tokenapp "github.com/factorline/backend/internal/application/token"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/interfaces/http/dto"
)

// AccountHandler handles asset account API endpoints
type AccountHandler struct {
	BaseHandler
	service       *tokenapp.Service
	faucetEnabled bool
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service *tokenapp.Service, faucetEnabled bool) *AccountHandler {
	return &AccountHandler{
		service:       service,
		faucetEnabled: faucetEnabled,
	}
}

// Create opens an asset account for the signer in the requested mint
func (h *AccountHandler) Create(c *gin.Context) {
	signer, err := getSigner(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req tokenapp.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	acct, err := h.service.CreateAccount(c.Request.Context(), signer, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, NewAccountResponse(acct))
}

// Get returns the asset account at the given address
func (h *AccountHandler) Get(c *gin.Context) {
	var req dto.AddressRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	addr, err := valueobject.ParseAddress(req.Address)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	acct, err := h.service.GetAccount(c.Request.Context(), addr)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, NewAccountResponse(acct))
}

// List returns the signer's asset accounts
func (h *AccountHandler) List(c *gin.Context) {
	signer, err := getSigner(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	accounts, err := h.service.ListAccounts(c.Request.Context(), signer)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, NewAccountResponses(accounts))
}

// Mint credits a faucet deposit to the account. Only available when the
// development faucet is enabled.
func (h *AccountHandler) Mint(c *gin.Context) {
	if !h.faucetEnabled {
		h.Forbidden(c, "Faucet is disabled")
		return
	}

	var uri dto.AddressRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return
	}

	addr, err := valueobject.ParseAddress(uri.Address)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req tokenapp.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	acct, err := h.service.Mint(c.Request.Context(), addr, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, NewAccountResponse(acct))
}

// RegisterRoutes registers account routes
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.Create)
		accounts.GET("", h.List)
		accounts.GET("/:address", h.Get)
		accounts.POST("/:address/mint", h.Mint)
	}
}
