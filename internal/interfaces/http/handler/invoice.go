package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	escrowapp "github.com/factorline/backend/internal/application/escrow"
	"github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/interfaces/http/dto"
)

// InvoiceHandler handles invoice escrow API endpoints
type InvoiceHandler struct {
	BaseHandler
	service *escrowapp.Service
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(service *escrowapp.Service) *InvoiceHandler {
	return &InvoiceHandler{
		service: service,
	}
}

// BrowseInvoicesRequest filters the invoice listing
type BrowseInvoicesRequest struct {
	dto.ListRequest
	Status string `form:"status" binding:"omitempty,oneof=pending listed sold repaid cancelled defaulted"`
}

// Initialize creates a new invoice owned by the authenticated business
func (h *InvoiceHandler) Initialize(c *gin.Context) {
	signer, err := getSigner(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req escrowapp.InitializeInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	inv, err := h.service.Initialize(c.Request.Context(), signer, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, NewInvoiceResponse(inv))
}

// Browse lists invoices by status with pagination. Defaults to the listed
// marketplace view.
func (h *InvoiceHandler) Browse(c *gin.Context) {
	req := BrowseInvoicesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.Normalize()

	statusName := req.Status
	if statusName == "" {
		statusName = escrow.StatusListed.String()
	}
	status, err := escrow.ParseStatus(statusName)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	invoices, total, err := h.service.Browse(c.Request.Context(), status, req.PageSize, req.Offset())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, NewInvoiceResponses(invoices), total, req.Page, req.PageSize)
}

// Get returns the invoice at the given address
func (h *InvoiceHandler) Get(c *gin.Context) {
	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}

	inv, err := h.service.Get(c.Request.Context(), addr)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, NewInvoiceResponse(inv))
}

// GetByBusiness returns the live invoice owned by a business identity
func (h *InvoiceHandler) GetByBusiness(c *gin.Context) {
	var req dto.AddressRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	business, err := valueobject.ParseIdentity(req.Address)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	inv, err := h.service.GetByBusiness(c.Request.Context(), business)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, NewInvoiceResponse(inv))
}

// Quote returns discount and yield pricing for a listed invoice
func (h *InvoiceHandler) Quote(c *gin.Context) {
	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), addr)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, NewQuoteResponse(quote))
}

// Record returns the stable binary record encoding of the invoice
func (h *InvoiceHandler) Record(c *gin.Context) {
	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}

	record, err := h.service.Record(c.Request.Context(), addr)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", record)
}

// List puts the invoice up for sale at the given price. Re-listing an
// already listed invoice re-prices it.
func (h *InvoiceHandler) List(c *gin.Context) {
	signer, err := getSigner(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}

	var req escrowapp.ListInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	inv, err := h.service.List(c.Request.Context(), signer, addr, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, NewInvoiceResponse(inv))
}

// Purchase buys a listed invoice, paying the sale price from the signer's
// account to the business account.
func (h *InvoiceHandler) Purchase(c *gin.Context) {
	signer, err := getSigner(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}

	var req escrowapp.PurchaseInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	inv, err := h.service.Purchase(c.Request.Context(), signer, addr, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, NewInvoiceResponse(inv))
}

// Cancel withdraws an unsold invoice and deletes its record
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	signer, err := getSigner(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), signer, addr); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Repay settles a sold invoice at face amount and closes its record
func (h *InvoiceHandler) Repay(c *gin.Context) {
	signer, err := getSigner(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}

	var req escrowapp.RepayInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	if err := h.service.Repay(c.Request.Context(), signer, addr, req); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ClaimDefault marks a sold invoice as defaulted once it is past due
func (h *InvoiceHandler) ClaimDefault(c *gin.Context) {
	signer, err := getSigner(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	addr, ok := h.bindAddress(c)
	if !ok {
		return
	}

	inv, err := h.service.ClaimDefault(c.Request.Context(), signer, addr)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, NewInvoiceResponse(inv))
}

// bindAddress parses the :address path parameter
func (h *InvoiceHandler) bindAddress(c *gin.Context) (valueobject.Address, bool) {
	var req dto.AddressRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.ValidationError(c, err)
		return valueobject.Address{}, false
	}

	addr, err := valueobject.ParseAddress(req.Address)
	if err != nil {
		h.HandleError(c, err)
		return valueobject.Address{}, false
	}
	return addr, true
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Initialize)
		invoices.GET("", h.Browse)
		invoices.GET("/:address", h.Get)
		invoices.GET("/:address/quote", h.Quote)
		invoices.GET("/:address/record", h.Record)
		invoices.POST("/:address/list", h.List)
		invoices.POST("/:address/purchase", h.Purchase)
		invoices.POST("/:address/cancel", h.Cancel)
		invoices.POST("/:address/repay", h.Repay)
		invoices.POST("/:address/claim-default", h.ClaimDefault)
	}

	businesses := rg.Group("/businesses")
	{
		businesses.GET("/:address/invoice", h.GetByBusiness)
	}
}
