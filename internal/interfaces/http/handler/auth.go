package handler

import (
	"crypto/subtle"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/infrastructure/auth"
)

// AuthHandler issues signer tokens. The bootstrap endpoint exists for
// development and integration environments where no external identity
// provider signs requests.
type AuthHandler struct {
	BaseHandler
	jwtService      *auth.JWTService
	bootstrapSecret string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(jwtService *auth.JWTService, bootstrapSecret string) *AuthHandler {
	return &AuthHandler{
		jwtService:      jwtService,
		bootstrapSecret: bootstrapSecret,
	}
}

// IssueTokenRequest requests a signer token for an identity
type IssueTokenRequest struct {
	Identity string `json:"identity" binding:"required,identity"`
	Secret   string `json:"secret" binding:"required"`
}

// TokenResponse carries an issued bearer token
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IssueToken mints a signer token when the bootstrap secret matches
func (h *AuthHandler) IssueToken(c *gin.Context) {
	if h.bootstrapSecret == "" {
		h.Forbidden(c, "Token bootstrap is disabled")
		return
	}

	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.bootstrapSecret)) != 1 {
		h.Unauthorized(c, "Invalid bootstrap secret")
		return
	}

	identity, err := valueobject.ParseIdentity(req.Identity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	token, err := h.jwtService.GenerateToken(identity)
	if err != nil {
		h.InternalError(c, "Failed to issue token")
		return
	}

	h.Success(c, TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
	})
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/token", h.IssueToken)
	}
}
