package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/infrastructure/auth"
	"github.com/factorline/backend/internal/infrastructure/logger"
	"github.com/factorline/backend/internal/interfaces/http/dto"
)

// Context keys for JWT claims
const (
	JWTClaimsKey   = "jwt_claims"
	JWTSignerKey   = "jwt_signer"
	JWTAuthHeader  = "Authorization"
	JWTBearerToken = "Bearer"
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// SkipPaths are exact paths that skip authentication
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that skip authentication
	SkipPathPrefixes []string
	// OnError is called when authentication fails (optional)
	OnError func(c *gin.Context, err error)
}

// JWTAuthMiddleware returns a middleware that validates JWT tokens
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService: jwtService,
	})
}

// JWTAuthMiddlewareWithConfig returns a JWT middleware with custom configuration
func JWTAuthMiddlewareWithConfig(config JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		for _, skipPath := range config.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}

		for _, prefix := range config.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token, err := extractBearerToken(c)
		if err != nil {
			handleAuthError(c, config, err)
			return
		}

		claims, err := config.JWTService.ValidateToken(token)
		if err != nil {
			handleAuthError(c, config, err)
			return
		}

		signer, err := claims.SignerIdentity()
		if err != nil {
			handleAuthError(c, config, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTSignerKey, signer)

		// Enrich the request-scoped logger so downstream log lines carry
		// the signer identity.
		ctx, _ := logger.WithSignerID(c.Request.Context(), logger.FromContext(c.Request.Context()), signer.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// extractBearerToken extracts the token from the Authorization header
func extractBearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader(JWTAuthHeader)
	if authHeader == "" {
		return "", errors.New("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != JWTBearerToken {
		return "", errors.New("invalid authorization header format")
	}

	return parts[1], nil
}

// handleAuthError responds with the appropriate error for auth failures
func handleAuthError(c *gin.Context, config JWTMiddlewareConfig, err error) {
	if config.OnError != nil {
		config.OnError(c, err)
		return
	}

	code := dto.ErrCodeUnauthorized
	message := "Authentication required"

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrCodeTokenExpired
		message = "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingIdentity):
		code = dto.ErrCodeTokenInvalid
		message = "Token is invalid"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message))
}

// GetJWTClaims retrieves JWT claims from the gin context
func GetJWTClaims(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(JWTClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// GetSigner retrieves the authenticated signer identity from the gin context
func GetSigner(c *gin.Context) (valueobject.Identity, bool) {
	value, exists := c.Get(JWTSignerKey)
	if !exists {
		return valueobject.Identity{}, false
	}
	signer, ok := value.(valueobject.Identity)
	return signer, ok
}

// OptionalJWTAuthMiddleware validates a token when present but does not
// require one. Handlers can distinguish authenticated requests via GetSigner.
func OptionalJWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c)
		if err != nil {
			c.Next()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			c.Next()
			return
		}

		if signer, err := claims.SignerIdentity(); err == nil {
			c.Set(JWTClaimsKey, claims)
			c.Set(JWTSignerKey, signer)
		}

		c.Next()
	}
}
