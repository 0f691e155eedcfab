package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/infrastructure/config"
)

func testService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:          "test-secret-key-for-jwt-tokens-32ch",
		TokenExpiration: expiration,
		Issuer:          "factorline-test",
	})
}

func testIdentity(t *testing.T) valueobject.Identity {
	t.Helper()
	id, err := valueobject.ParseIdentity(strings.Repeat("ab", 32))
	require.NoError(t, err)
	return id
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testService(time.Hour)
	identity := testIdentity(t)

	token, err := svc.GenerateToken(identity)
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, identity.String(), claims.Identity)
	assert.Equal(t, identity.String(), claims.Subject)
	assert.Equal(t, "factorline-test", claims.Issuer)

	parsed, err := claims.SignerIdentity()
	require.NoError(t, err)
	assert.Equal(t, identity, parsed)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := testService(-time.Minute)
	token, err := svc.GenerateToken(testIdentity(t))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, err := testService(time.Hour).GenerateToken(testIdentity(t))
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{
		Secret:          "a-completely-different-secret-key-32",
		TokenExpiration: time.Hour,
		Issuer:          "factorline-test",
	})

	_, err = other.ValidateToken(token.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := testService(time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
