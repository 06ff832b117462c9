package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecp-air/airquality-backend/internal/config"
)

func testManager() *JWTManager {
	return NewJWTManager(&config.JWTConfig{
		SecretKey:              "test-secret-key",
		ExpirationMinutes:      30,
		RefreshExpirationHours: 24,
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()

	token, err := m.GenerateAccessToken(42, 1)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, 1, claims.Role)
	assert.Equal(t, TokenAccess, claims.TokenType)
}

func TestRefreshTokenType(t *testing.T) {
	m := testManager()

	token, err := m.GenerateRefreshToken(7, 2)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, claims.TokenType)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := testManager().GenerateAccessToken(1, 1)
	require.NoError(t, err)

	other := NewJWTManager(&config.JWTConfig{
		SecretKey:              "different-key",
		ExpirationMinutes:      30,
		RefreshExpirationHours: 24,
	})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := testManager().ValidateToken("not.a.token")
	assert.Error(t, err)
}
