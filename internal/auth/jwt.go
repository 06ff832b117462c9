package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ecp-air/airquality-backend/internal/config"
)

// TokenType distinguishes access from refresh tokens.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// Claims defines the custom JWT claims structure.
type Claims struct {
	UserID    uint   `json:"user_id"`
	Role      int    `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token operations.
type JWTManager struct {
	secretKey         []byte
	expiration        time.Duration
	refreshExpiration time.Duration
}

// NewJWTManager creates a new JWT manager.
func NewJWTManager(cfg *config.JWTConfig) *JWTManager {
	return &JWTManager{
		secretKey:         []byte(cfg.SecretKey),
		expiration:        time.Duration(cfg.ExpirationMinutes) * time.Minute,
		refreshExpiration: time.Duration(cfg.RefreshExpirationHours) * time.Hour,
	}
}

func (m *JWTManager) generate(userID uint, role int, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "airquality-backend",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// GenerateAccessToken creates a short-lived access token.
func (m *JWTManager) GenerateAccessToken(userID uint, role int) (string, error) {
	return m.generate(userID, role, TokenAccess, m.expiration)
}

// GenerateRefreshToken creates a long-lived refresh token.
func (m *JWTManager) GenerateRefreshToken(userID uint, role int) (string, error) {
	return m.generate(userID, role, TokenRefresh, m.refreshExpiration)
}

// ValidateToken validates a JWT token and returns the claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
