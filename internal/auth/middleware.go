package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ecp-air/airquality-backend/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// User represents the authenticated principal.
type User struct {
	ID   uint
	Role int
}

// IsAdmin reports whether the principal holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == models.RoleAdmin
}

// Middleware attaches authenticated principals to request contexts. Read
// endpoints use Optional: anonymous requests pass through without an
// ownership check, while a presented credential must still be valid.
type Middleware struct {
	jwtManager *JWTManager
	logger     *zap.Logger
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(jwtManager *JWTManager, logger *zap.Logger) *Middleware {
	return &Middleware{jwtManager: jwtManager, logger: logger}
}

func (m *Middleware) principalFrom(r *http.Request) (*User, bool, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false, nil
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, true, errInvalidFormat
	}
	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, true, err
	}
	if claims.TokenType != TokenAccess {
		return nil, true, errNotAccessToken
	}
	return &User{ID: claims.UserID, Role: claims.Role}, true, nil
}

// Optional validates a Bearer token when present and stores the principal
// in the context. A missing header is allowed; a bad one is rejected.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, presented, err := m.principalFrom(r)
		if err != nil {
			m.logger.Warn("invalid credential", zap.Error(err))
			rejectUnauthorized(w, "invalid or expired token")
			return
		}
		if !presented {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// Require rejects requests without a valid access token.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, presented, err := m.principalFrom(r)
		if !presented {
			rejectUnauthorized(w, "authorization header required")
			return
		}
		if err != nil {
			m.logger.Warn("invalid credential", zap.Error(err))
			rejectUnauthorized(w, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// rejectUnauthorized writes the uniform failure envelope. Kept local so the
// middleware stays below the handler layer in the import graph.
func rejectUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  0,
		"message": message,
		"data":    struct{}{},
	})
}

func withUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the principal from the request context, or nil
// for anonymous requests.
func UserFromContext(ctx context.Context) *User {
	user, ok := ctx.Value(userContextKey).(*User)
	if !ok {
		return nil
	}
	return user
}

var (
	errInvalidFormat  = &authError{"invalid authorization format"}
	errNotAccessToken = &authError{"refresh token cannot be used for access"}
)

type authError struct{ msg string }

func (e *authError) Error() string { return e.msg }
