package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

// CORSMiddleware handles cross-origin requests from the dashboard frontends.
type CORSMiddleware struct {
	allowedOrigins map[string]struct{}
	logger         *zap.Logger
}

// NewCORSMiddleware creates a CORS middleware for the given origins.
func NewCORSMiddleware(origins []string, logger *zap.Logger) *CORSMiddleware {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return &CORSMiddleware{allowedOrigins: allowed, logger: logger}
}

// EnableCORS sets CORS headers and answers preflight requests.
func (m *CORSMiddleware) EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if _, ok := m.allowedOrigins[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Node-Token, X-Request-ID")
			} else {
				m.logger.Debug("origin not allowed", zap.String("origin", origin))
			}
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
