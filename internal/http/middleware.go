package httpapi

import (
	"net/http"
	"strings"

	"samaj-census/internal/service"

	"go.uber.org/zap"
)

// RequireAuth wraps a handler with bearer-token verification. Auth faults
// answer 401 with no detail beyond missing/invalid.
func RequireAuth(auth service.AuthService, logger *zap.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing token")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if _, err := auth.VerifyToken(token); err != nil {
			logger.Warn("Rejected admin request: invalid token", zap.String("path", r.URL.Path))
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, r)
	}
}
