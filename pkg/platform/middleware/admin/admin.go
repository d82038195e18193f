// Package admin guards the operational endpoints with a shared token. The
// portal gateway in front of this service does user-level authorization;
// this is the defense for direct access.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"sigede/pkg/requestcontext"
)

// RequireToken rejects requests whose X-Admin-Token header does not match.
// Comparison is constant-time.
func RequireToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"admin token required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
