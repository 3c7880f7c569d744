// Package admin guards the operator surface with a shared secret.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"idregistry/pkg/requestcontext"
)

const headerAdminToken = "X-Admin-Token"

// RequireAdminToken admits only requests whose X-Admin-Token header matches
// the configured secret, compared in constant time. An empty secret disables
// the surface entirely rather than letting every request through.
func RequireAdminToken(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(headerAdminToken)
			if secret == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
				logger.WarnContext(r.Context(), "admin token mismatch",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
