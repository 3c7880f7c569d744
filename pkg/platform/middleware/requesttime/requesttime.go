// Package requesttime pins one "now" per HTTP request. Every deadline
// comparison, audit timestamp and domain write during the request reads the
// same instant through requestcontext.Now, so a consent cannot be valid at
// the gate check and expired at the signature check.
package requesttime

import (
	"net/http"
	"time"

	"idregistry/pkg/requestcontext"
)

// Middleware stamps the request context with the wall-clock time at arrival.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
