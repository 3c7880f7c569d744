// Package request provides middleware that assigns each request a unique ID
// for correlation across logs, audit entries, and error responses.
package request

import (
	"net/http"

	"idregistry/pkg/requestcontext"

	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// Middleware attaches a request ID to the context and echoes it back in the
// X-Request-ID response header. An incoming header value is reused so IDs
// survive proxy hops.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(headerRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
