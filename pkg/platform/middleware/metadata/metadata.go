// Package metadata records where a request came from. The client IP and
// User-Agent ride the request context into access logs and audit events.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"idregistry/pkg/requestcontext"
)

// ClientMetadata stores the caller's network address and User-Agent in the
// request context. Mount it before anything that logs or audits.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP resolves the originating client address. Proxy headers win over
// the socket: the first X-Forwarded-For entry is the original client,
// X-Real-IP is what nginx-style proxies set, RemoteAddr covers direct
// connections.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
