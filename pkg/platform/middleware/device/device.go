// Package device derives human-readable device labels from User-Agent
// strings so audit entries can say "Chrome on Mac OS X" instead of a raw
// header value.
package device

import (
	"net/http"
	"strings"

	"idregistry/pkg/requestcontext"

	"github.com/mssola/useragent"
)

// DeviceLabel parses the User-Agent header and stores the resulting label in
// the request context for audit trails.
func DeviceLabel(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		label := ParseUserAgent(r.Header.Get("User-Agent"))
		ctx := requestcontext.WithDeviceLabel(r.Context(), label)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseUserAgent builds a display label from a User-Agent string. Browsers
// yield "<browser> on <platform>"; non-browser clients such as CLIs yield
// their product name; an empty header yields "Unknown Device".
func ParseUserAgent(ua string) string {
	if ua == "" {
		return "Unknown Device"
	}

	parsed := useragent.New(ua)
	name, _ := parsed.Browser()
	if name == "" {
		return productName(ua)
	}

	where := parsed.Platform()
	// Desktop platform tokens carry no information; prefer the OS name.
	switch {
	case where == "", strings.EqualFold(where, "Macintosh"), where == "X11", strings.HasPrefix(where, "Windows"):
		if osName := parsed.OSInfo().Name; osName != "" {
			where = osName
		}
	}
	if where == "" {
		where = "Unknown OS"
	}

	return strings.Join(strings.Fields(name+" on "+where), " ")
}

// productName extracts the product token from agents like "curl/8.5.0".
func productName(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return "Unknown Device"
	}
	if name, _, ok := strings.Cut(fields[0], "/"); ok && name != "" {
		return name
	}
	return fields[0]
}
