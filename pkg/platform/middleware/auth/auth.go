// Package auth authenticates callers on the mutating endpoints.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"idregistry/pkg/domain"
	"idregistry/pkg/requestcontext"
)

// TokenValidator checks a presented bearer token. A successful validation
// yields the address proven by the token's signature.
type TokenValidator interface {
	ExtractCallerFromToken(tokenString string) (domain.Address, error)
}

// RequireAuth rejects requests without a valid Bearer token and stores the
// proven caller address in the request context for handlers and services.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			caller, err := validator.ExtractCallerFromToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCallerAddress(ctx, caller)))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"unauthorized","error_description":"%s"}`, description))
}
