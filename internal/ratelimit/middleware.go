package ratelimit

import (
	"log/slog"
	"net/http"

	registryv1 "idregistry/contracts/registry"
	"idregistry/pkg/platform/httputil"
	"idregistry/pkg/requestcontext"
)

// Middleware enforces the per-caller budget on the routes it wraps. Keys
// prefer the authenticated caller address and fall back to the client IP, so
// requests that fail before authentication still count against someone.
type Middleware struct {
	limiter *MapLimiter
	logger  *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns the middleware into a pass-through (demo and test mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(limiter *MapLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Limit is the chi middleware applying the budget.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled || m.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := requestcontext.CallerAddress(ctx).String()
		if key == "" {
			key = requestcontext.ClientIP(ctx)
		}

		if !m.limiter.Allow(key, requestcontext.Now(ctx)) {
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"caller", key,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", "1")
			httputil.WriteJSON(w, http.StatusTooManyRequests, registryv1.ErrorResponse{
				Error:            "rate_limit_exceeded",
				ErrorDescription: "too many requests, slow down",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
