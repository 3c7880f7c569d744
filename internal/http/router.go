// Package httpapi assembles the registryd HTTP surface.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gatehandler "idregistry/internal/gate/handler"
	"idregistry/internal/platform/metrics"
	"idregistry/internal/ratelimit"
	proxyhandler "idregistry/internal/recoveryproxy/handler"
	registryhandler "idregistry/internal/registry/handler"
	"idregistry/pkg/platform/httputil"
	adminmw "idregistry/pkg/platform/middleware/admin"
	authmw "idregistry/pkg/platform/middleware/auth"
	"idregistry/pkg/platform/middleware/device"
	"idregistry/pkg/platform/middleware/logging"
	"idregistry/pkg/platform/middleware/metadata"
	"idregistry/pkg/platform/middleware/recovery"
	request "idregistry/pkg/platform/middleware/request"
	"idregistry/pkg/platform/middleware/requesttime"
	"idregistry/pkg/requestcontext"
)

// RouterConfig carries everything the router mounts. Registry and Gate are
// required; Proxy is optional and its routes disappear when it is nil.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.HTTP
	TokenValidator authmw.TokenValidator
	AdminToken     string
	RequestTimeout time.Duration
	RateLimit      *ratelimit.Middleware

	Registry *registryhandler.Handler
	Gate     *gatehandler.Handler
	Proxy    *proxyhandler.Handler

	// Healthz reports readiness of the backing stores. nil means always
	// healthy.
	Healthz func(ctx context.Context) error
}

// NewRouter assembles the full surface:
//
//	public  - health, metrics, registry status, identity and proxy lookups
//	caller  - mutation endpoints behind bearer-token auth and the rate limiter
//	admin   - gate administration behind the shared admin token
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(recovery.Middleware(cfg.Logger))
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(device.DeviceLabel)
	r.Use(logging.Middleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/healthz", handleHealthz(cfg.Healthz))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	cfg.Registry.RegisterQueries(r)
	cfg.Gate.RegisterStatus(r)
	if cfg.Proxy != nil {
		cfg.Proxy.RegisterQueries(r)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		pr.Use(chimiddleware.AllowContentType("application/json"))
		pr.Use(authmw.RequireAuth(cfg.TokenValidator, cfg.Logger))
		if cfg.RateLimit != nil {
			pr.Use(cfg.RateLimit.Limit)
		}
		cfg.Registry.Register(pr)
		if cfg.Proxy != nil {
			cfg.Proxy.Register(pr)
		}
	})

	r.Group(func(ar chi.Router) {
		ar.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		ar.Use(chimiddleware.AllowContentType("application/json"))
		ar.Use(adminmw.RequireAdminToken(cfg.AdminToken, cfg.Logger))
		cfg.Gate.Register(ar)
	})

	return r
}

func handleHealthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":     "unavailable",
					"request_id": requestcontext.RequestID(r.Context()),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
