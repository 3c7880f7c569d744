package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	registryv1 "idregistry/contracts/registry"
	"idregistry/internal/recoveryproxy"
	"idregistry/internal/registry/models"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/httputil"
	"idregistry/pkg/requestcontext"
)

// Service defines the interface for recovery proxy operations.
type Service interface {
	Address() domain.Address
	Controller(ctx context.Context) (recoveryproxy.State, error)
	TransferController(ctx context.Context, caller, nominee domain.Address) error
	AcceptController(ctx context.Context, caller domain.Address) error
	Recover(ctx context.Context, caller, from, to domain.Address, deadline int64, envelope []byte) (*models.Identity, error)
}

// Handler wires the recovery proxy endpoints to the proxy service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a proxy handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the state-changing proxy endpoints. Mount behind the
// caller-token middleware: the controller authenticates like any other
// participant.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/proxy/recover", h.HandleRecover)
	r.Post("/v1/proxy/controller/transfer", h.HandleTransferController)
	r.Post("/v1/proxy/controller/accept", h.HandleAcceptController)
}

// RegisterQueries mounts the public read endpoints.
func (h *Handler) RegisterQueries(r chi.Router) {
	r.Get("/v1/proxy/controller", h.HandleController)
}

// HandleRecover handles POST /v1/proxy/recover requests.
func (h *Handler) HandleRecover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.CallerAddress(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RecoverRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.Recover(ctx, caller, req.ParsedFrom(), req.ParsedTo(), req.Deadline, req.ParsedSignature())
	if err != nil {
		h.logger.ErrorContext(ctx, "forwarded recovery failed",
			"request_id", requestID,
			"caller", caller,
			"from", req.From,
			"to", req.To,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "recovery forwarded",
		"request_id", requestID,
		"identity_id", identity.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleTransferController handles POST /v1/proxy/controller/transfer requests.
func (h *Handler) HandleTransferController(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.CallerAddress(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[NominateControllerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.TransferController(ctx, caller, req.ParsedNominee()); err != nil {
		h.logger.ErrorContext(ctx, "controller nomination failed",
			"request_id", requestID,
			"caller", caller,
			"nominee", req.Nominee,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "proxy controller nominated",
		"request_id", requestID,
		"nominee", req.Nominee,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleAcceptController handles POST /v1/proxy/controller/accept requests.
// The request carries no body: the accepting nominee is the authenticated
// caller.
func (h *Handler) HandleAcceptController(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.CallerAddress(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.service.AcceptController(ctx, caller); err != nil {
		h.logger.ErrorContext(ctx, "controller accept failed",
			"request_id", requestID,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "proxy controller accepted",
		"request_id", requestID,
		"controller", caller,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleController handles GET /v1/proxy/controller requests.
func (h *Handler) HandleController(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	state, err := h.service.Controller(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "controller lookup failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, registryv1.ControllerResponse{
		Address:           h.service.Address().String(),
		Controller:        state.Controller.String(),
		PendingController: state.PendingController.String(),
	})
}
