package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	registryv1 "idregistry/contracts/registry"
	"idregistry/internal/registry/models"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/httputil"
	"idregistry/pkg/requestcontext"
)

// Service defines the interface for registry operations.
type Service interface {
	Register(ctx context.Context, caller, recovery domain.Address) (*models.Identity, error)
	RegisterFor(ctx context.Context, caller, to, recovery domain.Address, deadline int64, envelope []byte) (*models.Identity, error)
	Transfer(ctx context.Context, caller, to domain.Address, deadline int64, envelope []byte) (*models.Identity, error)
	Recover(ctx context.Context, caller, from, to domain.Address, deadline int64, envelope []byte) (*models.Identity, error)
	ChangeRecoveryAddress(ctx context.Context, caller, recovery domain.Address) (*models.Identity, error)
	IdentityOf(ctx context.Context, owner domain.Address) (*models.Identity, error)
	RecoveryOf(ctx context.Context, identityID domain.IdentityID) (domain.Address, error)
}

// Handler wires identity endpoints to the registry service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registry handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the state-changing identity endpoints. Mount behind the
// caller-token middleware: every handler here reads the proven caller address
// from the request context.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/identities", h.HandleRegister)
	r.Post("/v1/identities/register-for", h.HandleRegisterFor)
	r.Post("/v1/identities/transfer", h.HandleTransfer)
	r.Post("/v1/identities/recover", h.HandleRecover)
	r.Put("/v1/identities/recovery", h.HandleSetRecovery)
}

// RegisterQueries mounts the public read endpoints.
func (h *Handler) RegisterQueries(r chi.Router) {
	r.Get("/v1/identities/owner/{address}", h.HandleOwnerLookup)
	r.Get("/v1/identities/{id}/recovery", h.HandleRecoveryLookup)
}

// HandleRegister handles POST /v1/identities requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.CallerAddress(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.Register(ctx, caller, req.ParsedRecovery())
	if err != nil {
		h.logger.ErrorContext(ctx, "registration failed",
			"request_id", requestID,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identity registered",
		"request_id", requestID,
		"identity_id", identity.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, registryv1.IdentityResponse{ID: uint64(identity.ID)})
}

// HandleRegisterFor handles POST /v1/identities/register-for requests.
func (h *Handler) HandleRegisterFor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.CallerAddress(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterForRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.RegisterFor(ctx, caller, req.ParsedTo(), req.ParsedRecovery(), req.Deadline, req.ParsedSignature())
	if err != nil {
		h.logger.ErrorContext(ctx, "relayed registration failed",
			"request_id", requestID,
			"caller", caller,
			"to", req.To,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identity registered for recipient",
		"request_id", requestID,
		"identity_id", identity.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, registryv1.IdentityResponse{ID: uint64(identity.ID)})
}

// HandleTransfer handles POST /v1/identities/transfer requests.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.CallerAddress(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.Transfer(ctx, caller, req.ParsedTo(), req.Deadline, req.ParsedSignature())
	if err != nil {
		h.logger.ErrorContext(ctx, "transfer failed",
			"request_id", requestID,
			"caller", caller,
			"to", req.To,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identity transferred",
		"request_id", requestID,
		"identity_id", identity.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecover handles POST /v1/identities/recover requests.
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
		h.logger.ErrorContext(ctx, "recovery failed",
			"request_id", requestID,
			"caller", caller,
			"from", req.From,
			"to", req.To,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identity recovered",
		"request_id", requestID,
		"identity_id", identity.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetRecovery handles PUT /v1/identities/recovery requests.
func (h *Handler) HandleSetRecovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.CallerAddress(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[SetRecoveryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	identity, err := h.service.ChangeRecoveryAddress(ctx, caller, req.ParsedRecovery())
	if err != nil {
		h.logger.ErrorContext(ctx, "recovery address change failed",
			"request_id", requestID,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "recovery address changed",
		"request_id", requestID,
		"identity_id", identity.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleOwnerLookup handles GET /v1/identities/owner/{address} requests.
// An unregistered address answers 200 with id 0 rather than 404, so clients
// can probe registration status without branching on errors.
func (h *Handler) HandleOwnerLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := registryv1.OwnerResponse{Address: addr.String()}
	identity, err := h.service.IdentityOf(ctx, addr)
	switch {
	case err == nil:
		resp.ID = uint64(identity.ID)
	case dErrors.HasCode(err, dErrors.CodeNotRegistered):
		// Unregistered: id stays 0.
	default:
		h.logger.ErrorContext(ctx, "owner lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"address", addr,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleRecoveryLookup handles GET /v1/identities/{id}/recovery requests.
func (h *Handler) HandleRecoveryLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID, err := domain.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	recovery, err := h.service.RecoveryOf(ctx, identityID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotRegistered) {
			h.logger.ErrorContext(ctx, "recovery lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"identity_id", identityID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, registryv1.RecoveryResponse{
		ID:       uint64(identityID),
		Recovery: recovery.String(),
	})
}
