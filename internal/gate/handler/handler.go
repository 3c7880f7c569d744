package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	registryv1 "idregistry/contracts/registry"
	"idregistry/internal/gate"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	audit "idregistry/pkg/platform/audit"
	"idregistry/pkg/platform/httputil"
	"idregistry/pkg/requestcontext"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// GateService defines the administrative operations on the registration gates.
type GateService interface {
	Status(ctx context.Context) (gate.State, error)
	SetTrustedCaller(ctx context.Context, addr domain.Address) error
	DisableTrustedOnly(ctx context.Context) error
	Pause(ctx context.Context) error
	Unpause(ctx context.Context) error
}

// CounterSource reports the allocation high-water mark for the status view.
type CounterSource interface {
	Counter(ctx context.Context) (uint64, error)
}

// AuditTrail serves the recent-events view.
type AuditTrail interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Handler wires the operator endpoints to the gate service.
type Handler struct {
	gates    GateService
	counters CounterSource
	trail    AuditTrail
	logger   *slog.Logger
}

// New constructs an admin handler with its dependencies.
func New(gates GateService, counters CounterSource, trail AuditTrail, logger *slog.Logger) *Handler {
	return &Handler{
		gates:    gates,
		counters: counters,
		trail:    trail,
		logger:   logger,
	}
}

// Register mounts the administrative endpoints. Mount behind the admin-token
// middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/admin/trusted-caller", h.HandleSetTrustedCaller)
	r.Post("/v1/admin/open-registration", h.HandleOpenRegistration)
	r.Post("/v1/admin/pause", h.HandlePause)
	r.Post("/v1/admin/unpause", h.HandleUnpause)
	r.Get("/v1/admin/audit/recent", h.HandleRecentAudit)
}

// RegisterStatus mounts the public registry status endpoint.
func (h *Handler) RegisterStatus(r chi.Router) {
	r.Get("/v1/registry/status", h.HandleStatus)
}

// HandleSetTrustedCaller handles POST /v1/admin/trusted-caller requests.
func (h *Handler) HandleSetTrustedCaller(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[TrustedCallerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.gates.SetTrustedCaller(ctx, req.ParsedAddress()); err != nil {
		h.logger.ErrorContext(ctx, "trusted caller change failed",
			"request_id", requestID,
			"address", req.Address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "trusted caller designated",
		"request_id", requestID,
		"address", req.Address,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleOpenRegistration handles POST /v1/admin/open-registration requests.
// The transition is one-way; repeating it answers 409.
func (h *Handler) HandleOpenRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := h.gates.DisableTrustedOnly(ctx); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeAlreadyDisabled) {
			h.logger.ErrorContext(ctx, "opening registration failed",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration opened", "request_id", requestID)
	w.WriteHeader(http.StatusNoContent)
}

// HandlePause handles POST /v1/admin/pause requests.
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := h.gates.Pause(ctx); err != nil {
		h.logger.ErrorContext(ctx, "pausing registrations failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registrations paused", "request_id", requestID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnpause handles POST /v1/admin/unpause requests.
func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if err := h.gates.Unpause(ctx); err != nil {
		h.logger.ErrorContext(ctx, "unpausing registrations failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registrations unpaused", "request_id", requestID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus handles GET /v1/registry/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state, err := h.gates.Status(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "status lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	counter, err := h.counters.Counter(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "counter lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, registryv1.StatusResponse{
		Counter:       counter,
		Paused:        state.Paused,
		TrustedOnly:   state.TrustedOnly,
		TrustedCaller: state.TrustedCaller.String(),
	})
}

// HandleRecentAudit handles GET /v1/admin/audit/recent requests.
func (h *Handler) HandleRecentAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxRecentLimit)
	}

	events, err := h.trail.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := recentAuditResponse{Events: make([]auditEventResponse, 0, len(events))}
	for _, ev := range events {
		resp.Events = append(resp.Events, auditEventResponse{
			Category:   string(ev.Category),
			Timestamp:  ev.Timestamp,
			IdentityID: uint64(ev.IdentityID),
			Subject:    ev.Subject,
			Actor:      ev.Actor,
			Action:     ev.Action,
			Reason:     ev.Reason,
			IP:         ev.IP,
			Device:     ev.Device,
			RequestID:  ev.RequestID,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type recentAuditResponse struct {
	Events []auditEventResponse `json:"events"`
}

type auditEventResponse struct {
	Category   string    `json:"category"`
	Timestamp  time.Time `json:"timestamp"`
	IdentityID uint64    `json:"identity_id"`
	Subject    string    `json:"subject,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Action     string    `json:"action"`
	Reason     string    `json:"reason,omitempty"`
	IP         string    `json:"ip,omitempty"`
	Device     string    `json:"device,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}
