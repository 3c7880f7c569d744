package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"idregistry/internal/registry/metrics"
	"idregistry/internal/registry/models"
	"idregistry/internal/signature"
	"idregistry/pkg/attrs"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/audit"
	"idregistry/pkg/platform/sentinel"
	"idregistry/pkg/requestcontext"
)

// Store persists identities. See internal/registry/store for the contract.
type Store interface {
	Allocate(ctx context.Context, owner, recovery domain.Address, now time.Time) (*models.Identity, error)
	FindByOwner(ctx context.Context, owner domain.Address) (*models.Identity, error)
	FindByID(ctx context.Context, identityID domain.IdentityID) (*models.Identity, error)
	Counter(ctx context.Context) (uint64, error)
	Execute(ctx context.Context, identityID domain.IdentityID, validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error)
}

// ConsentVerifier checks a counterparty's signed consent envelope.
type ConsentVerifier interface {
	Verify(ctx context.Context, signer domain.Address, consent signature.Consent, envelope []byte) error
}

// Gates exposes the registration and pause gates the registry consults before
// allocating ids.
type Gates interface {
	RequireNotPaused(ctx context.Context) error
	RequireCanAllocate(ctx context.Context, caller domain.Address) error
}

// AuditPublisher records registry events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the identity registry core. It owns precondition ordering: every
// operation checks its requirements in a fixed sequence and mutates nothing
// until all of them pass, so callers can rely on the specific error they get
// and on failed calls leaving no trace.
type Service struct {
	store          Store
	verifier       ConsentVerifier
	gates          Gates
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, verifier ConsentVerifier, gates Gates, opts ...Option) *Service {
	s := &Service{
		store:    store,
		verifier: verifier,
		gates:    gates,
		tracer:   otel.Tracer("idregistry/internal/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// wrapRegistryErr translates store sentinels into the coded errors callers
// branch on. Coded errors pass through untouched.
func wrapRegistryErr(err error) error {
	switch {
	case err == nil:
		return nil
	case dErrors.HasCode(err, dErrors.CodeNotRegistered),
		dErrors.HasCode(err, dErrors.CodeAlreadyRegistered),
		dErrors.HasCode(err, dErrors.CodeUnauthorized),
		dErrors.HasCode(err, dErrors.CodePaused),
		dErrors.HasCode(err, dErrors.CodeInvalidSignature),
		dErrors.HasCode(err, dErrors.CodeSignatureExpired),
		dErrors.HasCode(err, dErrors.CodeValidation):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotRegistered, "address does not hold an id")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeAlreadyRegistered, "address already holds an id")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry operation failed")
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, identityID domain.IdentityID, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "identity_id", uint64(identityID), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Category:   event.Category(),
		Action:     string(event),
		IdentityID: identityID,
		Subject:    attrs.String(attributes, "subject"),
		Actor:      requestcontext.CallerAddress(ctx).String(),
		Reason:     attrs.String(attributes, "reason"),
		IP:         requestcontext.ClientIP(ctx),
		Device:     requestcontext.DeviceLabel(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	})
}

// reject records a refused operation in metrics and, for signature and
// authorization failures, on the security audit trail.
func (s *Service) reject(ctx context.Context, operation string, err error) error {
	code := string(dErrors.CodeOf(err))
	s.metrics.IncrementRejected(operation, code)

	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidSignature, dErrors.CodeSignatureExpired, dErrors.CodeUnauthorized:
		s.logAudit(ctx, audit.EventConsentRejected, domain.NoIdentity,
			"subject", operation,
			"reason", code)
	}
	return err
}
