package gate

import (
	"context"
	"log/slog"

	"idregistry/pkg/attrs"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	audit "idregistry/pkg/platform/audit"
	"idregistry/pkg/requestcontext"
)

// Store persists gate state. Execute runs validate then mutate while holding
// the store's write lock (mutex or row lock) so one-way transitions cannot
// race.
type Store interface {
	Load(ctx context.Context) (State, error)
	Execute(ctx context.Context, validate func(*State) error, mutate func(*State)) (State, error)
}

// AuditPublisher records gate administration events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service exposes the registration and pause gates to the registry core and
// to the admin transport.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

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

// New constructs a gate Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status returns the current gate state.
func (s *Service) Status(ctx context.Context) (State, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return State{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load gate state")
	}
	return state, nil
}

// IsTrustedOnly reports whether the registry is still in its bootstrap phase.
func (s *Service) IsTrustedOnly(ctx context.Context) (bool, error) {
	state, err := s.Status(ctx)
	if err != nil {
		return false, err
	}
	return state.TrustedOnly, nil
}

// RequireCanAllocate fails with CodeUnauthorized when the trusted-only gate
// blocks the caller.
func (s *Service) RequireCanAllocate(ctx context.Context, caller domain.Address) error {
	state, err := s.Status(ctx)
	if err != nil {
		return err
	}
	return state.RequireCanAllocate(caller)
}

// RequireNotPaused fails with CodePaused while allocations are paused.
func (s *Service) RequireNotPaused(ctx context.Context) error {
	state, err := s.Status(ctx)
	if err != nil {
		return err
	}
	return state.RequireNotPaused()
}

// SetTrustedCaller designates the sole address allowed to allocate while the
// trusted-only gate is active. May be called at any time; once registration
// is open the designation has no effect.
func (s *Service) SetTrustedCaller(ctx context.Context, addr domain.Address) error {
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx,
		func(state *State) error {
			return state.CanSetTrustedCaller(addr)
		},
		func(state *State) {
			state.ApplySetTrustedCaller(addr, now)
		},
	)
	if err != nil {
		return wrapGateErr(err)
	}

	s.logAudit(ctx, string(audit.EventTrustedCallerSet), "subject", addr.String())
	return nil
}

// DisableTrustedOnly permanently opens self-registration.
// Fails with CodeAlreadyDisabled when registration is already open.
func (s *Service) DisableTrustedOnly(ctx context.Context) error {
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx,
		func(state *State) error {
			return state.CanDisableTrustedOnly()
		},
		func(state *State) {
			state.ApplyDisableTrustedOnly(now)
		},
	)
	if err != nil {
		return wrapGateErr(err)
	}

	s.logAudit(ctx, string(audit.EventRegistrationOpened))
	return nil
}

// Pause blocks new allocations until Unpause. Idempotent.
func (s *Service) Pause(ctx context.Context) error {
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx,
		func(*State) error { return nil },
		func(state *State) {
			state.ApplyPause(now)
		},
	)
	if err != nil {
		return wrapGateErr(err)
	}

	s.logAudit(ctx, string(audit.EventRegistryPaused))
	return nil
}

// Unpause lifts the allocation pause. Idempotent.
func (s *Service) Unpause(ctx context.Context) error {
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx,
		func(*State) error { return nil },
		func(state *State) {
			state.ApplyUnpause(now)
		},
	)
	if err != nil {
		return wrapGateErr(err)
	}

	s.logAudit(ctx, string(audit.EventRegistryUnpaused))
	return nil
}

// wrapGateErr passes domain errors through and wraps infrastructure failures.
func wrapGateErr(err error) error {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeAlreadyDisabled, dErrors.CodeValidation, dErrors.CodeUnauthorized, dErrors.CodePaused:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "gate store failure")
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Action:    event,
		Subject:   attrs.String(attributes, "subject"),
		Actor:     requestcontext.CallerAddress(ctx).String(),
		IP:        requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
	})
}
