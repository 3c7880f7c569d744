package recoveryproxy

import (
	"context"
	"log/slog"

	"idregistry/internal/registry/models"
	"idregistry/pkg/attrs"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/audit"
	"idregistry/pkg/requestcontext"
)

// Store persists proxy controller state. Execute runs validate then mutate
// while holding the store's write lock (mutex or row lock) so a handoff
// cannot race with a competing nomination or accept.
type Store interface {
	Load(ctx context.Context) (State, error)
	Execute(ctx context.Context, validate func(*State) error, mutate func(*State)) (State, error)
}

// Recoverer is the slice of the registry core the proxy forwards into.
type Recoverer interface {
	Recover(ctx context.Context, caller, from, to domain.Address, deadline int64, envelope []byte) (*models.Identity, error)
}

// AuditPublisher records controller handoffs and forwarded recoveries.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service forwards recoveries on behalf of its controller. The proxy holds a
// registry address of its own — the one participants set as their recovery
// address — and the registry authorizes forwarded recoveries against that
// address like any other caller. The proxy holds no signing keys.
type Service struct {
	store          Store
	registry       Recoverer
	address        domain.Address
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

// New constructs a proxy Service. address is the proxy's own registry
// address, the one authorized as recovery for participating identities.
func New(store Store, registry Recoverer, address domain.Address, opts ...Option) *Service {
	s := &Service{store: store, registry: registry, address: address}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Address returns the proxy's registry address. Participants set it as their
// recovery address to opt in.
func (s *Service) Address() domain.Address {
	return s.address
}

// Controller returns the current controller state.
func (s *Service) Controller(ctx context.Context) (State, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return State{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proxy state")
	}
	return state, nil
}

// TransferController nominates the next controller. The handoff is
// two-phase: the nomination grants nothing until the nominee calls
// AcceptController. Nominating again replaces the standing nomination; the
// zero address withdraws it. Fails with CodeUnauthorized unless the caller
// is the current controller.
func (s *Service) TransferController(ctx context.Context, caller, nominee domain.Address) error {
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx,
		func(state *State) error {
			return state.RequireController(caller)
		},
		func(state *State) {
			state.ApplyNomination(nominee, now)
		},
	)
	if err != nil {
		return wrapProxyErr(err)
	}

	s.logAudit(ctx, audit.EventControllerNominated, domain.NoIdentity, "subject", nominee.String())
	return nil
}

// AcceptController completes a pending handoff. Fails with CodeUnauthorized
// unless the caller is the nominated controller.
func (s *Service) AcceptController(ctx context.Context, caller domain.Address) error {
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx,
		func(state *State) error {
			return state.CanAccept(caller)
		},
		func(state *State) {
			state.ApplyAccept(now)
		},
	)
	if err != nil {
		return wrapProxyErr(err)
	}

	s.logAudit(ctx, audit.EventControllerAccepted, domain.NoIdentity, "subject", caller.String())
	return nil
}

// Recover forwards a recovery to the registry under the proxy's address.
// Only the current controller may forward; the recovery mandate, the
// recipient's consent and its deadline are all enforced by the registry
// core, which re-checks them inside its own atomic step.
func (s *Service) Recover(ctx context.Context, caller, from, to domain.Address, deadline int64, envelope []byte) (*models.Identity, error) {
	state, err := s.Controller(ctx)
	if err != nil {
		return nil, err
	}
	if err := state.RequireController(caller); err != nil {
		return nil, err
	}

	identity, err := s.registry.Recover(ctx, s.address, from, to, deadline, envelope)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.EventRecoveryForwarded, identity.ID,
		"subject", to.String(),
		"from", from.String())
	return identity, nil
}

// wrapProxyErr passes domain errors through and wraps infrastructure
// failures.
func wrapProxyErr(err error) error {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeUnauthorized, dErrors.CodeValidation:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "proxy store failure")
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, identityID domain.IdentityID, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
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
		IP:         requestcontext.ClientIP(ctx),
		Device:     requestcontext.DeviceLabel(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	})
}
