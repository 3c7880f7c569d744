package service

import (
	"context"
	"errors"
	"time"

	"idregistry/internal/registry/models"
	"idregistry/internal/signature"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/audit"
	"idregistry/pkg/platform/sentinel"
	"idregistry/pkg/requestcontext"
)

// Register allocates the next id for the caller and binds the given recovery
// address to it. Checks run in a fixed order: pause gate, registration gate,
// then the caller's own registration status.
func (s *Service) Register(ctx context.Context, caller, recovery domain.Address) (*models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Register")
	defer span.End()
	start := time.Now()

	if err := s.gates.RequireNotPaused(ctx); err != nil {
		return nil, s.reject(ctx, "register", wrapRegistryErr(err))
	}
	if err := s.gates.RequireCanAllocate(ctx, caller); err != nil {
		return nil, s.reject(ctx, "register", wrapRegistryErr(err))
	}
	if err := s.requireUnregistered(ctx, caller); err != nil {
		return nil, s.reject(ctx, "register", err)
	}

	identity, err := s.allocate(ctx, caller, recovery)
	if err != nil {
		return nil, s.reject(ctx, "register", err)
	}

	s.logAudit(ctx, audit.EventIdentityRegistered, identity.ID,
		"subject", identity.Owner.String())
	s.metrics.IncrementRegistered()
	s.metrics.ObserveOperation("register", start)
	return identity, nil
}

// RegisterFor allocates an id for a recipient who consented off-band, letting
// a relayer submit the call on the recipient's behalf. The gates judge the
// submitting caller, not the recipient; the recipient's consent signature is
// checked last, after every state precondition has passed.
func (s *Service) RegisterFor(ctx context.Context, caller, to, recovery domain.Address, deadline int64, envelope []byte) (*models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "registry.RegisterFor")
	defer span.End()
	start := time.Now()

	if err := s.gates.RequireNotPaused(ctx); err != nil {
		return nil, s.reject(ctx, "register_for", wrapRegistryErr(err))
	}
	if err := s.gates.RequireCanAllocate(ctx, caller); err != nil {
		return nil, s.reject(ctx, "register_for", wrapRegistryErr(err))
	}
	if err := s.requireUnregistered(ctx, to); err != nil {
		return nil, s.reject(ctx, "register_for", err)
	}
	if err := s.verifier.Verify(ctx, to, signature.RegisterConsent(to, recovery, deadline), envelope); err != nil {
		return nil, s.reject(ctx, "register_for", wrapRegistryErr(err))
	}

	identity, err := s.allocate(ctx, to, recovery)
	if err != nil {
		return nil, s.reject(ctx, "register_for", err)
	}

	s.logAudit(ctx, audit.EventIdentityRegistered, identity.ID,
		"subject", identity.Owner.String(),
		"relayer", caller.String())
	s.metrics.IncrementRegistered()
	s.metrics.ObserveOperation("register_for", start)
	return identity, nil
}

func (s *Service) requireUnregistered(ctx context.Context, addr domain.Address) error {
	_, err := s.store.FindByOwner(ctx, addr)
	switch {
	case err == nil:
		return dErrors.New(dErrors.CodeAlreadyRegistered, "address already holds an id")
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration status")
	}
}

func (s *Service) allocate(ctx context.Context, owner, recovery domain.Address) (*models.Identity, error) {
	identity, err := s.store.Allocate(ctx, owner, recovery, requestcontext.Now(ctx))
	if err != nil {
		return nil, wrapRegistryErr(err)
	}
	return identity, nil
}
