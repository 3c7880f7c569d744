package service

import (
	"context"
	"time"

	"idregistry/internal/registry/models"
	"idregistry/internal/signature"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/audit"
	"idregistry/pkg/requestcontext"
)

// Recover reassigns the id held by from to a consenting recipient, on the
// authority of the id's recovery address.
//
// Check order: from must hold an id, the caller must be that id's recovery
// address, the recipient must not hold an id, and the recipient must have
// signed a consent binding this exact id and recipient before the deadline.
// Recovering back to the current owner (to == from) is a successful no-op and
// skips the consent check. The recovery mandate survives the move.
func (s *Service) Recover(ctx context.Context, caller, from, to domain.Address, deadline int64, envelope []byte) (*models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Recover")
	defer span.End()
	start := time.Now()

	identity, err := s.store.FindByOwner(ctx, from)
	if err != nil {
		return nil, s.reject(ctx, "recover", wrapRegistryErr(err))
	}
	if !identity.IsRecoveredBy(caller) {
		return nil, s.reject(ctx, "recover",
			dErrors.New(dErrors.CodeUnauthorized, "caller does not hold the recovery mandate for this id"))
	}

	if to == from {
		return identity, nil
	}

	if err := s.requireUnregistered(ctx, to); err != nil {
		return nil, s.reject(ctx, "recover", err)
	}
	if err := s.verifier.Verify(ctx, to, signature.RecoverConsent(identity.ID, to, deadline), envelope); err != nil {
		return nil, s.reject(ctx, "recover", wrapRegistryErr(err))
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.Execute(ctx, identity.ID,
		func(i *models.Identity) error {
			// Re-assert the full authorization chain inside the atomic step:
			// both the owner and the recovery mandate may have changed since
			// the checks above, and the consent binds the old state.
			if i.Owner != from {
				return dErrors.New(dErrors.CodeNotRegistered, "address no longer owns this id")
			}
			if !i.IsRecoveredBy(caller) {
				return dErrors.New(dErrors.CodeUnauthorized, "caller does not hold the recovery mandate for this id")
			}
			return i.CanReassignTo(to)
		},
		func(i *models.Identity) {
			i.ApplyReassignment(to, now)
		},
	)
	if err != nil {
		return nil, s.reject(ctx, "recover", wrapRegistryErr(err))
	}

	s.logAudit(ctx, audit.EventIdentityRecovered, updated.ID,
		"subject", to.String(),
		"previous_owner", from.String(),
		"recovered_by", caller.String())
	s.metrics.IncrementOwnershipChange("recover")
	s.metrics.ObserveOperation("recover", start)
	return updated, nil
}
