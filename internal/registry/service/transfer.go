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

// Transfer moves the caller's id to a consenting recipient.
//
// Check order: the caller must hold an id, the recipient must not, and the
// recipient must have signed a consent binding this exact id and recipient
// before the deadline. A self-transfer is a successful no-op and skips the
// consent check, since the recipient already ends up owning the id.
func (s *Service) Transfer(ctx context.Context, caller, to domain.Address, deadline int64, envelope []byte) (*models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Transfer")
	defer span.End()
	start := time.Now()

	identity, err := s.store.FindByOwner(ctx, caller)
	if err != nil {
		return nil, s.reject(ctx, "transfer", wrapRegistryErr(err))
	}

	if to == caller {
		return identity, nil
	}

	if err := s.requireUnregistered(ctx, to); err != nil {
		return nil, s.reject(ctx, "transfer", err)
	}
	if err := s.verifier.Verify(ctx, to, signature.TransferConsent(identity.ID, to, deadline), envelope); err != nil {
		return nil, s.reject(ctx, "transfer", wrapRegistryErr(err))
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.Execute(ctx, identity.ID,
		func(i *models.Identity) error {
			// Re-assert ownership inside the store's atomic step: the id may
			// have moved since the lookup above, and a consent signed for the
			// old state must not apply to the new one.
			if i.Owner != caller {
				return dErrors.New(dErrors.CodeNotRegistered, "caller no longer owns this id")
			}
			return i.CanReassignTo(to)
		},
		func(i *models.Identity) {
			i.ApplyReassignment(to, now)
		},
	)
	if err != nil {
		return nil, s.reject(ctx, "transfer", wrapRegistryErr(err))
	}

	s.logAudit(ctx, audit.EventIdentityTransferred, updated.ID,
		"subject", to.String(),
		"previous_owner", caller.String())
	s.metrics.IncrementOwnershipChange("transfer")
	s.metrics.ObserveOperation("transfer", start)
	return updated, nil
}
