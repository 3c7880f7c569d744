package service

import (
	"context"
	"time"

	"idregistry/internal/registry/models"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/platform/audit"
	"idregistry/pkg/requestcontext"
)

// ChangeRecoveryAddress replaces the recovery address on the caller's id.
// Passing the zero address disables recovery. No counterparty consent is
// needed: the caller proves control by being the current owner.
func (s *Service) ChangeRecoveryAddress(ctx context.Context, caller, recovery domain.Address) (*models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "registry.ChangeRecoveryAddress")
	defer span.End()
	start := time.Now()

	identity, err := s.store.FindByOwner(ctx, caller)
	if err != nil {
		return nil, s.reject(ctx, "change_recovery", wrapRegistryErr(err))
	}

	now := requestcontext.Now(ctx)
	updated, err := s.store.Execute(ctx, identity.ID,
		func(i *models.Identity) error {
			if i.Owner != caller {
				return dErrors.New(dErrors.CodeNotRegistered, "caller no longer owns this id")
			}
			return nil
		},
		func(i *models.Identity) {
			i.ApplyRecoveryChange(recovery, now)
		},
	)
	if err != nil {
		return nil, s.reject(ctx, "change_recovery", wrapRegistryErr(err))
	}

	s.logAudit(ctx, audit.EventRecoveryChanged, updated.ID,
		"subject", recovery.String())
	s.metrics.IncrementRecoveryChange()
	s.metrics.ObserveOperation("change_recovery", start)
	return updated, nil
}
