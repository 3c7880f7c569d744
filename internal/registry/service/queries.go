package service

import (
	"context"

	"idregistry/internal/registry/models"
	"idregistry/pkg/domain"
)

// IdentityOf returns the identity held by an address, or NotRegistered.
func (s *Service) IdentityOf(ctx context.Context, owner domain.Address) (*models.Identity, error) {
	identity, err := s.store.FindByOwner(ctx, owner)
	if err != nil {
		return nil, wrapRegistryErr(err)
	}
	return identity, nil
}

// IdentityByID returns the identity with the given id, or NotRegistered if it
// was never allocated.
func (s *Service) IdentityByID(ctx context.Context, identityID domain.IdentityID) (*models.Identity, error) {
	identity, err := s.store.FindByID(ctx, identityID)
	if err != nil {
		return nil, wrapRegistryErr(err)
	}
	return identity, nil
}

// RecoveryOf returns the recovery address bound to an id. The zero address
// means recovery is disabled for that id.
func (s *Service) RecoveryOf(ctx context.Context, identityID domain.IdentityID) (domain.Address, error) {
	identity, err := s.IdentityByID(ctx, identityID)
	if err != nil {
		return domain.ZeroAddress, err
	}
	return identity.Recovery, nil
}

// Counter returns the high-water mark of allocated ids. It equals the total
// number of ids ever allocated, since ids are dense and never reused.
func (s *Service) Counter(ctx context.Context) (uint64, error) {
	counter, err := s.store.Counter(ctx)
	if err != nil {
		return 0, wrapRegistryErr(err)
	}
	return counter, nil
}
