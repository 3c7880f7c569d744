package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"idregistry/internal/registry/models"
	"idregistry/pkg/domain"
	"idregistry/pkg/platform/sentinel"
)

// InMemory keeps identities in process memory. Used in tests and for
// single-node development setups.
type InMemory struct {
	mu      sync.RWMutex
	counter uint64
	byID    map[domain.IdentityID]models.Identity
	byOwner map[domain.Address]domain.IdentityID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[domain.IdentityID]models.Identity),
		byOwner: make(map[domain.Address]domain.IdentityID),
	}
}

func (s *InMemory) Allocate(_ context.Context, owner, recovery domain.Address, now time.Time) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byOwner[owner]; taken {
		return nil, fmt.Errorf("owner %s already holds an id: %w", owner, sentinel.ErrConflict)
	}

	next := domain.IdentityID(s.counter + 1)
	identity, err := models.NewIdentity(next, owner, recovery, now)
	if err != nil {
		return nil, err
	}

	s.counter++
	s.byID[identity.ID] = *identity
	s.byOwner[owner] = identity.ID
	return identity, nil
}

func (s *InMemory) FindByOwner(_ context.Context, owner domain.Address) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identityID, ok := s.byOwner[owner]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	identity := s.byID[identityID]
	return &identity, nil
}

func (s *InMemory) FindByID(_ context.Context, identityID domain.IdentityID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &identity, nil
}

func (s *InMemory) Counter(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter, nil
}

// Execute applies validate+mutate on a working copy and commits only on
// success, mirroring the transactional behavior of the Postgres store.
func (s *InMemory) Execute(_ context.Context, identityID domain.IdentityID, validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := current
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)

	// Owner uniqueness backstop, the in-memory twin of the unique index.
	if working.Owner != current.Owner {
		if existing, taken := s.byOwner[working.Owner]; taken && existing != identityID {
			return nil, fmt.Errorf("owner %s already holds an id: %w", working.Owner, sentinel.ErrConflict)
		}
		delete(s.byOwner, current.Owner)
		s.byOwner[working.Owner] = identityID
	}

	s.byID[identityID] = working
	return &working, nil
}
