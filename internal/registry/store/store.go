package store

import (
	"context"
	"time"

	"idregistry/internal/registry/models"
	"idregistry/pkg/domain"
)

// Store persists allocated identities and the allocation counter.
//
// Contract:
//   - Allocate increments the counter and binds the new id to owner. Fails
//     with sentinel.ErrConflict when the owner already holds an id. Ids are
//     handed out strictly in sequence and never reused.
//   - FindByOwner and FindByID return sentinel.ErrNotFound on a miss.
//   - Execute loads one identity, runs validate then mutate, and persists the
//     result atomically. Owner uniqueness is enforced inside the same atomic
//     step, so a reassignment colliding with an existing owner fails with
//     sentinel.ErrConflict and leaves state untouched.
//   - Counter reports the high-water mark of allocated ids; zero means no id
//     was ever allocated.
//
// Stores are pure I/O. Precondition ordering and error translation belong to
// the service layer.
type Store interface {
	Allocate(ctx context.Context, owner, recovery domain.Address, now time.Time) (*models.Identity, error)
	FindByOwner(ctx context.Context, owner domain.Address) (*models.Identity, error)
	FindByID(ctx context.Context, identityID domain.IdentityID) (*models.Identity, error)
	Counter(ctx context.Context) (uint64, error)
	Execute(ctx context.Context, identityID domain.IdentityID, validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error)
}
