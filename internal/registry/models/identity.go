package models

import (
	"time"

	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

// Identity is the aggregate root for one allocated registry id.
//
// Invariants:
//   - ID is positive and assigned exactly once; ids are never reused or deleted
//   - Owner is a non-zero address, and no two identities share an owner
//   - Recovery may be the zero address, meaning recovery is disabled
//   - CreatedAt is immutable after allocation
//
// # Ownership Uniqueness
//
// The one-identity-per-owner rule is enforced in two layers: services check
// that a recipient is unregistered before a handoff so callers get the
// specific error, and stores back this with a unique index on owner so a
// racing handoff to the same recipient cannot slip through. Reassignment
// never touches the recovery address — the recovery party keeps its mandate
// across ownership changes until the owner explicitly replaces it.
type Identity struct {
	ID        domain.IdentityID `json:"id"`
	Owner     domain.Address    `json:"owner"`
	Recovery  domain.Address    `json:"recovery,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (i *Identity) HasRecovery() bool {
	return !i.Recovery.IsZero()
}

// IsRecoveredBy reports whether addr holds the recovery mandate for this id.
// The zero address never matches, so ids with recovery disabled cannot be
// recovered by callers presenting an empty address.
func (i *Identity) IsRecoveredBy(addr domain.Address) bool {
	return !i.Recovery.IsZero() && i.Recovery == addr
}

// CanReassignTo checks whether ownership may move to the given recipient.
// Use with ApplyReassignment in Execute callbacks.
func (i *Identity) CanReassignTo(to domain.Address) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "recipient address is required")
	}
	return nil
}

// ApplyReassignment moves ownership to the recipient. The recovery address is
// left as-is; transfer and recovery both preserve it.
// Call CanReassignTo first to validate the move.
func (i *Identity) ApplyReassignment(to domain.Address, now time.Time) {
	i.Owner = to
	i.UpdatedAt = now
}

// ReassignTo validates and applies an ownership move in one call.
// Prefer CanReassignTo + ApplyReassignment for Execute callback pattern.
func (i *Identity) ReassignTo(to domain.Address, now time.Time) error {
	if err := i.CanReassignTo(to); err != nil {
		return err
	}
	i.ApplyReassignment(to, now)
	return nil
}

// ApplyRecoveryChange replaces the recovery address. A zero address disables
// recovery for this id.
func (i *Identity) ApplyRecoveryChange(recovery domain.Address, now time.Time) {
	i.Recovery = recovery
	i.UpdatedAt = now
}

func NewIdentity(identityID domain.IdentityID, owner, recovery domain.Address, now time.Time) (*Identity, error) {
	if identityID.IsNone() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity id must be positive")
	}
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner address cannot be empty")
	}
	return &Identity{
		ID:        identityID,
		Owner:     owner,
		Recovery:  recovery,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
