// Package gate holds the registry's allocation gates: the trusted-only
// bootstrap gate and the administrative pause gate.
package gate

import (
	"time"

	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

// State is the aggregate for both allocation gates.
//
// Invariants:
//   - TrustedOnly starts true and transitions true→false exactly once;
//     the transition is permanent.
//   - TrustedCaller is only consulted while TrustedOnly is true.
//   - Paused is freely settable in either direction by an administrator.
//
// Admin identity is enforced at the transport layer; this package only
// stores and enforces the flags themselves.
type State struct {
	TrustedOnly   bool           `json:"trusted_only"`
	TrustedCaller domain.Address `json:"trusted_caller"`
	Paused        bool           `json:"paused"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewState returns the bootstrap gate state: trusted-only registration, not
// paused, no trusted caller designated yet.
func NewState(now time.Time) *State {
	return &State{TrustedOnly: true, UpdatedAt: now}
}

// RequireCanAllocate enforces the trusted-only gate for an allocation attempt.
// While trusted-only is active, only the designated trusted caller may
// allocate; once open, any caller may.
func (s *State) RequireCanAllocate(caller domain.Address) error {
	if !s.TrustedOnly {
		return nil
	}
	if s.TrustedCaller.IsZero() || caller != s.TrustedCaller {
		return dErrors.New(dErrors.CodeUnauthorized, "registration is restricted to the trusted caller")
	}
	return nil
}

// RequireNotPaused enforces the pause gate for an allocation attempt.
func (s *State) RequireNotPaused() error {
	if s.Paused {
		return dErrors.New(dErrors.CodePaused, "registrations are paused")
	}
	return nil
}

// CanSetTrustedCaller checks that the nominated trusted caller is valid.
func (s *State) CanSetTrustedCaller(addr domain.Address) error {
	if addr.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "trusted caller cannot be the zero address")
	}
	return nil
}

// ApplySetTrustedCaller designates the trusted caller.
// Call CanSetTrustedCaller first to validate the transition.
func (s *State) ApplySetTrustedCaller(addr domain.Address, now time.Time) {
	s.TrustedCaller = addr
	s.UpdatedAt = now
}

// CanDisableTrustedOnly checks the one-way transition to open registration.
// Returns an error if registration is already open.
func (s *State) CanDisableTrustedOnly() error {
	if !s.TrustedOnly {
		return dErrors.New(dErrors.CodeAlreadyDisabled, "trusted-only registration is already disabled")
	}
	return nil
}

// ApplyDisableTrustedOnly permanently opens self-registration.
// Call CanDisableTrustedOnly first to validate the transition.
func (s *State) ApplyDisableTrustedOnly(now time.Time) {
	s.TrustedOnly = false
	s.UpdatedAt = now
}

// ApplyPause blocks new allocations. Idempotent.
func (s *State) ApplyPause(now time.Time) {
	s.Paused = true
	s.UpdatedAt = now
}

// ApplyUnpause unblocks allocations. Idempotent.
func (s *State) ApplyUnpause(now time.Time) {
	s.Paused = false
	s.UpdatedAt = now
}
