// Package recoveryproxy implements the standing recovery service: a proxy
// whose registry address participants set as their recovery address. Its
// controller can then forward recoveries through the registry core without
// the participants ever sharing key material with it. Control of the proxy
// itself moves by a two-phase nominate/accept handoff.
package recoveryproxy

import (
	"time"

	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

// State is the proxy's controller aggregate.
//
// Invariants:
//   - Controller is the only address allowed to forward recoveries or
//     nominate a successor.
//   - A pending nomination grants nothing until the nominee accepts it.
//   - Accepting promotes the nominee and clears the pending slot.
type State struct {
	Controller        domain.Address `json:"controller"`
	PendingController domain.Address `json:"pending_controller"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// NewState returns the initial proxy state under its first controller.
func NewState(controller domain.Address, now time.Time) *State {
	return &State{Controller: controller, UpdatedAt: now}
}

// RequireController enforces that the caller currently controls the proxy.
func (s *State) RequireController(caller domain.Address) error {
	if s.Controller.IsZero() || caller != s.Controller {
		return dErrors.New(dErrors.CodeUnauthorized, "caller does not control the recovery proxy")
	}
	return nil
}

// CanAccept checks that the caller is the nominated controller.
func (s *State) CanAccept(caller domain.Address) error {
	if s.PendingController.IsZero() || caller != s.PendingController {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the nominated controller")
	}
	return nil
}

// ApplyNomination records the pending controller. Nominating again replaces
// the standing nomination; the zero address withdraws it.
func (s *State) ApplyNomination(nominee domain.Address, now time.Time) {
	s.PendingController = nominee
	s.UpdatedAt = now
}

// ApplyAccept promotes the pending controller and clears the pending slot.
// Call CanAccept first to validate the transition.
func (s *State) ApplyAccept(now time.Time) {
	s.Controller = s.PendingController
	s.PendingController = domain.ZeroAddress
	s.UpdatedAt = now
}
