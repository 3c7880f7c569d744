package domain

import dErrors "idregistry/pkg/domain-errors"

// ConsentAction is a domain value that identifies which registry operation a
// signed consent authorizes.
// Invariant: the value must be one of the supported actions.
//
// Usage: construct via ParseConsentAction at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ConsentAction string

// Supported consent actions. Each action has its own domain-separated digest
// so a signature for one can never authorize another.
const (
	ConsentActionRegister ConsentAction = "register"
	ConsentActionTransfer ConsentAction = "transfer"
	ConsentActionRecover  ConsentAction = "recover"
)

// validConsentActions is the single source of truth for valid consent actions.
var validConsentActions = map[ConsentAction]bool{
	ConsentActionRegister: true,
	ConsentActionTransfer: true,
	ConsentActionRecover:  true,
}

// ParseConsentAction constructs a ConsentAction from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParseConsentAction(s string) (ConsentAction, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "action cannot be empty")
	}
	a := ConsentAction(s)
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid action")
	}
	return a, nil
}

// IsValid checks if the consent action is one of the supported enum values.
func (a ConsentAction) IsValid() bool {
	return validConsentActions[a]
}

// String returns the string representation of the action.
func (a ConsentAction) String() string {
	return string(a)
}
