// Package registry defines the wire contract for the identity registry HTTP
// API. It is consumed by the server handlers and by client tooling, and is
// kept free of dependencies on either.
package registry

// Deadlines travel as Unix seconds (UTC) and signatures as standard base64 of
// the raw envelope bytes.

type RegisterRequest struct {
	Recovery string `json:"recovery,omitempty"`
}

type RegisterForRequest struct {
	To        string `json:"to"`
	Recovery  string `json:"recovery,omitempty"`
	Deadline  int64  `json:"deadline"`
	Signature string `json:"signature"`
}

type TransferRequest struct {
	To        string `json:"to"`
	Deadline  int64  `json:"deadline"`
	Signature string `json:"signature"`
}

type RecoverRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Deadline  int64  `json:"deadline"`
	Signature string `json:"signature"`
}

type SetRecoveryRequest struct {
	Recovery string `json:"recovery"`
}

type IdentityResponse struct {
	ID uint64 `json:"id"`
}

// OwnerResponse reports the identity held by an address. ID 0 means the
// address holds none.
type OwnerResponse struct {
	Address string `json:"address"`
	ID      uint64 `json:"id"`
}

// RecoveryResponse reports the recovery address of an identity. An empty
// recovery means recovery is disabled for that identity.
type RecoveryResponse struct {
	ID       uint64 `json:"id"`
	Recovery string `json:"recovery,omitempty"`
}

type StatusResponse struct {
	Counter       uint64 `json:"counter"`
	Paused        bool   `json:"paused"`
	TrustedOnly   bool   `json:"trusted_only"`
	TrustedCaller string `json:"trusted_caller,omitempty"`
}

type TrustedCallerRequest struct {
	Address string `json:"address"`
}

// NominateControllerRequest nominates the next controller of the recovery
// proxy. An empty nominee withdraws a standing nomination.
type NominateControllerRequest struct {
	Nominee string `json:"nominee,omitempty"`
}

// ControllerResponse reports the recovery proxy's registry address and its
// current and pending controllers.
type ControllerResponse struct {
	Address           string `json:"address"`
	Controller        string `json:"controller"`
	PendingController string `json:"pending_controller,omitempty"`
}

type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
