package handler

import (
	"encoding/base64"
	"strings"

	registryv1 "idregistry/contracts/registry"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

// decodeSignature maps a base64 signature field to envelope bytes. An
// undecodable value becomes an empty envelope: moves that never check the
// signature still short-circuit, everything else fails verification.
func decodeSignature(s string) []byte {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return raw
}

// RegisterRequest is the HTTP request body for POST /v1/identities.
type RegisterRequest struct {
	registryv1.RegisterRequest

	// Parsed values (populated by Validate)
	parsedRecovery domain.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Recovery = strings.TrimSpace(r.Recovery)
	recovery, err := domain.ParseOptionalAddress(r.Recovery)
	if err != nil {
		return err
	}
	r.parsedRecovery = recovery

	return nil
}

// ParsedRecovery returns the validated recovery address.
func (r *RegisterRequest) ParsedRecovery() domain.Address {
	return r.parsedRecovery
}

// RegisterForRequest is the HTTP request body for POST /v1/identities/register-for.
type RegisterForRequest struct {
	registryv1.RegisterForRequest

	// Parsed values (populated by Validate)
	parsedTo       domain.Address
	parsedRecovery domain.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterForRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.To = strings.TrimSpace(r.To)
	if r.To == "" {
		return dErrors.New(dErrors.CodeValidation, "to is required")
	}
	to, err := domain.ParseAddress(r.To)
	if err != nil {
		return err
	}
	r.parsedTo = to

	r.Recovery = strings.TrimSpace(r.Recovery)
	recovery, err := domain.ParseOptionalAddress(r.Recovery)
	if err != nil {
		return err
	}
	r.parsedRecovery = recovery

	return nil
}

// ParsedTo returns the validated recipient address.
func (r *RegisterForRequest) ParsedTo() domain.Address {
	return r.parsedTo
}

// ParsedRecovery returns the validated recovery address.
func (r *RegisterForRequest) ParsedRecovery() domain.Address {
	return r.parsedRecovery
}

// ParsedSignature returns the consent envelope bytes.
func (r *RegisterForRequest) ParsedSignature() []byte {
	return decodeSignature(r.Signature)
}

// TransferRequest is the HTTP request body for POST /v1/identities/transfer.
type TransferRequest struct {
	registryv1.TransferRequest

	// Parsed values (populated by Validate)
	parsedTo domain.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.To = strings.TrimSpace(r.To)
	if r.To == "" {
		return dErrors.New(dErrors.CodeValidation, "to is required")
	}
	to, err := domain.ParseAddress(r.To)
	if err != nil {
		return err
	}
	r.parsedTo = to

	return nil
}

// ParsedTo returns the validated recipient address.
func (r *TransferRequest) ParsedTo() domain.Address {
	return r.parsedTo
}

// ParsedSignature returns the consent envelope bytes.
func (r *TransferRequest) ParsedSignature() []byte {
	return decodeSignature(r.Signature)
}

// RecoverRequest is the HTTP request body for POST /v1/identities/recover.
type RecoverRequest struct {
	registryv1.RecoverRequest

	// Parsed values (populated by Validate)
	parsedFrom domain.Address
	parsedTo   domain.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RecoverRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.From = strings.TrimSpace(r.From)
	if r.From == "" {
		return dErrors.New(dErrors.CodeValidation, "from is required")
	}
	from, err := domain.ParseAddress(r.From)
	if err != nil {
		return err
	}
	r.parsedFrom = from

	r.To = strings.TrimSpace(r.To)
	if r.To == "" {
		return dErrors.New(dErrors.CodeValidation, "to is required")
	}
	to, err := domain.ParseAddress(r.To)
	if err != nil {
		return err
	}
	r.parsedTo = to

	return nil
}

// ParsedFrom returns the validated current owner address.
func (r *RecoverRequest) ParsedFrom() domain.Address {
	return r.parsedFrom
}

// ParsedTo returns the validated recipient address.
func (r *RecoverRequest) ParsedTo() domain.Address {
	return r.parsedTo
}

// ParsedSignature returns the consent envelope bytes.
func (r *RecoverRequest) ParsedSignature() []byte {
	return decodeSignature(r.Signature)
}

// SetRecoveryRequest is the HTTP request body for PUT /v1/identities/recovery.
type SetRecoveryRequest struct {
	registryv1.SetRecoveryRequest

	// Parsed values (populated by Validate)
	parsedRecovery domain.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SetRecoveryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// An empty recovery disables recovery for the identity.
	r.Recovery = strings.TrimSpace(r.Recovery)
	recovery, err := domain.ParseOptionalAddress(r.Recovery)
	if err != nil {
		return err
	}
	r.parsedRecovery = recovery

	return nil
}

// ParsedRecovery returns the validated recovery address.
func (r *SetRecoveryRequest) ParsedRecovery() domain.Address {
	return r.parsedRecovery
}
