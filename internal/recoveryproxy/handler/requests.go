package handler

import (
	"encoding/base64"
	"strings"

	registryv1 "idregistry/contracts/registry"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

// decodeSignature maps a base64 signature field to envelope bytes. An
// undecodable value becomes an empty envelope and fails verification in the
// registry core.
func decodeSignature(s string) []byte {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return raw
}

// RecoverRequest is the HTTP request body for POST /v1/proxy/recover.
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

// NominateControllerRequest is the HTTP request body for
// POST /v1/proxy/controller/transfer.
type NominateControllerRequest struct {
	registryv1.NominateControllerRequest

	// Parsed values (populated by Validate)
	parsedNominee domain.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *NominateControllerRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// An empty nominee withdraws a standing nomination.
	r.Nominee = strings.TrimSpace(r.Nominee)
	nominee, err := domain.ParseOptionalAddress(r.Nominee)
	if err != nil {
		return err
	}
	r.parsedNominee = nominee

	return nil
}

// ParsedNominee returns the validated nominee address.
func (r *NominateControllerRequest) ParsedNominee() domain.Address {
	return r.parsedNominee
}
