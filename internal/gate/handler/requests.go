package handler

import (
	"strings"

	registryv1 "idregistry/contracts/registry"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

// TrustedCallerRequest is the HTTP request body for POST /v1/admin/trusted-caller.
type TrustedCallerRequest struct {
	registryv1.TrustedCallerRequest

	// Parsed values (populated by Validate)
	parsedAddress domain.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *TrustedCallerRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Address = strings.TrimSpace(r.Address)
	if r.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}
	addr, err := domain.ParseAddress(r.Address)
	if err != nil {
		return err
	}
	r.parsedAddress = addr

	return nil
}

// ParsedAddress returns the validated trusted caller address.
func (r *TrustedCallerRequest) ParsedAddress() domain.Address {
	return r.parsedAddress
}
