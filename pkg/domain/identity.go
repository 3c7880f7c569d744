package domain

import (
	"strconv"

	dErrors "idregistry/pkg/domain-errors"
)

// IdentityID is a permanent numeric identifier allocated by the registry.
// IDs start at 1 and are never reused; 0 is reserved and means "no identity".
type IdentityID uint64

// NoIdentity is the reserved zero identifier. It is never allocated and
// never has a recovery address.
const NoIdentity IdentityID = 0

// ParseIdentityID constructs an IdentityID from external input such as a URL
// path segment.
//
// Errors: returns CodeInvalidInput when the value is empty, non-numeric, or
// zero — the reserved id is not addressable from outside.
func ParseIdentityID(s string) (IdentityID, error) {
	if s == "" {
		return NoIdentity, dErrors.New(dErrors.CodeInvalidInput, "identity id cannot be empty")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return NoIdentity, dErrors.New(dErrors.CodeInvalidInput, "invalid identity id")
	}
	if n == 0 {
		return NoIdentity, dErrors.New(dErrors.CodeInvalidInput, "identity id 0 is reserved")
	}
	return IdentityID(n), nil
}

// IsNone reports whether the id is the reserved "no identity" value.
func (id IdentityID) IsNone() bool {
	return id == NoIdentity
}

// String returns the decimal form.
func (id IdentityID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
