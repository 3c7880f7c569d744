package domain

import (
	"crypto/ed25519"
	"strings"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"

	dErrors "idregistry/pkg/domain-errors"
)

// Address is a domain primitive identifying a registry participant. The
// canonical form is "id1" followed by the base58 encoding of the BLAKE2b-256
// hash of the participant's Ed25519 public key.
//
// Invariant: a non-zero Address always round-trips through ParseAddress.
// The zero value represents "no address" (unset recovery, unregistered).
//
// Usage: construct via ParseAddress at trust boundaries or DeriveAddress from
// a verified public key; direct casting bypasses validation.
type Address string

// ZeroAddress is the absent address. It never owns an identity and is never
// a valid caller.
const ZeroAddress Address = ""

const (
	addressPrefix   = "id1"
	addressHashSize = 32

	// base58 of 32 bytes is at most 44 characters.
	maxAddressLen = len(addressPrefix) + 44
)

// DeriveAddress computes the registry address controlled by an Ed25519 key.
func DeriveAddress(pub ed25519.PublicKey) (Address, error) {
	if len(pub) != ed25519.PublicKeySize {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "invalid public key size")
	}
	h := blake2b.Sum256(pub)
	return Address(addressPrefix + base58.Encode(h[:])), nil
}

// ParseAddress constructs an Address from external input.
//
// Usage: call from handlers/adapters when parsing requests.
//
// Errors: returns CodeInvalidInput when the value is empty, has the wrong
// prefix, is not valid base58, or does not decode to a 32-byte hash.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if len(s) > maxAddressLen {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address too long")
	}
	if !strings.HasPrefix(s, addressPrefix) {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "invalid address prefix")
	}
	raw, err := base58.Decode(s[len(addressPrefix):])
	if err != nil {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "invalid address encoding")
	}
	if len(raw) != addressHashSize {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "invalid address length")
	}
	return Address(s), nil
}

// ParseOptionalAddress is ParseAddress but maps the empty string to
// ZeroAddress. Used for fields where absence is meaningful, such as a
// disabled recovery address.
func ParseOptionalAddress(s string) (Address, error) {
	if s == "" {
		return ZeroAddress, nil
	}
	return ParseAddress(s)
}

// String returns the canonical string form.
func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is absent.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}
