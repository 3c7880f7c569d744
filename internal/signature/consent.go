// Package signature implements off-band consent for registry operations.
//
// A consent binds an action (register, transfer, recover), its typed
// parameters, and an expiry deadline into a domain-separated BLAKE2b-256
// digest signed with Ed25519. A signature is valid only against the exact
// current state it authorizes: transfer and recover consents embed the
// identity number being moved and the receiving address, so a consent
// captured before the identity was reassigned stops verifying afterwards.
package signature

import (
	"crypto/ed25519"
	"encoding/binary"
	"strconv"

	"golang.org/x/crypto/blake2b"

	"idregistry/pkg/domain"
)

// domainTag separates consent digests from any other signed payload in the
// wider ecosystem. Bump the version suffix when the encoding changes.
const domainTag = "idregistry/consent/v1"

// EnvelopeSize is the exact length of a signature blob: the signing public
// key followed by the Ed25519 signature. Ed25519 cannot recover the key from
// a signature, so the envelope carries it.
const EnvelopeSize = ed25519.PublicKeySize + ed25519.SignatureSize

// Consent is the structured message a counterparty signs. All fields
// participate in the digest; unused fields stay at their zero value so the
// encoding is uniform across actions.
type Consent struct {
	Action   domain.ConsentAction
	ID       domain.IdentityID // identity being moved; zero for register
	To       domain.Address    // receiving address
	Recovery domain.Address    // recovery address; set for register only
	Deadline int64             // Unix seconds; consent is valid strictly before this instant
}

// RegisterConsent authorizes allocating a new identity to `to` with the given
// recovery address. The identity number is not known at signing time, so it
// is not part of the message.
func RegisterConsent(to, recovery domain.Address, deadline int64) Consent {
	return Consent{Action: domain.ConsentActionRegister, To: to, Recovery: recovery, Deadline: deadline}
}

// TransferConsent authorizes receiving identity `id` at address `to`.
func TransferConsent(id domain.IdentityID, to domain.Address, deadline int64) Consent {
	return Consent{Action: domain.ConsentActionTransfer, ID: id, To: to, Deadline: deadline}
}

// RecoverConsent authorizes receiving identity `id` at address `to` through
// the recovery path.
func RecoverConsent(id domain.IdentityID, to domain.Address, deadline int64) Consent {
	return Consent{Action: domain.ConsentActionRecover, ID: id, To: to, Deadline: deadline}
}

// Digest computes the domain-separated BLAKE2b-256 digest of the consent.
// Fields are written in a fixed order with zero-byte separators; the deadline
// is appended as a big-endian uint64 so the encoding is unambiguous.
func (c Consent) Digest() [32]byte {
	var buf []byte
	buf = append(buf, domainTag...)
	buf = append(buf, 0x00)
	buf = append(buf, c.Action.String()...)
	buf = append(buf, 0x00)
	buf = append(buf, strconv.FormatUint(uint64(c.ID), 10)...)
	buf = append(buf, 0x00)
	buf = append(buf, c.To.String()...)
	buf = append(buf, 0x00)
	buf = append(buf, c.Recovery.String()...)
	buf = append(buf, 0x00)
	buf = binary.BigEndian.AppendUint64(buf, uint64(c.Deadline))
	return blake2b.Sum256(buf)
}
