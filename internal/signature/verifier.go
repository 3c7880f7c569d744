package signature

import (
	"context"
	"crypto/ed25519"
	"time"

	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/requestcontext"
)

// Verifier checks consent envelopes. It is a pure check with no side effects;
// the current time comes from the request context so deadline behavior is
// testable.
type Verifier struct{}

// NewVerifier constructs a Verifier.
func NewVerifier() Verifier {
	return Verifier{}
}

// Verify succeeds only when the envelope was produced by the key behind
// `signer` over exactly this consent, and the request time is strictly before
// the consent deadline.
//
// Errors: CodeSignatureExpired when the deadline has elapsed,
// CodeInvalidSignature for a malformed envelope, a signer mismatch, or a
// failed signature check. The deadline is checked first so an expired consent
// reports as expired even if otherwise malformed.
func (Verifier) Verify(ctx context.Context, signer domain.Address, c Consent, envelope []byte) error {
	now := requestcontext.Now(ctx)
	if !now.Before(time.Unix(c.Deadline, 0)) {
		return dErrors.New(dErrors.CodeSignatureExpired, "consent deadline elapsed")
	}

	if len(envelope) != EnvelopeSize {
		return dErrors.New(dErrors.CodeInvalidSignature, "invalid signature envelope")
	}
	pub := ed25519.PublicKey(envelope[:ed25519.PublicKeySize])
	sig := envelope[ed25519.PublicKeySize:]

	derived, err := domain.DeriveAddress(pub)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidSignature, "invalid signing key")
	}
	if derived != signer {
		return dErrors.New(dErrors.CodeInvalidSignature, "signer mismatch")
	}

	digest := c.Digest()
	if !ed25519.Verify(pub, digest[:], sig) {
		return dErrors.New(dErrors.CodeInvalidSignature, "signature check failed")
	}
	return nil
}
