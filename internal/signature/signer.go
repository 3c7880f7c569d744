package signature

import (
	"crypto/ed25519"

	dErrors "idregistry/pkg/domain-errors"
)

// Sign produces the signature envelope for a consent: the signer's public key
// followed by the Ed25519 signature over the consent digest. Used by client
// tooling and tests; the server only verifies.
func Sign(priv ed25519.PrivateKey, c Consent) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid private key size")
	}
	digest := c.Digest()
	envelope := make([]byte, 0, EnvelopeSize)
	envelope = append(envelope, priv.Public().(ed25519.PublicKey)...)
	envelope = append(envelope, ed25519.Sign(priv, digest[:])...)
	return envelope, nil
}
