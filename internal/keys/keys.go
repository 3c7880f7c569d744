// Package keys derives registry signing keys from BIP-39 mnemonics. The
// mnemonic is the only thing a participant has to back up: the Ed25519 key
// and the address are re-derivable from it on any machine.
package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"io"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"

	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

// hkdfInfoSigning domain-separates the signing key from anything else ever
// derived from the same seed. Bump the version suffix when the derivation
// changes.
const hkdfInfoSigning = "idregistry/keys/signing/v1"

// NewMnemonic generates a fresh 24-word mnemonic from 256 bits of entropy.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// Derive expands a mnemonic into the signing key and the registry address it
// controls. Derivation is deterministic: the same mnemonic always yields the
// same key and address.
func Derive(mnemonic string) (ed25519.PrivateKey, domain.Address, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, domain.ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "invalid mnemonic")
	}

	seed := bip39.NewSeed(mnemonic, "")
	signingSeed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, []byte(hkdfInfoSigning)), signingSeed); err != nil {
		return nil, domain.ZeroAddress, err
	}

	priv := ed25519.NewKeyFromSeed(signingSeed)
	addr, err := domain.DeriveAddress(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, domain.ZeroAddress, err
	}
	return priv, addr, nil
}
