package keys

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idregistry/internal/signature"
	dErrors "idregistry/pkg/domain-errors"
)

// =============================================================================
// Key Derivation Tests
// =============================================================================
// Justification for unit tests: the mnemonic is a participant's only backup.
// If derivation ever stops being deterministic, or derived keys stop matching
// the consent verifier, recovery from backup silently breaks.

type KeysSuite struct {
	suite.Suite
}

func TestKeysSuite(t *testing.T) {
	suite.Run(t, new(KeysSuite))
}

func (s *KeysSuite) TestDeriveIsDeterministic() {
	mnemonic, err := NewMnemonic()
	s.Require().NoError(err)

	priv1, addr1, err := Derive(mnemonic)
	s.Require().NoError(err)
	priv2, addr2, err := Derive(mnemonic)
	s.Require().NoError(err)

	s.Equal(priv1, priv2, "same mnemonic must derive the same key")
	s.Equal(addr1, addr2)
	s.False(addr1.IsZero())
}

func (s *KeysSuite) TestDeriveToleratesWhitespace() {
	mnemonic, err := NewMnemonic()
	s.Require().NoError(err)

	_, want, err := Derive(mnemonic)
	s.Require().NoError(err)
	_, got, err := Derive("  " + mnemonic + "\n")
	s.Require().NoError(err)

	s.Equal(want, got)
}

func (s *KeysSuite) TestDistinctMnemonicsDistinctAddresses() {
	m1, err := NewMnemonic()
	s.Require().NoError(err)
	m2, err := NewMnemonic()
	s.Require().NoError(err)
	s.NotEqual(m1, m2)

	_, addr1, err := Derive(m1)
	s.Require().NoError(err)
	_, addr2, err := Derive(m2)
	s.Require().NoError(err)

	s.NotEqual(addr1, addr2)
}

func (s *KeysSuite) TestInvalidMnemonicRejected() {
	_, _, err := Derive("horse battery staple")
	s.Require().Error(err)
	s.Equal(dErrors.CodeInvalidInput, dErrors.CodeOf(err))

	_, _, err = Derive("")
	s.Require().Error(err)
}

func (s *KeysSuite) TestDerivedKeySignsVerifiableConsents() {
	mnemonic, err := NewMnemonic()
	s.Require().NoError(err)
	priv, addr, err := Derive(mnemonic)
	s.Require().NoError(err)

	consent := signature.TransferConsent(42, addr, time.Now().Add(time.Hour).Unix())
	envelope, err := signature.Sign(priv, consent)
	s.Require().NoError(err)

	verifier := signature.NewVerifier()
	s.NoError(verifier.Verify(context.Background(), addr, consent, envelope),
		"a derived key must produce envelopes the registry accepts")
}

func (s *KeysSuite) TestKeySize() {
	mnemonic, err := NewMnemonic()
	s.Require().NoError(err)
	priv, _, err := Derive(mnemonic)
	s.Require().NoError(err)

	s.Len(priv, ed25519.PrivateKeySize)
}
