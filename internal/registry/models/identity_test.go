package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
)

type IdentitySuite struct {
	suite.Suite
	now time.Time
}

func TestIdentitySuite(t *testing.T) {
	suite.Run(t, new(IdentitySuite))
}

func (s *IdentitySuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *IdentitySuite) TestNewIdentity() {
	owner := domain.Address("id1Owner")
	recovery := domain.Address("id1Recovery")

	s.Run("rejects zero id", func() {
		_, err := NewIdentity(domain.NoIdentity, owner, recovery, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects empty owner", func() {
		_, err := NewIdentity(domain.IdentityID(1), domain.ZeroAddress, recovery, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("allows empty recovery", func() {
		identity, err := NewIdentity(domain.IdentityID(1), owner, domain.ZeroAddress, s.now)
		s.Require().NoError(err)
		s.False(identity.HasRecovery())
	})

	s.Run("constructs with all fields", func() {
		identity, err := NewIdentity(domain.IdentityID(7), owner, recovery, s.now)
		s.Require().NoError(err)
		s.Equal(domain.IdentityID(7), identity.ID)
		s.Equal(owner, identity.Owner)
		s.Equal(recovery, identity.Recovery)
		s.Equal(s.now, identity.CreatedAt)
		s.Equal(s.now, identity.UpdatedAt)
	})
}

func (s *IdentitySuite) TestReassignment() {
	owner := domain.Address("id1Owner")
	recovery := domain.Address("id1Recovery")
	recipient := domain.Address("id1Recipient")

	s.Run("rejects empty recipient", func() {
		identity, err := NewIdentity(domain.IdentityID(1), owner, recovery, s.now)
		s.Require().NoError(err)

		err = identity.CanReassignTo(domain.ZeroAddress)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("moves owner and preserves recovery", func() {
		identity, err := NewIdentity(domain.IdentityID(1), owner, recovery, s.now)
		s.Require().NoError(err)

		later := s.now.Add(time.Hour)
		s.Require().NoError(identity.ReassignTo(recipient, later))

		s.Equal(recipient, identity.Owner)
		s.Equal(recovery, identity.Recovery, "recovery mandate must survive reassignment")
		s.Equal(later, identity.UpdatedAt)
		s.Equal(s.now, identity.CreatedAt)
	})
}

func (s *IdentitySuite) TestRecoveryChange() {
	owner := domain.Address("id1Owner")
	first := domain.Address("id1First")
	second := domain.Address("id1Second")

	identity, err := NewIdentity(domain.IdentityID(1), owner, first, s.now)
	s.Require().NoError(err)

	s.Run("replaces the recovery address", func() {
		identity.ApplyRecoveryChange(second, s.now.Add(time.Minute))
		s.Equal(second, identity.Recovery)
		s.True(identity.IsRecoveredBy(second))
		s.False(identity.IsRecoveredBy(first))
	})

	s.Run("zero address disables recovery", func() {
		identity.ApplyRecoveryChange(domain.ZeroAddress, s.now.Add(2*time.Minute))
		s.False(identity.HasRecovery())
		s.False(identity.IsRecoveredBy(domain.ZeroAddress), "empty address must never hold the mandate")
	})
}
