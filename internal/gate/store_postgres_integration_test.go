//go:build integration

package gate_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idregistry/internal/gate"
	"idregistry/pkg/domain"
	dErrors "idregistry/pkg/domain-errors"
	"idregistry/pkg/testutil/containers"
)

type PostgresGateStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *gate.PostgresStore
}

func TestPostgresGateStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresGateStoreSuite))
}

func (s *PostgresGateStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = gate.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresGateStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "gate_state"))
	s.Require().NoError(s.store.Seed(ctx, time.Now()))
}

func (s *PostgresGateStoreSuite) TestSeedIsIdempotent() {
	ctx := context.Background()

	// Flip state away from the bootstrap defaults, then seed again.
	_, err := s.store.Execute(ctx,
		func(st *gate.State) error { return st.CanDisableTrustedOnly() },
		func(st *gate.State) { st.ApplyDisableTrustedOnly(time.Now()) },
	)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Seed(ctx, time.Now()))

	state, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.False(state.TrustedOnly, "seed must not clobber existing state")
}

func (s *PostgresGateStoreSuite) TestStateSurvivesReload() {
	ctx := context.Background()
	trusted := domain.Address("id1Trusted")

	_, err := s.store.Execute(ctx,
		func(st *gate.State) error { return st.CanSetTrustedCaller(trusted) },
		func(st *gate.State) { st.ApplySetTrustedCaller(trusted, time.Now()) },
	)
	s.Require().NoError(err)

	// A fresh store over the same database simulates a restart.
	reopened := gate.NewPostgresStore(s.postgres.DB)
	state, err := reopened.Load(ctx)
	s.Require().NoError(err)
	s.Equal(trusted, state.TrustedCaller)
	s.True(state.TrustedOnly)
}

// TestConcurrentDisable verifies the row lock serializes the one-way
// transition: exactly one caller wins, the rest observe already-disabled.
func (s *PostgresGateStoreSuite) TestConcurrentDisable() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var succeeded, alreadyDisabled atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx,
				func(st *gate.State) error { return st.CanDisableTrustedOnly() },
				func(st *gate.State) { st.ApplyDisableTrustedOnly(time.Now()) },
			)
			switch {
			case err == nil:
				succeeded.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadyDisabled):
				alreadyDisabled.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(1), succeeded.Load(), "exactly one disable should win")
	s.Equal(int32(goroutines-1), alreadyDisabled.Load())
}

func (s *PostgresGateStoreSuite) TestValidationFailureRollsBack() {
	ctx := context.Background()

	_, err := s.store.Execute(ctx,
		func(st *gate.State) error { return st.CanSetTrustedCaller(domain.ZeroAddress) },
		func(st *gate.State) { st.ApplySetTrustedCaller(domain.ZeroAddress, time.Now()) },
	)
	s.Require().Error(err)

	state, loadErr := s.store.Load(ctx)
	s.Require().NoError(loadErr)
	s.True(state.TrustedCaller.IsZero())
}
