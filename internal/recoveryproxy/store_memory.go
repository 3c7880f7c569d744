package recoveryproxy

import (
	"context"
	"sync"
	"time"

	"idregistry/pkg/domain"
)

// InMemoryStore keeps proxy state in process. Used by unit tests and dev
// mode.
type InMemoryStore struct {
	mu    sync.RWMutex
	state State
}

// NewInMemoryStore seeds the proxy under its first controller.
func NewInMemoryStore(controller domain.Address) *InMemoryStore {
	return &InMemoryStore{state: *NewState(controller, time.Now())}
}

func (s *InMemoryStore) Load(_ context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

// Execute runs validate then mutate under the write lock so checks and the
// handoff they guard are atomic.
func (s *InMemoryStore) Execute(_ context.Context, validate func(*State) error, mutate func(*State)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state
	if err := validate(&working); err != nil {
		return State{}, err
	}
	mutate(&working)
	s.state = working
	return working, nil
}
