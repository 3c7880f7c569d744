package gate

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps gate state in process. Used by unit tests and dev mode.
type InMemoryStore struct {
	mu    sync.RWMutex
	state State
}

// NewInMemoryStore seeds the bootstrap state: trusted-only, not paused.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{state: *NewState(time.Now())}
}

func (s *InMemoryStore) Load(_ context.Context) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

// Execute runs validate then mutate under the write lock so checks and the
// transition they guard are atomic.
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
