package recoveryproxy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"idregistry/pkg/domain"
	"idregistry/pkg/platform/sentinel"
)

// PostgresStore persists proxy controller state in a single guarded row.
// Control of the proxy must survive restarts, so this is the store used in
// production.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Seed inserts the initial controller row if none exists. Safe to call on
// every start: an existing row wins, so a completed handoff is never undone
// by a restart with stale configuration.
func (s *PostgresStore) Seed(ctx context.Context, controller domain.Address, now time.Time) error {
	query := `
		INSERT INTO proxy_state (id, controller, pending_controller, updated_at)
		VALUES (1, $1, '', $2)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, controller.String(), now); err != nil {
		return fmt.Errorf("seed proxy state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (State, error) {
	query := `
		SELECT controller, pending_controller, updated_at
		FROM proxy_state
		WHERE id = 1
	`
	return scanProxyState(s.db.QueryRowContext(ctx, query))
}

// Execute loads the row FOR UPDATE, validates, mutates, and writes back in
// one transaction so concurrent handoff calls serialize on the row lock.
func (s *PostgresStore) Execute(ctx context.Context, validate func(*State) error, mutate func(*State)) (State, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return State{}, fmt.Errorf("begin proxy tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		SELECT controller, pending_controller, updated_at
		FROM proxy_state
		WHERE id = 1
		FOR UPDATE
	`
	state, err := scanProxyState(tx.QueryRowContext(ctx, query))
	if err != nil {
		return State{}, err
	}

	if err := validate(&state); err != nil {
		return State{}, err
	}
	mutate(&state)

	update := `
		UPDATE proxy_state
		SET controller = $1, pending_controller = $2, updated_at = $3
		WHERE id = 1
	`
	if _, err := tx.ExecContext(ctx, update,
		state.Controller.String(),
		state.PendingController.String(),
		state.UpdatedAt,
	); err != nil {
		return State{}, fmt.Errorf("update proxy state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return State{}, fmt.Errorf("commit proxy tx: %w", err)
	}
	return state, nil
}

func scanProxyState(row rowScanner) (State, error) {
	var (
		state      State
		controller string
		pending    string
	)
	err := row.Scan(&controller, &pending, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, fmt.Errorf("proxy state row missing: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return State{}, fmt.Errorf("scan proxy state: %w", err)
	}
	state.Controller = domain.Address(controller)
	state.PendingController = domain.Address(pending)
	return state, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
