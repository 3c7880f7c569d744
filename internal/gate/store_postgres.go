package gate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"idregistry/pkg/domain"
	"idregistry/pkg/platform/sentinel"
)

// PostgresStore persists gate state in a single guarded row. The one-way
// trusted-only transition must survive restarts, so this is the store used in
// production.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Seed inserts the bootstrap row if none exists. Safe to call on every start.
func (s *PostgresStore) Seed(ctx context.Context, now time.Time) error {
	query := `
		INSERT INTO gate_state (id, trusted_only, trusted_caller, paused, updated_at)
		VALUES (1, TRUE, '', FALSE, $1)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, now); err != nil {
		return fmt.Errorf("seed gate state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (State, error) {
	query := `
		SELECT trusted_only, trusted_caller, paused, updated_at
		FROM gate_state
		WHERE id = 1
	`
	return scanState(s.db.QueryRowContext(ctx, query))
}

// Execute loads the row FOR UPDATE, validates, mutates, and writes back in
// one transaction so concurrent admin calls serialize on the row lock.
func (s *PostgresStore) Execute(ctx context.Context, validate func(*State) error, mutate func(*State)) (State, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return State{}, fmt.Errorf("begin gate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		SELECT trusted_only, trusted_caller, paused, updated_at
		FROM gate_state
		WHERE id = 1
		FOR UPDATE
	`
	state, err := scanState(tx.QueryRowContext(ctx, query))
	if err != nil {
		return State{}, err
	}

	if err := validate(&state); err != nil {
		return State{}, err
	}
	mutate(&state)

	update := `
		UPDATE gate_state
		SET trusted_only = $1, trusted_caller = $2, paused = $3, updated_at = $4
		WHERE id = 1
	`
	if _, err := tx.ExecContext(ctx, update,
		state.TrustedOnly,
		state.TrustedCaller.String(),
		state.Paused,
		state.UpdatedAt,
	); err != nil {
		return State{}, fmt.Errorf("update gate state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return State{}, fmt.Errorf("commit gate tx: %w", err)
	}
	return state, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (State, error) {
	var (
		state         State
		trustedCaller string
	)
	err := row.Scan(&state.TrustedOnly, &trustedCaller, &state.Paused, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, fmt.Errorf("gate state row missing: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return State{}, fmt.Errorf("scan gate state: %w", err)
	}
	state.TrustedCaller = domain.Address(trustedCaller)
	return state, nil
}
