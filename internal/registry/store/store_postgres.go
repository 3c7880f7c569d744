package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"idregistry/internal/registry/models"
	"idregistry/pkg/domain"
	"idregistry/pkg/platform/sentinel"
)

// Postgres is the production identity store.
//
// The allocation counter lives in its own single-row table so Allocate can
// serialize on a row update instead of a table scan, and so the monotonic
// high-water mark survives even if ids were ever archived out of the main
// table. Owner uniqueness is a unique index; the store translates the driver's
// unique-violation error into sentinel.ErrConflict.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Seed inserts the counter row if none exists. Safe to call on every start.
func (s *Postgres) Seed(ctx context.Context) error {
	query := `
		INSERT INTO registry_counter (id, value)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("seed registry counter: %w", err)
	}
	return nil
}

func (s *Postgres) Allocate(ctx context.Context, owner, recovery domain.Address, now time.Time) (*models.Identity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin allocate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// The counter row update serializes concurrent allocations.
	var next int64
	err = tx.QueryRowContext(ctx, `
		UPDATE registry_counter
		SET value = value + 1
		WHERE id = 1
		RETURNING value
	`).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registry counter row missing: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("advance registry counter: %w", err)
	}

	identity, err := models.NewIdentity(domain.IdentityID(next), owner, recovery, now)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO identities (id, owner, recovery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, int64(identity.ID), identity.Owner.String(), identity.Recovery.String(), identity.CreatedAt, identity.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("owner %s already holds an id: %w", owner, sentinel.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit allocate: %w", err)
	}
	return identity, nil
}

func (s *Postgres) FindByOwner(ctx context.Context, owner domain.Address) (*models.Identity, error) {
	query := `
		SELECT id, owner, recovery, created_at, updated_at
		FROM identities
		WHERE owner = $1
	`
	return scanIdentity(s.db.QueryRowContext(ctx, query, owner.String()))
}

func (s *Postgres) FindByID(ctx context.Context, identityID domain.IdentityID) (*models.Identity, error) {
	query := `
		SELECT id, owner, recovery, created_at, updated_at
		FROM identities
		WHERE id = $1
	`
	return scanIdentity(s.db.QueryRowContext(ctx, query, int64(identityID)))
}

func (s *Postgres) Counter(ctx context.Context) (uint64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM registry_counter WHERE id = 1`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("registry counter row missing: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("read registry counter: %w", err)
	}
	return uint64(value), nil
}

// Execute loads the identity FOR UPDATE, validates, mutates, and writes back
// in one transaction. The unique owner index turns a racing reassignment to
// an already-registered owner into sentinel.ErrConflict.
func (s *Postgres) Execute(ctx context.Context, identityID domain.IdentityID, validate func(*models.Identity) error, mutate func(*models.Identity)) (*models.Identity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin execute: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		SELECT id, owner, recovery, created_at, updated_at
		FROM identities
		WHERE id = $1
		FOR UPDATE
	`
	identity, err := scanIdentity(tx.QueryRowContext(ctx, query, int64(identityID)))
	if err != nil {
		return nil, err
	}

	if err := validate(identity); err != nil {
		return nil, err
	}
	mutate(identity)

	_, err = tx.ExecContext(ctx, `
		UPDATE identities
		SET owner = $2, recovery = $3, updated_at = $4
		WHERE id = $1
	`, int64(identity.ID), identity.Owner.String(), identity.Recovery.String(), identity.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("owner %s already holds an id: %w", identity.Owner, sentinel.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit execute: %w", err)
	}
	return identity, nil
}

type identityRow interface {
	Scan(dest ...any) error
}

func scanIdentity(row identityRow) (*models.Identity, error) {
	var (
		rawID    int64
		owner    string
		recovery string
		created  time.Time
		updated  time.Time
	)
	err := row.Scan(&rawID, &owner, &recovery, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	return &models.Identity{
		ID:        domain.IdentityID(rawID),
		Owner:     domain.Address(owner),
		Recovery:  domain.Address(recovery),
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
