// Package store is the Postgres implementation of the engine's store
// contract, over pgx. Row versioning backs the engine's optimistic
// writes; a gist exclusion constraint on slot ranges backs the overlap
// invariant against races the app-level check cannot see.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"slot-booking-api/internal/scheduler"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every query
// method works inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	queries
}

type queries struct {
	db DBTX
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, queries: queries{db: pool}}
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(q scheduler.Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var _ scheduler.Store = (*Store)(nil)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return scheduler.ErrNotFound
	}
	return err
}

// isExclusionViolation reports whether err is the slot-range exclusion
// constraint catching an overlap race.
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
