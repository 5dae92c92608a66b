// Package postgres implements store.Store on PostgreSQL through pgx. Inside WithinTx every
// user and ride read takes a row lock, and ride status changes are guarded by the expected status.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okadago/backend/internal/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool      *pgxpool.Pool
	retention int
}

func New(pool *pgxpool.Pool, retention int) *Store {
	if retention <= 0 {
		retention = store.DefaultActivityRetention
	}
	return &Store{pool: pool, retention: retention}
}

func (s *Store) Repos() store.Repos { return s.repos(s.pool, false) }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r store.Repos) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, s.repos(tx, true)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) repos(q querier, locking bool) store.Repos {
	return store.Repos{
		Users:        &userRepo{q: q, locking: locking},
		Rides:        &rideRepo{q: q, locking: locking},
		Transactions: &txRepo{q: q},
		Activity:     &activityRepo{q: q, retention: s.retention},
	}
}

func lockClause(locking bool) string {
	if locking {
		return " FOR UPDATE"
	}
	return ""
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func uniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
