package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trucking-dispatch-core/internal/ports/dispatchtx"
)

// Store is the PostgreSQL entity store.
type Store struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewStore creates a new Store. lockTimeout bounds every row lock wait inside WithTx;
// zero leaves the server default.
func NewStore(db *pgxpool.Pool, lockTimeout time.Duration) *Store {
	return &Store{db: db, lockTimeout: lockTimeout}
}

var _ dispatchtx.Runner = (*Store)(nil)

// WithTx opens a transaction and executes fn within it.
func (s *Store) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapf(err, "begin tx")
	}

	// отменяем в случае паники
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				panic(rbErr)
			}
			panic(p)
		}
	}()

	if s.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(&TxRepo{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapf(err, "commit tx")
	}
	return nil
}

// TxRepo is the entity store bound to one open transaction.
type TxRepo struct {
	tx pgx.Tx
}

var _ dispatchtx.Repository = (*TxRepo)(nil)
