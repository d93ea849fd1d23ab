package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"trucking-dispatch-core/internal/config"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/repository"
)

var newPool = repository.NewPool

const (
	dbAttemptTimeout = 3 * time.Second
	dbMaxBackoff     = 10 * time.Second
)

// connectDbWithRetry dials postgres up to retries times. The pause starts at
// delay and doubles after every failure, capped at dbMaxBackoff.
func connectDbWithRetry(ctx context.Context, logger logx.Logger, db config.DB, retries int, delay time.Duration) (*pgxpool.Pool, error) {
	logger = logger.With(
		logx.String("db_host", db.Host),
		logx.String("db_name", db.Name),
	)

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, dbAttemptTimeout)
		pool, err := newPool(attemptCtx, db.DSN(), db.MaxConns)
		cancel()
		if err == nil {
			logger.Info("db connected", logx.Int("attempt", attempt))
			return pool, nil
		}
		lastErr = err
		logger.Warn("db connect failed",
			logx.Int("attempt", attempt),
			logx.Int("retries", retries),
			logx.Duration("next_in", delay),
			logx.Err(err),
		)
		if attempt == retries {
			break
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		delay = min(2*delay, dbMaxBackoff)
	}
	return nil, fmt.Errorf("db connect failed after %d attempts: %w", retries, lastErr)
}
