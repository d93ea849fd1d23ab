// Package notify relays committed outbox notifications to the message broker.
package notify

import (
	"context"
	"fmt"
	"time"

	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/metrics"
)

// Relay defaults.
const (
	DefaultBatch       = 100
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 10
)

// Relay polls the outbox and publishes pending notifications in creation order.
// Delivery is at least once: a crash between publish and mark resends the row.
type Relay struct {
	outbox      Outbox
	pub         Publisher
	logger      logx.Logger
	metrics     *metrics.Dispatch
	batch       int
	interval    time.Duration
	maxAttempts int
	now         func() time.Time
}

// Option configures a Relay.
type Option func(*Relay)

// WithBatch sets how many rows one drain reads.
func WithBatch(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMaxAttempts sets after how many failed publishes a row is left alone.
func WithMaxAttempts(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithClock overrides the clock used for sent_at.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

// NewRelay creates a new Relay.
func NewRelay(outbox Outbox, pub Publisher, logger logx.Logger, m *metrics.Dispatch, opts ...Option) *Relay {
	if logger == nil {
		logger = logx.Nop()
	}
	r := &Relay{
		outbox:      outbox,
		pub:         pub,
		logger:      logger,
		metrics:     m,
		batch:       DefaultBatch,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DrainOnce publishes one batch. A failed publish is recorded on the row and does
// not stop the batch; only outbox errors are returned.
func (r *Relay) DrainOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.ListPendingNotifications(ctx, r.batch, r.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("list pending notifications: %w", err)
	}

	sent := 0
	for _, n := range pending {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		if err := r.pub.Publish(ctx, n); err != nil {
			r.metrics.ObservePublish("failed")
			r.logger.Warn("notification publish failed",
				logx.String("event", "notification_publish_failed"),
				logx.String("notification_id", n.ID.String()),
				logx.Int("attempt", n.Attempts+1),
				logx.Err(err),
			)
			if markErr := r.outbox.MarkNotificationFailed(ctx, n.ID, err.Error()); markErr != nil {
				return sent, fmt.Errorf("mark notification failed: %w", markErr)
			}
			continue
		}

		if err := r.outbox.MarkNotificationSent(ctx, n.ID, r.now()); err != nil {
			return sent, fmt.Errorf("mark notification sent: %w", err)
		}
		r.metrics.ObservePublish("sent")
		sent++
	}

	if sent > 0 {
		r.logger.Debug("notifications relayed", logx.Int("sent", sent), logx.Int("pending", len(pending)))
	}
	return sent, nil
}

// Run drains the outbox every interval until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.DrainOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("outbox drain failed", logx.Err(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
