package fleet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"trucking-dispatch-core/internal/logx"
)

type gateway interface {
	IsDriverQualifiedForTruck(ctx context.Context, driverID, truckID uuid.UUID) (bool, string, error)
	IsDriverLicenseValid(ctx context.Context, driverID uuid.UUID) (bool, error)
}

type counter interface {
	Inc()
}

// RetryConfig описывает поведение RetryingGateway
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingGateway retries transient fleet service failures with exponential backoff.
type RetryingGateway struct {
	next    gateway
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
}

// NewRetryingGateway возвращает nil, если next не задан
func NewRetryingGateway(next gateway, logger logx.Logger, retries counter, cfg RetryConfig) *RetryingGateway {
	if next == nil {
		return nil
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryingGateway{next: next, logger: logger, retries: retries, cfg: cfg}
}

type qualification struct {
	ok     bool
	reason string
}

// IsDriverQualifiedForTruck implements resourcelock.Qualifier.
func (g *RetryingGateway) IsDriverQualifiedForTruck(ctx context.Context, driverID, truckID uuid.UUID) (bool, string, error) {
	q, err := retry(ctx, g, "IsDriverQualifiedForTruck", func() (qualification, error) {
		ok, reason, err := g.next.IsDriverQualifiedForTruck(ctx, driverID, truckID)
		return qualification{ok: ok, reason: reason}, err
	})
	return q.ok, q.reason, err
}

// IsDriverLicenseValid implements resourcelock.Qualifier.
func (g *RetryingGateway) IsDriverLicenseValid(ctx context.Context, driverID uuid.UUID) (bool, error) {
	return retry(ctx, g, "IsDriverLicenseValid", func() (bool, error) {
		return g.next.IsDriverLicenseValid(ctx, driverID)
	})
}

func retry[T any](ctx context.Context, g *RetryingGateway, method string, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	// цикл по повторам
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		v, err := call()
		if err == nil {
			return v, nil
		}
		lastErr = err
		// проверяем условия повтора
		if ctx.Err() != nil || attempt == g.cfg.MaxAttempts || !isRetryable(err) {
			break
		}
		delay := backoff(g.cfg.BaseDelay, g.cfg.MaxDelay, attempt)
		if g.retries != nil {
			g.retries.Inc()
		}
		g.logger.Warn("fleet gateway retry",
			logx.String("method", method),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		// ждем
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return zero, lastErr
}

// isRetryable определяет, является ли ошибка повторяемой
func isRetryable(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.ResourceExhausted,
		codes.Unavailable,
		codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if max > 0 && d > max {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
