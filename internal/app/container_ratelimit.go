package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"trucking-dispatch-core/internal/config"
	"trucking-dispatch-core/internal/http/middleware/ratelimit"
	"trucking-dispatch-core/internal/logx"
)

// healthPaths are hit by orchestrators every few seconds and never limited.
var healthPaths = []string{"/ping", "/healthcheck"}

func newRateLimitClock() ratelimit.Clock {
	return ratelimit.RealClock{}
}

func newRateLimiter(cfg *config.Config, clock ratelimit.Clock, logger logx.Logger) ratelimit.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		logger.Info("rate limiting disabled")
		return ratelimit.NopLimiter{}
	}
	logger.Info("rate limiting per tenant",
		logx.Any("rate", rl.Rate),
		logx.Int("burst", rl.Burst),
		logx.Duration("idle_ttl", rl.TTL),
		logx.Int("max_callers", rl.MaxBuckets),
	)
	return ratelimit.NewTokenBucketLimiter(clock, ratelimit.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
}

type rateLimitIn struct {
	dig.In
	Logger  logx.Logger
	Counter prometheus.Counter `name:"rate_limit_exceeded_total"`
	Limiter ratelimit.Limiter
}

func newRateLimitMiddleware(in rateLimitIn) *ratelimit.Middleware {
	return ratelimit.New(in.Logger.With(logx.String("component", "ratelimit")), in.Counter, in.Limiter,
		ratelimit.WithExemptPaths(healthPaths...))
}
