package ratelimit

import "time"

// Limiter decides whether a request keyed by tenant (or client IP) may proceed.
type Limiter interface {
	Allow(key string) bool
}

// Clock lets tests move bucket refill and idle eviction by hand.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock in UTC.
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// NopLimiter admits everything; used when RATE_LIMIT_ENABLED=false.
type NopLimiter struct{}

// Allow always returns true.
func (NopLimiter) Allow(string) bool { return true }
