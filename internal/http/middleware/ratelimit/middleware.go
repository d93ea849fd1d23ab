package ratelimit

import (
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"trucking-dispatch-core/internal/logx"
)

// TenantHeader identifies the calling back office tenant.
const TenantHeader = "X-Tenant-ID"

const rejectBody = `{"error":"too many requests","reason":"rate_limited"}`

// retryHinter is implemented by limiters that know when a key refills.
type retryHinter interface {
	RetryAfter(key string) time.Duration
}

// Middleware отбивает запросы сверх лимита ответом 429.
type Middleware struct {
	logger  logx.Logger
	counter prometheus.Counter
	limiter Limiter
	exempt  map[string]struct{}
}

// Option configures Middleware.
type Option func(*Middleware)

// WithExemptPaths never limits the given exact paths (health checks, ping).
func WithExemptPaths(paths ...string) Option {
	return func(m *Middleware) {
		for _, p := range paths {
			m.exempt[p] = struct{}{}
		}
	}
}

// New creates a Middleware. A nil limiter admits everything, a nil counter is skipped.
func New(logger logx.Logger, counter prometheus.Counter, limiter Limiter, opts ...Option) *Middleware {
	if limiter == nil {
		limiter = NopLimiter{}
	}
	m := &Middleware{
		logger:  logger,
		counter: counter,
		limiter: limiter,
		exempt:  make(map[string]struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Handler returns chi-style middleware.
func (m *Middleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.exempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := clientKey(r)
			if m.limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, r, key)
		})
	}
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, key string) {
	if m.counter != nil {
		m.counter.Inc()
	}
	retry := m.retryAfterSeconds(key)
	m.logger.Warn("rate limit exceeded",
		logx.String("key", key),
		logx.String("method", r.Method),
		logx.String("path", r.URL.Path),
		logx.Int("retry_after_s", retry),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	w.WriteHeader(http.StatusTooManyRequests)
	if _, err := io.WriteString(w, rejectBody); err != nil {
		// клиент мог уже отвалиться
		m.logger.Debug("rate limit response write failed", logx.String("key", key), logx.Err(err))
	}
}

// retryAfterSeconds rounds the limiter hint up to whole seconds, at least 1.
func (m *Middleware) retryAfterSeconds(key string) int {
	h, ok := m.limiter.(retryHinter)
	if !ok {
		return 1
	}
	return max(int(math.Ceil(h.RetryAfter(key).Seconds())), 1)
}

// clientKey buckets requests per tenant, falling back to the client address.
func clientKey(r *http.Request) string {
	if tenant := strings.TrimSpace(r.Header.Get(TenantHeader)); tenant != "" {
		return "tenant:" + strings.ToLower(tenant)
	}
	return "ip:" + clientIP(r)
}

// clientIP expects RealIP to have rewritten RemoteAddr already.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
