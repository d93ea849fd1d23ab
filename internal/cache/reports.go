// Package cache keeps the last reconciliation report per tenant in Redis so a fix
// pass can reuse a fresh detection instead of rescanning.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"trucking-dispatch-core/internal/domain"
)

// DefaultReportTTL bounds how stale a cached report may get.
const DefaultReportTTL = 5 * time.Minute

// Reports is a Redis backed report cache.
type Reports struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReports creates a new Reports cache. A non-positive ttl uses DefaultReportTTL.
func NewReports(client *redis.Client, ttl time.Duration) *Reports {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &Reports{client: client, ttl: ttl}
}

func reportKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("dispatch:reconcile:%s:report", tenantID)
}

// Get returns the cached report, or nil on a miss.
func (c *Reports) Get(ctx context.Context, tenantID uuid.UUID) (*domain.Report, error) {
	data, err := c.client.Get(ctx, reportKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	var r domain.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// Put stores the report under its tenant.
func (c *Reports) Put(ctx context.Context, r domain.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, reportKey(r.TenantID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("put report: %w", err)
	}
	return nil
}

// Invalidate drops the tenant's report.
func (c *Reports) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, reportKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("invalidate report: %w", err)
	}
	return nil
}

// Connect creates a client and pings it. It returns nil, nil when addr is empty.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
