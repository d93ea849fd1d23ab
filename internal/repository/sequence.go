package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Number prefixes.
const (
	PrefixOrder    = "ORD"
	PrefixTrip     = "TRIP"
	PrefixDispatch = "DISP"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// nextNumber bumps the tenant's daily counter for prefix and formats PREFIX-YYYYMMDD-NNNN.
func nextNumber(ctx context.Context, q querier, tenantID uuid.UUID, prefix string, day time.Time) (string, error) {
	day = day.UTC()
	var n int
	err := q.QueryRow(ctx, `
        INSERT INTO tenant_sequences (tenant_id, prefix, day, last_value)
        VALUES ($1, $2, $3::date, 1)
        ON CONFLICT (tenant_id, prefix, day)
        DO UPDATE SET last_value = tenant_sequences.last_value + 1
        RETURNING last_value
    `, tenantID, prefix, day.Format(time.DateOnly)).Scan(&n)
	if err != nil {
		return "", wrapf(err, "next %s number", prefix)
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), n), nil
}

// NextNumber returns the next document number for the tenant and day.
func (s *Store) NextNumber(ctx context.Context, tenantID uuid.UUID, prefix string, day time.Time) (string, error) {
	return nextNumber(ctx, s.db, tenantID, prefix, day)
}
