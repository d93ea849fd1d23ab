//go:generate mockgen -source=contracts.go -destination=reconcile_mocks_test.go -package=reconcile_test

package reconcile

import (
	"context"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/ports/dispatchtx"
	"trucking-dispatch-core/internal/service/statussync"
)

// Reader is the read model detection runs against. It takes no locks.
type Reader interface {
	ListTenants(ctx context.Context) ([]domain.Tenant, error)
	ListDispatchLinks(ctx context.Context, tenantID uuid.UUID) ([]domain.DispatchLink, error)
	ListActiveAssignments(ctx context.Context, tenantID uuid.UUID) ([]domain.AssignmentView, error)
}

// ReportCache keeps the last detection report per tenant. Get returns nil, nil on a miss.
type ReportCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*domain.Report, error)
	Put(ctx context.Context, report domain.Report) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

type emitter interface {
	Emit(ctx context.Context, tx dispatchtx.Repository, t domain.Transition, res *statussync.Result)
}
