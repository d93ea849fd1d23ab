//go:generate mockgen -source=contracts.go -destination=statussync_mocks_test.go -package=statussync_test

package statussync

import (
	"context"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/ports/dispatchtx"
)

// Sink records applied transitions. Its failures are warnings, never rollbacks.
type Sink interface {
	RecordTransition(ctx context.Context, tx dispatchtx.Repository, t domain.Transition) error
	Notify(ctx context.Context, tx dispatchtx.Repository, t domain.Transition) error
}

// ClaimGuard vets an assignment that is about to start claiming its driver and truck.
type ClaimGuard interface {
	CheckClaim(ctx context.Context, tx dispatchtx.Repository, a domain.Assignment) error
}
