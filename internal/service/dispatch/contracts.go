package dispatch

import (
	"context"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/ports/dispatchtx"
	"trucking-dispatch-core/internal/service/resourcelock"
	"trucking-dispatch-core/internal/service/statussync"
)

type availabilityChecker interface {
	Check(ctx context.Context, tx dispatchtx.Repository, req resourcelock.Request) (resourcelock.Availability, error)
}

type propagator interface {
	Propagate(ctx context.Context, tx dispatchtx.Repository, d *domain.Dispatch, actor string) (statussync.Result, error)
	Emit(ctx context.Context, tx dispatchtx.Repository, t domain.Transition, res *statussync.Result)
}
