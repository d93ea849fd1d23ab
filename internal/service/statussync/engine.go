// Package statussync propagates a dispatch status change to its order, trip,
// assignments and the duty status of the drivers and trucks involved.
package statussync

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/metrics"
	"trucking-dispatch-core/internal/ports/dispatchtx"
	"trucking-dispatch-core/internal/statemachine"
)

// Result collects the transitions applied by one propagation and the sink
// failures that did not roll it back.
type Result struct {
	Transitions []domain.Transition
	Warnings    []string
}

// Engine is the status sync engine.
type Engine struct {
	sink    Sink
	guard   ClaimGuard
	logger  logx.Logger
	metrics *metrics.Dispatch
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine. guard may be nil, then claims are not re-checked.
func NewEngine(sink Sink, guard ClaimGuard, logger logx.Logger, m *metrics.Dispatch, opts ...Option) *Engine {
	e := &Engine{
		sink:    sink,
		guard:   guard,
		logger:  logger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Propagate applies the sub-entity transitions implied by d's current status.
// d must already be locked and updated in tx. Locks are taken order, trip,
// assignments, drivers, trucks. Any rejected sub-transition fails the whole
// propagation with a *apperr.SyncError and the caller must roll back.
func (e *Engine) Propagate(ctx context.Context, tx dispatchtx.Repository, d *domain.Dispatch, actor string) (Result, error) {
	var res Result
	now := e.now()

	steps := []struct {
		name string
		fn   func(context.Context, dispatchtx.Repository, *domain.Dispatch, string, time.Time, *Result) error
	}{
		{"order", e.syncOrder},
		{"trip", e.syncTrip},
		{"assignments", e.syncAssignments},
	}
	for _, step := range steps {
		if err := step.fn(ctx, tx, d, actor, now, &res); err != nil {
			e.logger.Warn("dispatch sync failed",
				logx.String("event", "sync_failed"),
				logx.Stringer("dispatch_id", d.ID),
				logx.String("step", step.name),
				logx.String("status", string(d.Status)),
				logx.Err(err),
			)
			return Result{}, &apperr.SyncError{DispatchID: d.ID, Err: fmt.Errorf("%s: %w", step.name, err)}
		}
	}
	return res, nil
}

func (e *Engine) syncOrder(ctx context.Context, tx dispatchtx.Repository, d *domain.Dispatch, actor string, now time.Time, res *Result) error {
	o, err := tx.LockOrder(ctx, d.OrderID)
	if err != nil {
		return fmt.Errorf("lock order %s: %w", d.OrderID, err)
	}
	if o == nil {
		return fmt.Errorf("order %s: %w", d.OrderID, apperr.ErrNotFound)
	}

	target, ok := OrderTarget(d.Status, o.Status)
	if !ok || target == o.Status {
		return nil
	}
	if err := statemachine.Order.Validate(o.Status, target); err != nil {
		return err
	}

	from := o.Status
	o.Status = target
	o.UpdatedAt = now
	if err := tx.UpdateOrderStatus(ctx, o); err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}

	e.Emit(ctx, tx, domain.Transition{
		TenantID: d.TenantID,
		Ref:      domain.OrderRef(o.ID),
		From:     string(from),
		To:       string(target),
		Actor:    actor,
		At:       now,
		Metadata: syncMetadata(d, o.Number),
	}, res)
	return nil
}

func (e *Engine) syncTrip(ctx context.Context, tx dispatchtx.Repository, d *domain.Dispatch, actor string, now time.Time, res *Result) error {
	if d.TripID == nil {
		return nil
	}
	target, ok := TripTarget(d.Status)
	if !ok {
		return nil
	}

	t, err := tx.LockTrip(ctx, *d.TripID)
	if err != nil {
		return fmt.Errorf("lock trip %s: %w", *d.TripID, err)
	}
	if t == nil {
		return fmt.Errorf("trip %s: %w", *d.TripID, apperr.ErrNotFound)
	}
	if t.Status == target {
		return nil
	}
	if err := statemachine.Trip.Validate(t.Status, target); err != nil {
		return err
	}

	from := t.Status
	t.Status = target
	switch target {
	case domain.TripInProgress:
		t.Start(now)
	case domain.TripCompleted:
		t.Finish(now)
	}
	t.UpdatedAt = now
	if err := tx.UpdateTrip(ctx, t); err != nil {
		return fmt.Errorf("update trip %s: %w", t.ID, err)
	}

	e.Emit(ctx, tx, domain.Transition{
		TenantID: d.TenantID,
		Ref:      domain.TripRef(t.ID),
		From:     string(from),
		To:       string(target),
		Actor:    actor,
		At:       now,
		Metadata: syncMetadata(d, t.Number),
	}, res)
	return nil
}

func (e *Engine) syncAssignments(ctx context.Context, tx dispatchtx.Repository, d *domain.Dispatch, actor string, now time.Time, res *Result) error {
	target, ok := AssignmentTarget(d.Status)
	if !ok {
		return nil
	}

	list, err := tx.LockDispatchAssignments(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("lock assignments: %w", err)
	}

	var pending []*domain.Assignment
	for i := range list {
		a := &list[i]
		if a.Status == target {
			continue
		}
		if err := statemachine.Assignment.Validate(a.Status, target); err != nil {
			return fmt.Errorf("assignment %s: %w", a.ID, err)
		}
		pending = append(pending, a)
	}
	if len(pending) == 0 {
		return nil
	}

	drivers := make([]uuid.UUID, 0, len(pending))
	trucks := make([]uuid.UUID, 0, len(pending))
	for _, a := range pending {
		drivers = append(drivers, a.DriverID)
		trucks = append(trucks, a.TruckID)
	}
	drivers, trucks = SortedIDs(drivers), SortedIDs(trucks)
	if err := lockResources(ctx, tx, drivers, trucks); err != nil {
		return err
	}

	for _, a := range pending {
		if !a.Status.Active() && target.Active() && e.guard != nil {
			if err := e.guard.CheckClaim(ctx, tx, *a); err != nil {
				return fmt.Errorf("assignment %s: %w", a.ID, err)
			}
		}

		from := a.Status
		switch target {
		case domain.AssignmentOffDuty, domain.AssignmentCancelled:
			a.Close(target, now)
		default:
			a.Status = target
			a.UpdatedAt = now
		}
		if err := tx.UpdateAssignment(ctx, a); err != nil {
			return fmt.Errorf("update assignment %s: %w", a.ID, err)
		}

		e.Emit(ctx, tx, domain.Transition{
			TenantID: d.TenantID,
			Ref:      domain.AssignmentRef(a.ID),
			From:     string(from),
			To:       string(target),
			Actor:    actor,
			At:       now,
			Metadata: map[string]any{
				"dispatch_id": d.ID.String(),
				"driver_id":   a.DriverID.String(),
				"truck_id":    a.TruckID.String(),
				"source":      "dispatch_sync",
			},
		}, res)
	}

	return RefreshDuty(ctx, tx, drivers, trucks)
}

// Emit hands t to the sink. Sink failures are appended to res.Warnings.
func (e *Engine) Emit(ctx context.Context, tx dispatchtx.Repository, t domain.Transition, res *Result) {
	res.Transitions = append(res.Transitions, t)

	for _, step := range []func(context.Context, dispatchtx.Repository, domain.Transition) error{
		e.sink.RecordTransition,
		e.sink.Notify,
	} {
		if err := step(ctx, tx, t); err != nil {
			e.metrics.ObserveSinkWarning()
			e.logger.Warn("status sink failed",
				logx.String("event", "sync_warning"),
				logx.Stringer("entity", t.Ref),
				logx.Err(err),
			)
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
}

// RefreshDuty recomputes duty status for the given drivers and trucks from their
// remaining active assignments. Resources on leave, in maintenance or out of
// service are left alone. IDs must be sorted ascending.
func RefreshDuty(ctx context.Context, tx dispatchtx.Repository, drivers, trucks []uuid.UUID) error {
	for _, id := range drivers {
		drv, err := tx.LockDriver(ctx, id)
		if err != nil {
			return fmt.Errorf("lock driver %s: %w", id, err)
		}
		if drv == nil {
			continue
		}
		n, err := tx.CountActiveAssignments(ctx, domain.ResourceDriver, id)
		if err != nil {
			return fmt.Errorf("count driver %s assignments: %w", id, err)
		}
		next := drv.DutyStatus
		switch {
		case n > 0 && drv.DutyStatus == domain.DriverAvailable:
			next = domain.DriverOnDuty
		case n == 0 && drv.DutyStatus == domain.DriverOnDuty:
			next = domain.DriverAvailable
		}
		if next != drv.DutyStatus {
			if err := tx.UpdateDriverDutyStatus(ctx, id, next); err != nil {
				return fmt.Errorf("update driver %s duty: %w", id, err)
			}
		}
	}

	for _, id := range trucks {
		trk, err := tx.LockTruck(ctx, id)
		if err != nil {
			return fmt.Errorf("lock truck %s: %w", id, err)
		}
		if trk == nil {
			continue
		}
		n, err := tx.CountActiveAssignments(ctx, domain.ResourceTruck, id)
		if err != nil {
			return fmt.Errorf("count truck %s assignments: %w", id, err)
		}
		next := trk.DutyStatus
		switch {
		case n > 0 && trk.DutyStatus == domain.TruckAvailable:
			next = domain.TruckOnDuty
		case n == 0 && trk.DutyStatus == domain.TruckOnDuty:
			next = domain.TruckAvailable
		}
		if next != trk.DutyStatus {
			if err := tx.UpdateTruckDutyStatus(ctx, id, next); err != nil {
				return fmt.Errorf("update truck %s duty: %w", id, err)
			}
		}
	}
	return nil
}

func lockResources(ctx context.Context, tx dispatchtx.Repository, drivers, trucks []uuid.UUID) error {
	for _, id := range drivers {
		if _, err := tx.LockDriver(ctx, id); err != nil {
			return fmt.Errorf("lock driver %s: %w", id, err)
		}
	}
	for _, id := range trucks {
		if _, err := tx.LockTruck(ctx, id); err != nil {
			return fmt.Errorf("lock truck %s: %w", id, err)
		}
	}
	return nil
}

// SortedIDs returns ids sorted ascending without duplicates, the order rows of
// one kind are locked in.
func SortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	return slices.Compact(out)
}

func syncMetadata(d *domain.Dispatch, number string) map[string]any {
	return map[string]any{
		"number":          number,
		"dispatch_id":     d.ID.String(),
		"dispatch_number": d.Number,
		"source":          "dispatch_sync",
	}
}
