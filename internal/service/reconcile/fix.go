package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/ports/dispatchtx"
	"trucking-dispatch-core/internal/service/statussync"
	"trucking-dispatch-core/internal/statemachine"
)

// errSkip ends a repair transaction without writing anything.
var errSkip = errors.New("nothing to fix")

func failed(o domain.FixOutcome, err error) outcome {
	o.Error = err.Error()
	return outcome{FixOutcome: o}
}

func skipped(o domain.FixOutcome, action string) outcome {
	o.Action = action
	return outcome{FixOutcome: o, skipped: true}
}

func (s *Service) fixOrder(ctx context.Context, m domain.StatusMismatch, dryRun bool) outcome {
	dispatchID, orderID := m.DispatchID, m.EntityID
	o := domain.FixOutcome{
		Category:   domain.IssueOrderMismatch,
		DispatchID: &dispatchID,
		EntityID:   &orderID,
		From:       m.Stored,
		To:         m.Expected,
	}
	if dryRun {
		o.Action = fmt.Sprintf("would update order status from %s to %s", m.Stored, m.Expected)
		return outcome{FixOutcome: o}
	}

	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.LockDispatch(ctx, m.DispatchID)
		if err != nil {
			return fmt.Errorf("lock dispatch: %w", err)
		}
		if d == nil {
			return fmt.Errorf("dispatch %s: %w", m.DispatchID, apperr.ErrNotFound)
		}
		want, ok := statussync.ExpectedOrderStatus(d.Status)
		if !ok {
			return errSkip
		}
		order, err := tx.LockOrder(ctx, d.OrderID)
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if order == nil {
			return fmt.Errorf("order %s: %w", d.OrderID, apperr.ErrNotFound)
		}
		if order.Status == want {
			return errSkip
		}

		from := order.Status
		forced := !statemachine.Order.CanTransition(from, want)
		order.Status = want
		order.UpdatedAt = s.now()
		if err := tx.UpdateOrderStatus(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		o.EntityID = &order.ID
		o.From, o.To = string(from), string(want)
		s.emitRepair(ctx, tx, d, domain.Transition{
			TenantID: d.TenantID,
			Ref:      domain.OrderRef(order.ID),
			From:     string(from),
			To:       string(want),
			Metadata: repairMetadata(d, order.Number, forced),
		})
		return nil
	})
	switch {
	case errors.Is(err, errSkip):
		return skipped(o, "order already consistent with dispatch")
	case err != nil:
		return failed(o, err)
	}
	o.Action = fmt.Sprintf("updated order status from %s to %s", o.From, o.To)
	return outcome{FixOutcome: o}
}

func (s *Service) fixTrip(ctx context.Context, m domain.StatusMismatch, dryRun bool) outcome {
	dispatchID, tripID := m.DispatchID, m.EntityID
	o := domain.FixOutcome{
		Category:   domain.IssueTripMismatch,
		DispatchID: &dispatchID,
		EntityID:   &tripID,
		From:       m.Stored,
		To:         m.Expected,
	}
	if dryRun {
		o.Action = fmt.Sprintf("would update trip status from %s to %s", m.Stored, m.Expected)
		return outcome{FixOutcome: o}
	}

	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.LockDispatch(ctx, m.DispatchID)
		if err != nil {
			return fmt.Errorf("lock dispatch: %w", err)
		}
		if d == nil {
			return fmt.Errorf("dispatch %s: %w", m.DispatchID, apperr.ErrNotFound)
		}
		want, ok := statussync.ExpectedTripStatus(d.Status)
		if !ok || d.TripID == nil {
			return errSkip
		}
		trip, err := tx.LockTrip(ctx, *d.TripID)
		if err != nil {
			return fmt.Errorf("lock trip: %w", err)
		}
		if trip == nil {
			return fmt.Errorf("trip %s: %w", *d.TripID, apperr.ErrNotFound)
		}
		if trip.Status == want {
			return errSkip
		}

		now := s.now()
		from := trip.Status
		forced := !statemachine.Trip.CanTransition(from, want)
		trip.Status = want
		switch want {
		case domain.TripInProgress:
			trip.Start(now)
		case domain.TripCompleted:
			trip.Start(now)
			trip.Finish(now)
		}
		trip.UpdatedAt = now
		if err := tx.UpdateTrip(ctx, trip); err != nil {
			return fmt.Errorf("update trip: %w", err)
		}

		o.EntityID = &trip.ID
		o.From, o.To = string(from), string(want)
		s.emitRepair(ctx, tx, d, domain.Transition{
			TenantID: d.TenantID,
			Ref:      domain.TripRef(trip.ID),
			From:     string(from),
			To:       string(want),
			Metadata: repairMetadata(d, trip.Number, forced),
		})
		return nil
	})
	switch {
	case errors.Is(err, errSkip):
		return skipped(o, "trip already consistent with dispatch")
	case err != nil:
		return failed(o, err)
	}
	o.Action = fmt.Sprintf("updated trip status from %s to %s", o.From, o.To)
	return outcome{FixOutcome: o}
}

func (s *Service) fixConflict(ctx context.Context, c domain.ResourceConflict, dryRun bool) outcome {
	resourceID := c.ResourceID
	o := domain.FixOutcome{
		Category: domain.IssueResourceConflict,
		EntityID: &resourceID,
		Resource: c.Resource,
	}
	if dryRun {
		keep, cancel := s.policy.Resolve(c.Assignments)
		o.Kept, o.Cancelled = first(keep), cancel
		o.Action = fmt.Sprintf("would cancel %d conflicting assignment(s) of %s %s", len(cancel), c.Resource, c.ResourceID)
		return outcome{FixOutcome: o}
	}

	ids := make([]uuid.UUID, 0, len(c.Assignments))
	for _, m := range c.Assignments {
		ids = append(ids, m.AssignmentID)
	}
	ids = statussync.SortedIDs(ids)

	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		var live []*domain.Assignment
		for _, id := range ids {
			a, err := tx.LockAssignment(ctx, id)
			if err != nil {
				return fmt.Errorf("lock assignment %s: %w", id, err)
			}
			if a != nil && a.IsActive && a.Status.Active() {
				live = append(live, a)
			}
		}
		if len(live) < 2 {
			return errSkip
		}

		var drivers, trucks []uuid.UUID
		members := make([]domain.ConflictingAssignment, 0, len(live))
		byID := make(map[uuid.UUID]*domain.Assignment, len(live))
		for _, a := range live {
			drivers = append(drivers, a.DriverID)
			trucks = append(trucks, a.TruckID)
			members = append(members, memberOf(*a))
			byID[a.ID] = a
		}
		drivers, trucks = statussync.SortedIDs(drivers), statussync.SortedIDs(trucks)
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

		keep, cancel := s.policy.Resolve(members)
		if len(cancel) == 0 {
			return errSkip
		}

		now := s.now()
		for _, id := range cancel {
			a := byID[id]
			from := a.Status
			a.Close(domain.AssignmentCancelled, now)
			// отменённое назначение больше не участвует в синхронизации рейса
			a.IsActive = false
			if err := tx.UpdateAssignment(ctx, a); err != nil {
				return fmt.Errorf("cancel assignment %s: %w", id, err)
			}
			meta := map[string]any{
				"source":        Source,
				"reason":        string(domain.IssueResourceConflict),
				"resource":      string(c.Resource),
				"resource_id":   c.ResourceID.String(),
				"conflict_rule": string(s.policy),
			}
			if k := first(keep); k != nil {
				meta["kept_assignment_id"] = k.String()
			}
			s.emitRepair(ctx, tx, nil, domain.Transition{
				TenantID: a.TenantID,
				Ref:      domain.AssignmentRef(a.ID),
				From:     string(from),
				To:       string(domain.AssignmentCancelled),
				Metadata: meta,
			})
		}
		if err := statussync.RefreshDuty(ctx, tx, drivers, trucks); err != nil {
			return err
		}

		o.Kept, o.Cancelled = first(keep), cancel
		return nil
	})
	switch {
	case errors.Is(err, errSkip):
		return skipped(o, "conflict no longer present")
	case err != nil:
		return failed(o, err)
	}
	o.Action = fmt.Sprintf("cancelled %d conflicting assignment(s) of %s %s", len(o.Cancelled), c.Resource, c.ResourceID)
	return outcome{FixOutcome: o}
}

func (s *Service) emitRepair(ctx context.Context, tx dispatchtx.Repository, d *domain.Dispatch, t domain.Transition) {
	t.Actor = Source
	t.At = s.now()
	var res statussync.Result
	s.emit.Emit(ctx, tx, t, &res)
	for _, w := range res.Warnings {
		fields := []logx.Field{logx.String("event", "sync_warning"), logx.Stringer("entity", t.Ref), logx.String("warning", w)}
		if d != nil {
			fields = append(fields, logx.Stringer("dispatch_id", d.ID))
		}
		s.logger.Warn("reconcile history write failed", fields...)
	}
}

func repairMetadata(d *domain.Dispatch, number string, forced bool) map[string]any {
	return map[string]any{
		"number":          number,
		"dispatch_id":     d.ID.String(),
		"dispatch_status": string(d.Status),
		"source":          Source,
		"forced":          forced,
	}
}

func first(ids []uuid.UUID) *uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	id := ids[0]
	return &id
}
