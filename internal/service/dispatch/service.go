// Package dispatch orchestrates dispatch status changes and assignment bookings.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/metrics"
	"trucking-dispatch-core/internal/ports/dispatchtx"
	"trucking-dispatch-core/internal/service/resourcelock"
	"trucking-dispatch-core/internal/service/statussync"
	"trucking-dispatch-core/internal/statemachine"
)

// Service - dispatch use cases.
type Service struct {
	runner           dispatchtx.Runner
	locks            availabilityChecker
	sync             propagator
	operationTimeout time.Duration
	logger           logx.Logger
	metrics          *metrics.Dispatch
	now              func() time.Time
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// NewService - creates a new dispatch Service. m may be nil.
func NewService(
	runner dispatchtx.Runner,
	locks availabilityChecker,
	sync propagator,
	timeout time.Duration,
	logger logx.Logger,
	m *metrics.Dispatch,
) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		runner:           runner,
		locks:            locks,
		sync:             sync,
		operationTimeout: timeout,
		logger:           logger,
		metrics:          m,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// ChangeStatus moves a dispatch to a new status and propagates it to the order,
// trip, assignments and fleet duty statuses in one transaction. Requesting the
// current status is a no-op.
func (s *Service) ChangeStatus(ctx context.Context, in ChangeStatusInput) (domain.StatusChangeResult, error) {
	in, err := in.normalize()
	if err != nil {
		return domain.StatusChangeResult{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result domain.StatusChangeResult
	err = s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.LockDispatch(ctx, in.DispatchID)
		if err != nil {
			return fmt.Errorf("lock dispatch: %w", err)
		}
		if d == nil {
			return fmt.Errorf("dispatch %s: %w", in.DispatchID, apperr.ErrNotFound)
		}

		result = domain.StatusChangeResult{Dispatch: *d, Previous: d.Status}
		if d.Status == in.Status {
			return nil
		}
		if err := statemachine.Dispatch.Validate(d.Status, in.Status); err != nil {
			return err
		}

		now := s.now()
		prev := d.Status
		d.ApplyStatus(in.Status, now)
		if err := tx.UpdateDispatchStatus(ctx, d); err != nil {
			return fmt.Errorf("update dispatch: %w", err)
		}

		var own statussync.Result
		s.sync.Emit(ctx, tx, domain.Transition{
			TenantID: d.TenantID,
			Ref:      domain.DispatchRef(d.ID),
			From:     string(prev),
			To:       string(in.Status),
			Actor:    in.Actor,
			At:       now,
			Metadata: map[string]any{"number": d.Number},
		}, &own)

		sub, err := s.sync.Propagate(ctx, tx, d, in.Actor)
		if err != nil {
			return err
		}

		result.Dispatch = *d
		result.Transitions = append(own.Transitions, sub.Transitions...)
		result.Warnings = append(own.Warnings, sub.Warnings...)
		return nil
	})
	if err != nil {
		var syncErr *apperr.SyncError
		if errors.As(err, &syncErr) {
			s.metrics.ObserveSyncFailure()
		}
		s.logger.Warn("dispatch status change failed",
			logx.String("event", "dispatch_status_rejected"),
			logx.Stringer("dispatch_id", in.DispatchID),
			logx.String("to", string(in.Status)),
			logx.Err(err),
		)
		return domain.StatusChangeResult{}, err
	}

	for _, t := range result.Transitions {
		s.metrics.ObserveTransition(t)
	}
	if len(result.Transitions) > 0 {
		s.logger.Info("dispatch status changed",
			logx.String("event", "dispatch_status_changed"),
			logx.Stringer("dispatch_id", result.Dispatch.ID),
			logx.String("from", string(result.Previous)),
			logx.String("to", string(result.Dispatch.Status)),
			logx.String("actor", in.Actor),
			logx.Int("transitions", len(result.Transitions)),
			logx.Int("warnings", len(result.Warnings)),
		)
	}
	return result, nil
}

// CheckAvailability answers whether the driver and truck are free for the window.
// It only reads; the row locks are released when the check returns.
func (s *Service) CheckAvailability(ctx context.Context, req resourcelock.Request) (resourcelock.Availability, error) {
	if err := req.Validate(); err != nil {
		return resourcelock.Availability{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var res resourcelock.Availability
	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		var err error
		res, err = s.locks.Check(ctx, tx, req)
		return err
	})
	if err != nil {
		return resourcelock.Availability{}, err
	}
	return res, nil
}

// CreateAssignment books a driver and truck for a window. The status follows the
// owning dispatch; without one the assignment starts assigned.
func (s *Service) CreateAssignment(ctx context.Context, in CreateAssignmentInput) (domain.Assignment, error) {
	req := resourcelock.Request{DriverID: in.DriverID, TruckID: in.TruckID, Start: in.Start, End: in.End}
	if err := req.Validate(); err != nil {
		return domain.Assignment{}, err
	}
	if in.TenantID == uuid.Nil {
		return domain.Assignment{}, fmt.Errorf("tenant id is required: %w", apperr.ErrInvalid)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created domain.Assignment
	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		status := domain.AssignmentAssigned
		var carrierID *uuid.UUID
		if in.DispatchID != nil {
			d, err := tx.LockDispatch(ctx, *in.DispatchID)
			if err != nil {
				return fmt.Errorf("lock dispatch: %w", err)
			}
			if d == nil || d.TenantID != in.TenantID {
				return fmt.Errorf("dispatch %s: %w", *in.DispatchID, apperr.ErrNotFound)
			}
			st, ok := statussync.InitialAssignmentStatus(d.Status)
			if !ok {
				return fmt.Errorf("dispatch %s is %s and takes no new assignments: %w", d.ID, d.Status, apperr.ErrInvalid)
			}
			status = st
			carrierID = d.CarrierID
		}

		av, err := s.locks.Check(ctx, tx, req)
		if err != nil {
			return err
		}
		if !av.Available {
			return av.Err()
		}

		now := s.now()
		a := domain.Assignment{
			ID:         uuid.New(),
			TenantID:   in.TenantID,
			DriverID:   in.DriverID,
			TruckID:    in.TruckID,
			CarrierID:  carrierID,
			DispatchID: in.DispatchID,
			StartDate:  in.Start,
			EndDate:    in.End,
			Status:     status,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.InsertAssignment(ctx, &a); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
		if a.Status.Active() {
			if err := statussync.RefreshDuty(ctx, tx, []uuid.UUID{a.DriverID}, []uuid.UUID{a.TruckID}); err != nil {
				return err
			}
		}
		created = a
		return nil
	})
	if err != nil {
		return domain.Assignment{}, err
	}

	s.logger.Info("assignment created",
		logx.String("event", "assignment_created"),
		logx.Stringer("assignment_id", created.ID),
		logx.Stringer("driver_id", created.DriverID),
		logx.Stringer("truck_id", created.TruckID),
		logx.String("status", string(created.Status)),
	)
	return created, nil
}

// UpdateAssignmentWindow reschedules an assignment. Active assignments are
// re-checked against every other booking of their driver and truck.
func (s *Service) UpdateAssignmentWindow(ctx context.Context, in UpdateWindowInput) (domain.Assignment, error) {
	if in.AssignmentID == uuid.Nil {
		return domain.Assignment{}, fmt.Errorf("assignment id is required: %w", apperr.ErrInvalid)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var updated domain.Assignment
	err := s.runner.WithTx(ctx, func(tx dispatchtx.Repository) error {
		a, err := tx.LockAssignment(ctx, in.AssignmentID)
		if err != nil {
			return fmt.Errorf("lock assignment: %w", err)
		}
		if a == nil || !a.IsActive {
			return fmt.Errorf("assignment %s: %w", in.AssignmentID, apperr.ErrNotFound)
		}
		if a.Status == domain.AssignmentOffDuty || a.Status == domain.AssignmentCancelled {
			return fmt.Errorf("assignment %s is %s: %w", a.ID, a.Status, apperr.ErrConflict)
		}

		req := resourcelock.Request{
			DriverID:            a.DriverID,
			TruckID:             a.TruckID,
			Start:               in.Start,
			End:                 in.End,
			ExcludeAssignmentID: &a.ID,
		}
		if err := req.Validate(); err != nil {
			return err
		}
		if a.Status.Active() {
			av, err := s.locks.Check(ctx, tx, req)
			if err != nil {
				return err
			}
			if !av.Available {
				return av.Err()
			}
		}

		a.StartDate = in.Start
		a.EndDate = in.End
		a.UpdatedAt = s.now()
		if err := tx.UpdateAssignment(ctx, a); err != nil {
			return fmt.Errorf("update assignment: %w", err)
		}
		updated = *a
		return nil
	})
	if err != nil {
		return domain.Assignment{}, err
	}
	return updated, nil
}
