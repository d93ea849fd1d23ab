// Package resourcelock decides, under driver and truck row locks, whether a
// driver and truck can be bound together for a time window.
package resourcelock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/metrics"
	"trucking-dispatch-core/internal/ports/dispatchtx"
)

// Request describes the binding to check. A nil End means open-ended.
type Request struct {
	DriverID            uuid.UUID
	TruckID             uuid.UUID
	Start               time.Time
	End                 *time.Time
	ExcludeAssignmentID *uuid.UUID
}

// Validate rejects requests that cannot describe a window.
func (r Request) Validate() error {
	if r.DriverID == uuid.Nil || r.TruckID == uuid.Nil {
		return fmt.Errorf("driver and truck are required: %w", apperr.ErrInvalid)
	}
	if r.Start.IsZero() {
		return fmt.Errorf("start is required: %w", apperr.ErrInvalid)
	}
	if r.End != nil && !r.End.After(r.Start) {
		return fmt.Errorf("end must be after start: %w", apperr.ErrInvalid)
	}
	return nil
}

// Availability is the answer of a check.
type Availability struct {
	Available               bool                  `json:"available"`
	Reason                  apperr.ResourceReason `json:"reason,omitempty"`
	Message                 string                `json:"message,omitempty"`
	ConflictingAssignmentID *uuid.UUID            `json:"conflicting_assignment_id,omitempty"`
}

// Err converts an unavailable answer into a *apperr.ResourceUnavailableError.
func (a Availability) Err() error {
	if a.Available {
		return nil
	}
	return &apperr.ResourceUnavailableError{
		Reason:                  a.Reason,
		Message:                 a.Message,
		ConflictingAssignmentID: a.ConflictingAssignmentID,
	}
}

func unavailable(reason apperr.ResourceReason, format string, args ...any) Availability {
	return Availability{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Manager is the resource lock manager.
type Manager struct {
	qualifier Qualifier
	logger    logx.Logger
	metrics   *metrics.Dispatch
	since     func(time.Time) time.Duration
}

// NewManager creates a Manager. m may be nil.
func NewManager(q Qualifier, logger logx.Logger, m *metrics.Dispatch) *Manager {
	return &Manager{qualifier: q, logger: logger, metrics: m, since: time.Since}
}

// Check locks the driver row, then the truck row, and reports whether the pair is
// free for the window. It never writes; the locks are held until tx ends.
func (m *Manager) Check(ctx context.Context, tx dispatchtx.Repository, req Request) (Availability, error) {
	if err := req.Validate(); err != nil {
		return Availability{}, err
	}

	res, err := m.check(ctx, tx, req)
	if err != nil {
		return Availability{}, err
	}

	result := "available"
	if !res.Available {
		result = string(res.Reason)
	}
	m.metrics.ObserveAvailability(result)
	m.logger.Debug("resource availability checked",
		logx.Stringer("driver_id", req.DriverID),
		logx.Stringer("truck_id", req.TruckID),
		logx.Time("start", req.Start),
		logx.Bool("available", res.Available),
		logx.String("reason", string(res.Reason)),
	)
	return res, nil
}

func (m *Manager) check(ctx context.Context, tx dispatchtx.Repository, req Request) (Availability, error) {
	// driver before truck, always
	started := time.Now()
	driver, err := tx.LockDriver(ctx, req.DriverID)
	if err != nil {
		return Availability{}, fmt.Errorf("lock driver %s: %w", req.DriverID, err)
	}
	truck, err := tx.LockTruck(ctx, req.TruckID)
	if err != nil {
		return Availability{}, fmt.Errorf("lock truck %s: %w", req.TruckID, err)
	}
	m.metrics.ObserveLockWait(m.since(started))

	if driver == nil {
		return unavailable(apperr.ReasonNotFound, "driver %s not found", req.DriverID), nil
	}
	if truck == nil {
		return unavailable(apperr.ReasonNotFound, "truck %s not found", req.TruckID), nil
	}

	ok, reason, err := m.qualifier.IsDriverQualifiedForTruck(ctx, req.DriverID, req.TruckID)
	if err != nil {
		return Availability{}, fmt.Errorf("qualification: %w", err)
	}
	if !ok {
		return unavailable(apperr.ReasonNotQualified, "driver is not qualified for truck: %s", reason), nil
	}
	valid, err := m.qualifier.IsDriverLicenseValid(ctx, req.DriverID)
	if err != nil {
		return Availability{}, fmt.Errorf("license check: %w", err)
	}
	if !valid {
		return unavailable(apperr.ReasonNotQualified, "driver license is missing or expired"), nil
	}

	for _, c := range []struct {
		kind   domain.ResourceKind
		id     uuid.UUID
		reason apperr.ResourceReason
	}{
		{domain.ResourceDriver, req.DriverID, apperr.ReasonDriverConflict},
		{domain.ResourceTruck, req.TruckID, apperr.ReasonTruckConflict},
	} {
		conflict, err := tx.FindConflictingAssignment(ctx, domain.ConflictQuery{
			Kind:       c.kind,
			ResourceID: c.id,
			Start:      req.Start,
			End:        req.End,
			ExcludeID:  req.ExcludeAssignmentID,
		})
		if err != nil {
			return Availability{}, fmt.Errorf("find %s conflict: %w", c.kind, err)
		}
		if conflict != nil {
			res := unavailable(c.reason, "%s %s already has an active assignment in this window", c.kind, c.id)
			id := conflict.ID
			res.ConflictingAssignmentID = &id
			return res, nil
		}
	}

	return Availability{Available: true}, nil
}

// CheckClaim vets an existing assignment about to claim its driver and truck,
// ignoring the assignment itself. An unavailable pair is returned as an error.
func (m *Manager) CheckClaim(ctx context.Context, tx dispatchtx.Repository, a domain.Assignment) error {
	id := a.ID
	res, err := m.Check(ctx, tx, Request{
		DriverID:            a.DriverID,
		TruckID:             a.TruckID,
		Start:               a.StartDate,
		End:                 a.EndDate,
		ExcludeAssignmentID: &id,
	})
	if err != nil {
		return err
	}
	return res.Err()
}
