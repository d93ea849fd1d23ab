// Package dispatchtx declares the transactional entity store the dispatch core runs against.
package dispatchtx

import (
	"context"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
)

// Repository is the entity store scoped to one open transaction. Lock* methods take
// an exclusive row lock held until the transaction ends and return nil, nil when
// the row does not exist.
type Repository interface {
	LockDispatch(ctx context.Context, id uuid.UUID) (*domain.Dispatch, error)
	UpdateDispatchStatus(ctx context.Context, d *domain.Dispatch) error

	LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, o *domain.Order) error

	LockTrip(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	UpdateTrip(ctx context.Context, t *domain.Trip) error

	// LockDispatchAssignments locks the dispatch's is_active assignments in ascending id order.
	LockDispatchAssignments(ctx context.Context, dispatchID uuid.UUID) ([]domain.Assignment, error)
	LockAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)
	InsertAssignment(ctx context.Context, a *domain.Assignment) error
	UpdateAssignment(ctx context.Context, a *domain.Assignment) error

	LockDriver(ctx context.Context, id uuid.UUID) (*domain.Driver, error)
	LockTruck(ctx context.Context, id uuid.UUID) (*domain.Truck, error)
	UpdateDriverDutyStatus(ctx context.Context, id uuid.UUID, status domain.DriverDutyStatus) error
	UpdateTruckDutyStatus(ctx context.Context, id uuid.UUID, status domain.TruckDutyStatus) error

	// FindConflictingAssignment returns the earliest-created active assignment of the
	// resource overlapping the query window, or nil.
	FindConflictingAssignment(ctx context.Context, q domain.ConflictQuery) (*domain.Assignment, error)
	CountActiveAssignments(ctx context.Context, kind domain.ResourceKind, resourceID uuid.UUID) (int, error)

	// InsertStatusHistory and EnqueueNotification run under a savepoint: a failure
	// leaves the surrounding transaction usable.
	InsertStatusHistory(ctx context.Context, h *domain.StatusHistory) error
	EnqueueNotification(ctx context.Context, n *domain.Notification) error
}

// Runner is a transaction runner. fn's error rolls the transaction back.
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
