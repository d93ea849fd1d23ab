package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
)

const dispatchColumns = `
	id, tenant_id, number, order_id, trip_id, driver_id, truck_id, carrier_id,
	commission_percentage, commission_amount, currency, status,
	actual_start, actual_end, is_active, created_at, updated_at`

// LockDispatch - select dispatch for update.
func (r *TxRepo) LockDispatch(ctx context.Context, id uuid.UUID) (*domain.Dispatch, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+dispatchColumns+` FROM dispatches WHERE id = $1 FOR UPDATE`, id)

	var d domain.Dispatch
	err := row.Scan(
		&d.ID, &d.TenantID, &d.Number, &d.OrderID, &d.TripID, &d.DriverID, &d.TruckID, &d.CarrierID,
		&d.CommissionPercentage, &d.CommissionAmount, &d.Currency, &d.Status,
		&d.ActualStart, &d.ActualEnd, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrapf(err, "lock dispatch %s", id)
	}
	return &d, nil
}

// UpdateDispatchStatus - persist status and actual start/end.
func (r *TxRepo) UpdateDispatchStatus(ctx context.Context, d *domain.Dispatch) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE dispatches
        SET status = $2, actual_start = $3, actual_end = $4, updated_at = $5
        WHERE id = $1
    `, d.ID, string(d.Status), d.ActualStart, d.ActualEnd, d.UpdatedAt)
	if err != nil {
		return wrapf(err, "update dispatch status %s", d.ID)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("dispatch %s not found", d.ID)
	}
	return nil
}

// LockOrder - select order for update.
func (r *TxRepo) LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT id, tenant_id, number, status, pickup_at, delivery_at, load_total::float8,
               currency, is_active, created_at, updated_at
        FROM orders
        WHERE id = $1
        FOR UPDATE
    `, id)

	var o domain.Order
	err := row.Scan(&o.ID, &o.TenantID, &o.Number, &o.Status, &o.PickupAt, &o.DeliveryAt, &o.LoadTotal,
		&o.Currency, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrapf(err, "lock order %s", id)
	}
	return &o, nil
}

// UpdateOrderStatus - update order status.
func (r *TxRepo) UpdateOrderStatus(ctx context.Context, o *domain.Order) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1
    `, o.ID, string(o.Status), o.UpdatedAt)
	if err != nil {
		return wrapf(err, "update order status %s", o.ID)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %s not found", o.ID)
	}
	return nil
}

// LockTrip - select trip for update.
func (r *TxRepo) LockTrip(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT id, tenant_id, order_id, number, status, start_time, end_time,
               estimated_distance, actual_distance, estimated_duration_seconds, actual_duration_seconds,
               estimated_cost, actual_cost, is_active, created_at, updated_at
        FROM trips
        WHERE id = $1
        FOR UPDATE
    `, id)

	var (
		t                 domain.Trip
		estimated, actual *int64
	)
	err := row.Scan(&t.ID, &t.TenantID, &t.OrderID, &t.Number, &t.Status, &t.StartTime, &t.EndTime,
		&t.EstimatedDistance, &t.ActualDistance, &estimated, &actual,
		&t.EstimatedCost, &t.ActualCost, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrapf(err, "lock trip %s", id)
	}
	t.EstimatedDuration = fromSeconds(estimated)
	t.ActualDuration = fromSeconds(actual)
	return &t, nil
}

// UpdateTrip - update trip status, times and actual duration.
func (r *TxRepo) UpdateTrip(ctx context.Context, t *domain.Trip) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE trips
        SET status = $2, start_time = $3, end_time = $4, actual_duration_seconds = $5, updated_at = $6
        WHERE id = $1
    `, t.ID, string(t.Status), t.StartTime, t.EndTime, toSeconds(t.ActualDuration), t.UpdatedAt)
	if err != nil {
		return wrapf(err, "update trip %s", t.ID)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("trip %s not found", t.ID)
	}
	return nil
}

func toSeconds(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	s := int64(d.Seconds())
	return &s
}

func fromSeconds(s *int64) *time.Duration {
	if s == nil {
		return nil
	}
	d := time.Duration(*s) * time.Second
	return &d
}
