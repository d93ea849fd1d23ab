package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/ports/dispatchtx"
)

// The back office owns these rows; the dispatch core only creates them for seeding
// and tests. Empty numbers are drawn from the tenant sequence.

// CreateTenant - insert a tenant. A nil id is generated.
func (s *Store) CreateTenant(ctx context.Context, t *domain.Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `INSERT INTO tenants (id, name, is_active) VALUES ($1, $2, $3)`,
		t.ID, t.Name, t.IsActive)
	if err != nil {
		return wrapf(err, "create tenant")
	}
	return nil
}

// CreateDriver - insert a driver.
func (s *Store) CreateDriver(ctx context.Context, d *domain.Driver) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO drivers (id, tenant_id, carrier_id, full_name, license_number, license_expires_at,
                             employment_status, duty_status, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, d.ID, d.TenantID, d.CarrierID, d.FullName, d.LicenseNumber, d.LicenseExpiresAt,
		string(d.EmploymentStatus), string(d.DutyStatus), d.IsActive)
	if err != nil {
		return wrapf(err, "create driver")
	}
	return nil
}

// CreateTruck - insert a truck.
func (s *Store) CreateTruck(ctx context.Context, t *domain.Truck) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO trucks (id, tenant_id, carrier_id, unit_number, duty_status, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, t.ID, t.TenantID, t.CarrierID, t.UnitNumber, string(t.DutyStatus), t.IsActive)
	if err != nil {
		return wrapf(err, "create truck")
	}
	return nil
}

func (s *Store) number(ctx context.Context, current *string, tenantID uuid.UUID, prefix string, at time.Time) error {
	if *current != "" {
		return nil
	}
	n, err := s.NextNumber(ctx, tenantID, prefix, at)
	if err != nil {
		return err
	}
	*current = n
	return nil
}

func stamp(created, updated *time.Time) {
	if created.IsZero() {
		*created = time.Now().UTC()
	}
	if updated.IsZero() {
		*updated = *created
	}
}

// CreateOrder - insert an order.
func (s *Store) CreateOrder(ctx context.Context, o *domain.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	stamp(&o.CreatedAt, &o.UpdatedAt)
	if err := s.number(ctx, &o.Number, o.TenantID, PrefixOrder, o.CreatedAt); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO orders (id, tenant_id, number, status, pickup_at, delivery_at, load_total,
                            currency, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, o.ID, o.TenantID, o.Number, string(o.Status), o.PickupAt, o.DeliveryAt, o.LoadTotal,
		o.Currency, o.IsActive, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return wrapf(err, "create order")
	}
	return nil
}

// CreateTrip - insert a trip.
func (s *Store) CreateTrip(ctx context.Context, t *domain.Trip) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	stamp(&t.CreatedAt, &t.UpdatedAt)
	if err := s.number(ctx, &t.Number, t.TenantID, PrefixTrip, t.CreatedAt); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO trips (id, tenant_id, order_id, number, status, start_time, end_time,
                           estimated_distance, estimated_duration_seconds, estimated_cost,
                           is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, t.ID, t.TenantID, t.OrderID, t.Number, string(t.Status), t.StartTime, t.EndTime,
		t.EstimatedDistance, toSeconds(t.EstimatedDuration), t.EstimatedCost,
		t.IsActive, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return wrapf(err, "create trip")
	}
	return nil
}

// CreateDispatch - insert a dispatch.
func (s *Store) CreateDispatch(ctx context.Context, d *domain.Dispatch) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	stamp(&d.CreatedAt, &d.UpdatedAt)
	if err := s.number(ctx, &d.Number, d.TenantID, PrefixDispatch, d.CreatedAt); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO dispatches (id, tenant_id, number, order_id, trip_id, driver_id, truck_id, carrier_id,
                                commission_percentage, commission_amount, currency, status,
                                actual_start, actual_end, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
    `, d.ID, d.TenantID, d.Number, d.OrderID, d.TripID, d.DriverID, d.TruckID, d.CarrierID,
		d.CommissionPercentage, d.CommissionAmount, d.Currency, string(d.Status),
		d.ActualStart, d.ActualEnd, d.IsActive, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return wrapf(err, "create dispatch")
	}
	return nil
}

// CreateAssignment - insert an assignment outside the availability check.
func (s *Store) CreateAssignment(ctx context.Context, a *domain.Assignment) error {
	stamp(&a.CreatedAt, &a.UpdatedAt)
	return s.WithTx(ctx, func(tx dispatchtx.Repository) error {
		return tx.InsertAssignment(ctx, a)
	})
}
