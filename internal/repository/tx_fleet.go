package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
)

const (
	driverColumns = `id, tenant_id, carrier_id, full_name, license_number, license_expires_at,
	employment_status, duty_status, is_active`
	truckColumns = `id, tenant_id, carrier_id, unit_number, duty_status, is_active`
)

func scanDriver(row scanner, d *domain.Driver) error {
	return row.Scan(&d.ID, &d.TenantID, &d.CarrierID, &d.FullName, &d.LicenseNumber, &d.LicenseExpiresAt,
		&d.EmploymentStatus, &d.DutyStatus, &d.IsActive)
}

func scanTruck(row scanner, t *domain.Truck) error {
	return row.Scan(&t.ID, &t.TenantID, &t.CarrierID, &t.UnitNumber, &t.DutyStatus, &t.IsActive)
}

// LockDriver - select driver for update.
func (r *TxRepo) LockDriver(ctx context.Context, id uuid.UUID) (*domain.Driver, error) {
	var d domain.Driver
	row := r.tx.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1 FOR UPDATE`, id)
	if err := scanDriver(row, &d); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrapf(err, "lock driver %s", id)
	}
	return &d, nil
}

// LockTruck - select truck for update.
func (r *TxRepo) LockTruck(ctx context.Context, id uuid.UUID) (*domain.Truck, error) {
	var t domain.Truck
	row := r.tx.QueryRow(ctx, `SELECT `+truckColumns+` FROM trucks WHERE id = $1 FOR UPDATE`, id)
	if err := scanTruck(row, &t); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, wrapf(err, "lock truck %s", id)
	}
	return &t, nil
}

// UpdateDriverDutyStatus - update driver duty status.
func (r *TxRepo) UpdateDriverDutyStatus(ctx context.Context, id uuid.UUID, status domain.DriverDutyStatus) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE drivers SET duty_status = $2, updated_at = now() WHERE id = $1
    `, id, string(status))
	if err != nil {
		return wrapf(err, "update driver duty status %s", id)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("driver %s not found", id)
	}
	return nil
}

// UpdateTruckDutyStatus - update truck duty status.
func (r *TxRepo) UpdateTruckDutyStatus(ctx context.Context, id uuid.UUID, status domain.TruckDutyStatus) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE trucks SET duty_status = $2, updated_at = now() WHERE id = $1
    `, id, string(status))
	if err != nil {
		return wrapf(err, "update truck duty status %s", id)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("truck %s not found", id)
	}
	return nil
}
