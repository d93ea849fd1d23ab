package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"trucking-dispatch-core/internal/domain"
)

// FleetRepo answers driver/truck qualification from the local fleet tables.
type FleetRepo struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewFleetRepo creates a new FleetRepo.
func NewFleetRepo(db *pgxpool.Pool) *FleetRepo {
	return &FleetRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *FleetRepo) driver(ctx context.Context, id uuid.UUID) (*domain.Driver, error) {
	var d domain.Driver
	row := r.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)
	if err := scanDriver(row, &d); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get driver %s: %w", id, err)
	}
	return &d, nil
}

func (r *FleetRepo) truck(ctx context.Context, id uuid.UUID) (*domain.Truck, error) {
	var t domain.Truck
	row := r.db.QueryRow(ctx, `SELECT `+truckColumns+` FROM trucks WHERE id = $1`, id)
	if err := scanTruck(row, &t); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get truck %s: %w", id, err)
	}
	return &t, nil
}

// IsDriverQualifiedForTruck checks carrier, license, employment and duty status.
func (r *FleetRepo) IsDriverQualifiedForTruck(ctx context.Context, driverID, truckID uuid.UUID) (bool, string, error) {
	d, err := r.driver(ctx, driverID)
	if err != nil {
		return false, "", err
	}
	if d == nil {
		return false, "driver not found", nil
	}
	t, err := r.truck(ctx, truckID)
	if err != nil {
		return false, "", err
	}
	if t == nil {
		return false, "truck not found", nil
	}
	ok, reason := domain.QualifyDriverForTruck(*d, *t, r.now())
	return ok, reason, nil
}

// IsDriverLicenseValid checks the driver's license expiry.
func (r *FleetRepo) IsDriverLicenseValid(ctx context.Context, driverID uuid.UUID) (bool, error) {
	d, err := r.driver(ctx, driverID)
	if err != nil {
		return false, err
	}
	if d == nil {
		return false, nil
	}
	return d.LicenseValid(r.now()), nil
}
