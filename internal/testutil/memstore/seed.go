package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
)

// Seed builds consistent fixtures for one tenant and carrier.
type Seed struct {
	Store     *Store
	TenantID  uuid.UUID
	CarrierID uuid.UUID
	Now       time.Time
	seq       int
}

// NewSeed registers an active tenant and returns a fixture builder for it.
func NewSeed(s *Store, now time.Time) *Seed {
	seed := &Seed{Store: s, TenantID: uuid.New(), CarrierID: uuid.New(), Now: now}
	s.PutTenant(domain.Tenant{ID: seed.TenantID, Name: "tenant", IsActive: true})
	return seed
}

func (s *Seed) next(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%s-%04d", prefix, s.Now.Format("20060102"), s.seq)
}

// Driver seeds an available driver with a valid license at the seed carrier.
func (s *Seed) Driver() domain.Driver {
	carrier := s.CarrierID
	expires := s.Now.AddDate(1, 0, 0)
	d := domain.Driver{
		ID:               uuid.New(),
		TenantID:         s.TenantID,
		CarrierID:        &carrier,
		FullName:         s.next("DRV"),
		LicenseNumber:    "CDL-" + s.next("L"),
		LicenseExpiresAt: &expires,
		EmploymentStatus: domain.EmploymentActive,
		DutyStatus:       domain.DriverAvailable,
		IsActive:         true,
	}
	s.Store.PutDriver(d)
	return d
}

// Truck seeds an available truck at the seed carrier.
func (s *Seed) Truck() domain.Truck {
	carrier := s.CarrierID
	t := domain.Truck{
		ID:         uuid.New(),
		TenantID:   s.TenantID,
		CarrierID:  &carrier,
		UnitNumber: s.next("UNIT"),
		DutyStatus: domain.TruckAvailable,
		IsActive:   true,
	}
	s.Store.PutTruck(t)
	return t
}

// Order seeds an order.
func (s *Seed) Order(status domain.OrderStatus) domain.Order {
	o := domain.Order{
		ID:        uuid.New(),
		TenantID:  s.TenantID,
		Number:    s.next("ORD"),
		Status:    status,
		LoadTotal: 2500,
		Currency:  "USD",
		IsActive:  true,
		CreatedAt: s.Now,
		UpdatedAt: s.Now,
	}
	s.Store.PutOrder(o)
	return o
}

// Trip seeds a trip for an order.
func (s *Seed) Trip(orderID uuid.UUID, status domain.TripStatus) domain.Trip {
	t := domain.Trip{
		ID:        uuid.New(),
		TenantID:  s.TenantID,
		OrderID:   orderID,
		Number:    s.next("TRIP"),
		Status:    status,
		IsActive:  true,
		CreatedAt: s.Now,
		UpdatedAt: s.Now,
	}
	s.Store.PutTrip(t)
	return t
}

// Dispatch seeds a dispatch over an order and an optional trip.
func (s *Seed) Dispatch(orderID uuid.UUID, tripID *uuid.UUID, status domain.DispatchStatus) domain.Dispatch {
	carrier := s.CarrierID
	d := domain.Dispatch{
		ID:                   uuid.New(),
		TenantID:             s.TenantID,
		Number:               s.next("DISP"),
		OrderID:              orderID,
		TripID:               tripID,
		CarrierID:            &carrier,
		CommissionPercentage: 10,
		Currency:             "USD",
		Status:               status,
		IsActive:             true,
		CreatedAt:            s.Now,
		UpdatedAt:            s.Now,
	}
	s.Store.PutDispatch(d)
	return d
}

// AssignmentSpec describes an assignment fixture. Zero CreatedAt uses the seed clock.
type AssignmentSpec struct {
	DriverID   uuid.UUID
	TruckID    uuid.UUID
	DispatchID *uuid.UUID
	Status     domain.AssignmentStatus
	Start      time.Time
	End        *time.Time
	CreatedAt  time.Time
}

// Assignment seeds an assignment.
func (s *Seed) Assignment(spec AssignmentSpec) domain.Assignment {
	created := spec.CreatedAt
	if created.IsZero() {
		created = s.Now
	}
	carrier := s.CarrierID
	a := domain.Assignment{
		ID:         uuid.New(),
		TenantID:   s.TenantID,
		DriverID:   spec.DriverID,
		TruckID:    spec.TruckID,
		CarrierID:  &carrier,
		DispatchID: spec.DispatchID,
		StartDate:  spec.Start,
		EndDate:    spec.End,
		Status:     spec.Status,
		IsActive:   true,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	s.Store.PutAssignment(a)
	return a
}

// Qualifier answers qualification from the committed store contents, the same
// rules the Postgres fleet repository applies.
type Qualifier struct {
	Store *Store
	Now   func() time.Time
}

// IsDriverQualifiedForTruck checks carrier, employment and duty status.
func (q Qualifier) IsDriverQualifiedForTruck(_ context.Context, driverID, truckID uuid.UUID) (bool, string, error) {
	d := q.Store.Driver(driverID)
	t := q.Store.Truck(truckID)
	ok, reason := domain.QualifyDriverForTruck(d, t, q.now())
	return ok, reason, nil
}

// IsDriverLicenseValid checks the driver's license expiry.
func (q Qualifier) IsDriverLicenseValid(_ context.Context, driverID uuid.UUID) (bool, error) {
	return q.Store.Driver(driverID).LicenseValid(q.now()), nil
}

func (q Qualifier) now() time.Time {
	if q.Now == nil {
		return time.Now().UTC()
	}
	return q.Now()
}

// Qualifier returns a qualifier evaluated at the seed clock.
func (s *Seed) Qualifier() Qualifier {
	now := s.Now
	return Qualifier{Store: s.Store, Now: func() time.Time { return now }}
}
