package domain

import (
	"time"

	"github.com/google/uuid"
)

// Driver is the subset of fleet driver data the dispatch core reads and updates.
type Driver struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	CarrierID        *uuid.UUID
	FullName         string
	LicenseNumber    string
	LicenseExpiresAt *time.Time
	EmploymentStatus EmploymentStatus
	DutyStatus       DriverDutyStatus
	IsActive         bool
}

// LicenseValid reports whether the driver holds a license that has not expired at now.
func (d Driver) LicenseValid(now time.Time) bool {
	if d.LicenseNumber == "" || d.LicenseExpiresAt == nil {
		return false
	}
	return d.LicenseExpiresAt.After(now)
}

// Truck is the subset of fleet truck data the dispatch core reads and updates.
type Truck struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	CarrierID  *uuid.UUID
	UnitNumber string
	DutyStatus TruckDutyStatus
	IsActive   bool
}

// Tenant is a back office customer.
type Tenant struct {
	ID       uuid.UUID
	Name     string
	IsActive bool
}

// QualifyDriverForTruck applies the fleet qualification rules: same carrier,
// valid license, active employment, and a duty status that allows work.
func QualifyDriverForTruck(d Driver, t Truck, now time.Time) (bool, string) {
	switch {
	case !d.IsActive:
		return false, "driver is inactive"
	case !t.IsActive:
		return false, "truck is inactive"
	case d.CarrierID == nil || t.CarrierID == nil || *d.CarrierID != *t.CarrierID:
		return false, "driver and truck belong to different carriers"
	case !d.LicenseValid(now):
		return false, "driver license is missing or expired"
	case d.EmploymentStatus != EmploymentActive:
		return false, "driver employment is " + string(d.EmploymentStatus)
	case d.DutyStatus != DriverAvailable && d.DutyStatus != DriverOnDuty:
		return false, "driver duty status is " + string(d.DutyStatus)
	case t.DutyStatus == TruckInMaintenance || t.DutyStatus == TruckOutOfService:
		return false, "truck duty status is " + string(t.DutyStatus)
	}
	return true, ""
}
