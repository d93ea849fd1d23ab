package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assignment is a time-bounded claim that a driver operates a truck.
// A nil EndDate means the window is open-ended.
type Assignment struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	DriverID   uuid.UUID
	TruckID    uuid.UUID
	CarrierID  *uuid.UUID
	DispatchID *uuid.UUID
	StartDate  time.Time
	EndDate    *time.Time
	Status     AssignmentStatus
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Close moves the assignment to a closing status and clamps the end date to now,
// but never before the start date.
func (a *Assignment) Close(status AssignmentStatus, now time.Time) {
	end := ClampEndDate(a.StartDate, now)
	a.Status = status
	a.EndDate = &end
	a.UpdatedAt = now
}

// ClampEndDate returns now, or start when now precedes start.
func ClampEndDate(start, now time.Time) time.Time {
	if now.Before(start) {
		return start
	}
	return now
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. A nil end is unbounded.
func Overlaps(s1 time.Time, e1 *time.Time, s2 time.Time, e2 *time.Time) bool {
	if e2 != nil && !s1.Before(*e2) {
		return false
	}
	if e1 != nil && !s2.Before(*e1) {
		return false
	}
	return true
}

// ResourceKind names the contended fleet resources.
type ResourceKind string

// Resource kinds.
const (
	ResourceDriver ResourceKind = "driver"
	ResourceTruck  ResourceKind = "truck"
)

// ConflictQuery asks for an active assignment of a resource overlapping a window.
type ConflictQuery struct {
	Kind       ResourceKind
	ResourceID uuid.UUID
	Start      time.Time
	End        *time.Time
	ExcludeID  *uuid.UUID
}
