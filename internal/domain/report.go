package domain

import (
	"time"

	"github.com/google/uuid"
)

// IssueCategory classifies reconciliation findings.
type IssueCategory string

// Issue categories.
const (
	IssueOrderMismatch      IssueCategory = "dispatch_order_mismatch"
	IssueTripMismatch       IssueCategory = "dispatch_trip_mismatch"
	IssueResourceMismatch   IssueCategory = "assignment_resource_mismatch"
	IssueOrphanedAssignment IssueCategory = "orphaned_assignment"
	IssueResourceConflict   IssueCategory = "resource_conflict"
)

// DispatchLink is the read model reconciliation compares: a dispatch with the
// statuses of its order and trip.
type DispatchLink struct {
	DispatchID     uuid.UUID
	DispatchNumber string
	DispatchStatus DispatchStatus
	OrderID        uuid.UUID
	OrderStatus    OrderStatus
	TripID         *uuid.UUID
	TripStatus     TripStatus
}

// AssignmentView is an active assignment joined with its resources' duty statuses.
type AssignmentView struct {
	Assignment
	DriverDuty DriverDutyStatus
	TruckDuty  TruckDutyStatus
}

// StatusMismatch is an order or trip whose stored status disagrees with its dispatch.
type StatusMismatch struct {
	DispatchID     uuid.UUID      `json:"dispatch_id" yaml:"dispatch_id"`
	DispatchNumber string         `json:"dispatch_number" yaml:"dispatch_number"`
	DispatchStatus DispatchStatus `json:"dispatch_status" yaml:"dispatch_status"`
	EntityID       uuid.UUID      `json:"entity_id" yaml:"entity_id"`
	Stored         string         `json:"stored_status" yaml:"stored_status"`
	Expected       string         `json:"expected_status" yaml:"expected_status"`
}

// ResourceMismatch is an active assignment whose driver or truck duty status disagrees with it.
type ResourceMismatch struct {
	AssignmentID     uuid.UUID        `json:"assignment_id" yaml:"assignment_id"`
	AssignmentStatus AssignmentStatus `json:"assignment_status" yaml:"assignment_status"`
	DriverID         uuid.UUID        `json:"driver_id" yaml:"driver_id"`
	TruckID          uuid.UUID        `json:"truck_id" yaml:"truck_id"`
	Issues           []string         `json:"issues" yaml:"issues"`
}

// OrphanedAssignment is an active assignment without a dispatch.
type OrphanedAssignment struct {
	AssignmentID uuid.UUID        `json:"assignment_id" yaml:"assignment_id"`
	DriverID     uuid.UUID        `json:"driver_id" yaml:"driver_id"`
	TruckID      uuid.UUID        `json:"truck_id" yaml:"truck_id"`
	Status       AssignmentStatus `json:"status" yaml:"status"`
}

// ConflictingAssignment is one member of a resource conflict.
type ConflictingAssignment struct {
	AssignmentID uuid.UUID        `json:"assignment_id" yaml:"assignment_id"`
	DispatchID   *uuid.UUID       `json:"dispatch_id,omitempty" yaml:"dispatch_id,omitempty"`
	Status       AssignmentStatus `json:"status" yaml:"status"`
	StartDate    time.Time        `json:"start_date" yaml:"start_date"`
	EndDate      *time.Time       `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	CreatedAt    time.Time        `json:"created_at" yaml:"created_at"`
}

// ResourceConflict groups overlapping active assignments of one driver or truck.
type ResourceConflict struct {
	Resource    ResourceKind            `json:"resource" yaml:"resource"`
	ResourceID  uuid.UUID               `json:"resource_id" yaml:"resource_id"`
	Assignments []ConflictingAssignment `json:"assignments" yaml:"assignments"`
}

// Report is the outcome of a detection pass for one tenant.
type Report struct {
	TenantID           uuid.UUID            `json:"tenant_id" yaml:"tenant_id"`
	GeneratedAt        time.Time            `json:"generated_at" yaml:"generated_at"`
	OrderMismatches    []StatusMismatch     `json:"dispatch_order_mismatches" yaml:"dispatch_order_mismatches"`
	TripMismatches     []StatusMismatch     `json:"dispatch_trip_mismatches" yaml:"dispatch_trip_mismatches"`
	ResourceMismatches []ResourceMismatch   `json:"assignment_resource_mismatches" yaml:"assignment_resource_mismatches"`
	Orphaned           []OrphanedAssignment `json:"orphaned_assignments" yaml:"orphaned_assignments"`
	ResourceConflicts  []ResourceConflict   `json:"resource_conflicts" yaml:"resource_conflicts"`
}

// Counts returns the number of findings per category.
func (r Report) Counts() map[IssueCategory]int {
	return map[IssueCategory]int{
		IssueOrderMismatch:      len(r.OrderMismatches),
		IssueTripMismatch:       len(r.TripMismatches),
		IssueResourceMismatch:   len(r.ResourceMismatches),
		IssueOrphanedAssignment: len(r.Orphaned),
		IssueResourceConflict:   len(r.ResourceConflicts),
	}
}

// TotalIssues is the number of findings across all categories.
func (r Report) TotalIssues() int {
	total := 0
	for _, n := range r.Counts() {
		total += n
	}
	return total
}

// CriticalIssues counts findings that break the no-double-booking invariant.
func (r Report) CriticalIssues() int {
	return len(r.ResourceConflicts)
}

// FixOutcome describes one attempted (or, in dry-run, planned) repair.
type FixOutcome struct {
	Category   IssueCategory `json:"category" yaml:"category"`
	DispatchID *uuid.UUID    `json:"dispatch_id,omitempty" yaml:"dispatch_id,omitempty"`
	EntityID   *uuid.UUID    `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
	Resource   ResourceKind  `json:"resource,omitempty" yaml:"resource,omitempty"`
	From       string        `json:"from,omitempty" yaml:"from,omitempty"`
	To         string        `json:"to,omitempty" yaml:"to,omitempty"`
	Kept       *uuid.UUID    `json:"kept_assignment_id,omitempty" yaml:"kept_assignment_id,omitempty"`
	Cancelled  []uuid.UUID   `json:"cancelled_assignment_ids,omitempty" yaml:"cancelled_assignment_ids,omitempty"`
	Action     string        `json:"action" yaml:"action"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// FixSummary aggregates a fix pass.
type FixSummary struct {
	Attempted      int                   `json:"total_fixes_attempted" yaml:"total_fixes_attempted"`
	Successful     int                   `json:"successful_fixes" yaml:"successful_fixes"`
	Failed         int                   `json:"failed_fixes" yaml:"failed_fixes"`
	Skipped        int                   `json:"skipped_fixes" yaml:"skipped_fixes"`
	ByCategory     map[IssueCategory]int `json:"by_category" yaml:"by_category"`
	CriticalIssues int                   `json:"critical_issues" yaml:"critical_issues"`
}

// FixResult is the outcome of a fix pass for one tenant.
type FixResult struct {
	TenantID uuid.UUID    `json:"tenant_id" yaml:"tenant_id"`
	DryRun   bool         `json:"dry_run" yaml:"dry_run"`
	Applied  []FixOutcome `json:"fixes_applied" yaml:"fixes_applied"`
	Skipped  []FixOutcome `json:"fixes_skipped" yaml:"fixes_skipped"`
	Failed   []FixOutcome `json:"fixes_failed" yaml:"fixes_failed"`
	Summary  FixSummary   `json:"summary" yaml:"summary"`
	FixedAt  time.Time    `json:"fixed_at" yaml:"fixed_at"`
}
