package reconcile

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/service/statussync"
)

// BuildReport compares dispatch links and active assignments against what the
// sync engine would have produced.
func BuildReport(tenantID uuid.UUID, at time.Time, links []domain.DispatchLink, views []domain.AssignmentView) domain.Report {
	r := domain.Report{TenantID: tenantID, GeneratedAt: at}

	for _, l := range links {
		if want, ok := statussync.ExpectedOrderStatus(l.DispatchStatus); ok && l.OrderStatus != want {
			r.OrderMismatches = append(r.OrderMismatches, domain.StatusMismatch{
				DispatchID:     l.DispatchID,
				DispatchNumber: l.DispatchNumber,
				DispatchStatus: l.DispatchStatus,
				EntityID:       l.OrderID,
				Stored:         string(l.OrderStatus),
				Expected:       string(want),
			})
		}
		if l.TripID == nil {
			continue
		}
		if want, ok := statussync.ExpectedTripStatus(l.DispatchStatus); ok && l.TripStatus != want {
			r.TripMismatches = append(r.TripMismatches, domain.StatusMismatch{
				DispatchID:     l.DispatchID,
				DispatchNumber: l.DispatchNumber,
				DispatchStatus: l.DispatchStatus,
				EntityID:       *l.TripID,
				Stored:         string(l.TripStatus),
				Expected:       string(want),
			})
		}
	}

	active := make([]domain.AssignmentView, 0, len(views))
	for _, v := range views {
		if v.IsActive && v.Status.Active() {
			active = append(active, v)
		}
	}

	for _, v := range active {
		var issues []string
		if v.DriverDuty != domain.DriverOnDuty {
			issues = append(issues, fmt.Sprintf("driver duty status is %s, expected on_duty", dutyLabel(string(v.DriverDuty))))
		}
		if v.TruckDuty != domain.TruckOnDuty {
			issues = append(issues, fmt.Sprintf("truck duty status is %s, expected on_duty", dutyLabel(string(v.TruckDuty))))
		}
		if len(issues) > 0 {
			r.ResourceMismatches = append(r.ResourceMismatches, domain.ResourceMismatch{
				AssignmentID:     v.ID,
				AssignmentStatus: v.Status,
				DriverID:         v.DriverID,
				TruckID:          v.TruckID,
				Issues:           issues,
			})
		}
		if v.DispatchID == nil {
			r.Orphaned = append(r.Orphaned, domain.OrphanedAssignment{
				AssignmentID: v.ID,
				DriverID:     v.DriverID,
				TruckID:      v.TruckID,
				Status:       v.Status,
			})
		}
	}

	r.ResourceConflicts = append(
		findConflicts(domain.ResourceDriver, active, func(a domain.AssignmentView) uuid.UUID { return a.DriverID }),
		findConflicts(domain.ResourceTruck, active, func(a domain.AssignmentView) uuid.UUID { return a.TruckID })...,
	)
	return r
}

func dutyLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// findConflicts groups the assignments of each resource into connected
// components of the overlap relation and reports every component of two or more.
func findConflicts(kind domain.ResourceKind, views []domain.AssignmentView, key func(domain.AssignmentView) uuid.UUID) []domain.ResourceConflict {
	byResource := map[uuid.UUID][]domain.AssignmentView{}
	for _, v := range views {
		byResource[key(v)] = append(byResource[key(v)], v)
	}

	var out []domain.ResourceConflict
	for id, group := range byResource {
		if len(group) < 2 {
			continue
		}
		slices.SortFunc(group, func(a, b domain.AssignmentView) int {
			if c := a.StartDate.Compare(b.StartDate); c != 0 {
				return c
			}
			return cmp.Compare(a.ID.String(), b.ID.String())
		})

		// sweep by start date; a component ends when the next start is past every end seen so far
		var component []domain.AssignmentView
		var reach *time.Time
		flush := func() {
			if len(component) > 1 {
				out = append(out, conflictOf(kind, id, component))
			}
			component = nil
			reach = nil
		}
		for _, v := range group {
			if len(component) > 0 && reach != nil && !v.StartDate.Before(*reach) {
				flush()
			}
			if len(component) == 0 {
				reach = v.EndDate
			} else if reach != nil && (v.EndDate == nil || v.EndDate.After(*reach)) {
				reach = v.EndDate
			}
			component = append(component, v)
		}
		flush()
	}

	slices.SortFunc(out, func(a, b domain.ResourceConflict) int {
		return cmp.Compare(a.ResourceID.String(), b.ResourceID.String())
	})
	return out
}

func conflictOf(kind domain.ResourceKind, id uuid.UUID, views []domain.AssignmentView) domain.ResourceConflict {
	c := domain.ResourceConflict{Resource: kind, ResourceID: id}
	for _, v := range views {
		c.Assignments = append(c.Assignments, memberOf(v.Assignment))
	}
	slices.SortFunc(c.Assignments, func(a, b domain.ConflictingAssignment) int {
		if x := a.CreatedAt.Compare(b.CreatedAt); x != 0 {
			return x
		}
		return cmp.Compare(a.AssignmentID.String(), b.AssignmentID.String())
	})
	return c
}

func memberOf(a domain.Assignment) domain.ConflictingAssignment {
	return domain.ConflictingAssignment{
		AssignmentID: a.ID,
		DispatchID:   a.DispatchID,
		Status:       a.Status,
		StartDate:    a.StartDate,
		EndDate:      a.EndDate,
		CreatedAt:    a.CreatedAt,
	}
}
