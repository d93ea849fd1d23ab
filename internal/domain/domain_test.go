package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"trucking-dispatch-core/internal/domain"
)

func at(h, m int) time.Time {
	return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func TestOverlaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		s1     time.Time
		e1     *time.Time
		s2     time.Time
		e2     *time.Time
		expect bool
	}{
		{"partial overlap", at(10, 0), ptr(at(12, 0)), at(11, 0), ptr(at(13, 0)), true},
		{"contained", at(10, 0), ptr(at(14, 0)), at(11, 0), ptr(at(12, 0)), true},
		{"touching end is free", at(10, 0), ptr(at(12, 0)), at(12, 0), ptr(at(13, 0)), false},
		{"touching start is free", at(12, 0), ptr(at(13, 0)), at(10, 0), ptr(at(12, 0)), false},
		{"disjoint", at(8, 0), ptr(at(9, 0)), at(10, 0), ptr(at(11, 0)), false},
		{"open-ended first", at(10, 0), nil, at(20, 0), ptr(at(21, 0)), true},
		{"open-ended second", at(10, 0), ptr(at(11, 0)), at(9, 0), nil, true},
		{"open-ended second after first", at(10, 0), ptr(at(11, 0)), at(11, 0), nil, false},
		{"both open-ended", at(10, 0), nil, at(23, 0), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expect, domain.Overlaps(tt.s1, tt.e1, tt.s2, tt.e2))
			require.Equal(t, tt.expect, domain.Overlaps(tt.s2, tt.e2, tt.s1, tt.e1), "overlap must be symmetric")
		})
	}
}

func TestAssignment_Close_ClampsToStart(t *testing.T) {
	t.Parallel()

	future := at(18, 0)
	a := domain.Assignment{StartDate: future, Status: domain.AssignmentAssigned}

	a.Close(domain.AssignmentCancelled, at(9, 0))

	require.Equal(t, domain.AssignmentCancelled, a.Status)
	require.NotNil(t, a.EndDate)
	require.True(t, a.EndDate.Equal(future))
}

func TestAssignment_Close_UsesNow(t *testing.T) {
	t.Parallel()

	a := domain.Assignment{StartDate: at(8, 0), Status: domain.AssignmentOnDuty}

	a.Close(domain.AssignmentOffDuty, at(17, 30))

	require.True(t, a.EndDate.Equal(at(17, 30)))
	require.False(t, a.EndDate.Before(a.StartDate))
}

func TestTrip_StartAndFinish(t *testing.T) {
	t.Parallel()

	var trip domain.Trip
	trip.Start(at(8, 0))
	trip.Start(at(9, 0))
	require.True(t, trip.StartTime.Equal(at(8, 0)), "start must not be overwritten")

	trip.Finish(at(11, 15))
	require.True(t, trip.EndTime.Equal(at(11, 15)))
	require.NotNil(t, trip.ActualDuration)
	require.Equal(t, 3*time.Hour+15*time.Minute, *trip.ActualDuration)
}

func TestTrip_FinishWithoutStart(t *testing.T) {
	t.Parallel()

	var trip domain.Trip
	trip.Finish(at(11, 0))

	require.NotNil(t, trip.EndTime)
	require.Nil(t, trip.ActualDuration)
}

func TestDispatch_ApplyStatus_Stamps(t *testing.T) {
	t.Parallel()

	d := domain.Dispatch{Status: domain.DispatchAssigned}

	d.ApplyStatus(domain.DispatchInTransit, at(7, 0))
	require.True(t, d.ActualStart.Equal(at(7, 0)))
	require.Nil(t, d.ActualEnd)

	d.ApplyStatus(domain.DispatchDelivered, at(15, 0))
	require.True(t, d.ActualEnd.Equal(at(15, 0)))

	d.ApplyStatus(domain.DispatchCompleted, at(20, 0))
	require.True(t, d.ActualEnd.Equal(at(15, 0)), "end must keep the delivery time")
	require.Equal(t, domain.DispatchCompleted, d.Status)
}

func TestPriorityFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, domain.PriorityHigh, domain.PriorityFor(string(domain.OrderCompleted)))
	require.Equal(t, domain.PriorityHigh, domain.PriorityFor(string(domain.TripCancelled)))
	require.Equal(t, domain.PriorityHigh, domain.PriorityFor(string(domain.AssignmentOffDuty)))
	require.Equal(t, domain.PriorityMedium, domain.PriorityFor(string(domain.AssignmentOnDuty)))
	require.Equal(t, domain.PriorityMedium, domain.PriorityFor(string(domain.OrderInProgress)))
}

func TestEntityRef_Constructors(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	require.Equal(t, domain.KindOrder, domain.OrderRef(id).Kind)
	require.Equal(t, domain.KindTrip, domain.TripRef(id).Kind)
	require.Equal(t, domain.KindDispatch, domain.DispatchRef(id).Kind)
	require.Equal(t, domain.KindAssignment, domain.AssignmentRef(id).Kind)
	require.Equal(t, "assignment:"+id.String(), domain.AssignmentRef(id).String())
	require.False(t, domain.EntityKind("invoice").Valid())
}

func TestReport_Counts(t *testing.T) {
	t.Parallel()

	r := domain.Report{
		OrderMismatches:   []domain.StatusMismatch{{}, {}},
		Orphaned:          []domain.OrphanedAssignment{{}},
		ResourceConflicts: []domain.ResourceConflict{{}},
	}

	require.Equal(t, 4, r.TotalIssues())
	require.Equal(t, 1, r.CriticalIssues())
	require.Equal(t, 2, r.Counts()[domain.IssueOrderMismatch])
	require.Equal(t, 0, r.Counts()[domain.IssueTripMismatch])
}

func TestDriver_LicenseValid(t *testing.T) {
	t.Parallel()

	now := at(12, 0)
	require.False(t, domain.Driver{}.LicenseValid(now))
	require.False(t, domain.Driver{LicenseNumber: "X1", LicenseExpiresAt: ptr(at(11, 0))}.LicenseValid(now))
	require.True(t, domain.Driver{LicenseNumber: "X1", LicenseExpiresAt: ptr(at(13, 0))}.LicenseValid(now))
}
