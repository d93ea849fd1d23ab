//go:build integration

package repository_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/ports/dispatchtx"
	"trucking-dispatch-core/internal/repository"
	"trucking-dispatch-core/internal/service/dispatch"
	"trucking-dispatch-core/internal/service/history"
	"trucking-dispatch-core/internal/service/resourcelock"
	"trucking-dispatch-core/internal/service/statussync"
)

type StoreSuite struct {
	suite.Suite
	pool  *pgxpool.Pool
	store *repository.Store
}

type fixture struct {
	tenant   domain.Tenant
	carrier  uuid.UUID
	driver   domain.Driver
	truck    domain.Truck
	order    domain.Order
	trip     domain.Trip
	dispatch domain.Dispatch
}

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func (s *StoreSuite) SetupSuite() {
	s.Require().NotNil(tcPool, "tcPool must be initialized in TestMain")

	s.pool = tcPool
	s.store = repository.NewStore(tcPool, 2*time.Second)
}

func (s *StoreSuite) newFixture(status domain.DispatchStatus) fixture {
	ctx := context.Background()
	f := fixture{carrier: uuid.New()}

	f.tenant = domain.Tenant{Name: "acme", IsActive: true}
	s.Require().NoError(s.store.CreateTenant(ctx, &f.tenant))

	expires := time.Now().AddDate(1, 0, 0)
	f.driver = domain.Driver{
		TenantID:         f.tenant.ID,
		CarrierID:        &f.carrier,
		FullName:         "Jane Roe",
		LicenseNumber:    "CDL-1",
		LicenseExpiresAt: &expires,
		EmploymentStatus: domain.EmploymentActive,
		DutyStatus:       domain.DriverAvailable,
		IsActive:         true,
	}
	s.Require().NoError(s.store.CreateDriver(ctx, &f.driver))

	f.truck = domain.Truck{
		TenantID:   f.tenant.ID,
		CarrierID:  &f.carrier,
		UnitNumber: "U-100",
		DutyStatus: domain.TruckAvailable,
		IsActive:   true,
	}
	s.Require().NoError(s.store.CreateTruck(ctx, &f.truck))

	f.order = domain.Order{TenantID: f.tenant.ID, Status: domain.OrderPending, LoadTotal: 1800.5, Currency: "USD", IsActive: true, CreatedAt: base}
	s.Require().NoError(s.store.CreateOrder(ctx, &f.order))

	f.trip = domain.Trip{TenantID: f.tenant.ID, OrderID: f.order.ID, Status: domain.TripPending, IsActive: true, CreatedAt: base}
	s.Require().NoError(s.store.CreateTrip(ctx, &f.trip))

	f.dispatch = domain.Dispatch{
		TenantID:             f.tenant.ID,
		OrderID:              f.order.ID,
		TripID:               &f.trip.ID,
		CarrierID:            &f.carrier,
		CommissionPercentage: 12.5,
		Currency:             "USD",
		Status:               status,
		IsActive:             true,
		CreatedAt:            base,
	}
	s.Require().NoError(s.store.CreateDispatch(ctx, &f.dispatch))
	return f
}

func (s *StoreSuite) assignment(f fixture, status domain.AssignmentStatus, start time.Time, end *time.Time, created time.Time) domain.Assignment {
	a := domain.Assignment{
		TenantID:   f.tenant.ID,
		DriverID:   f.driver.ID,
		TruckID:    f.truck.ID,
		CarrierID:  &f.carrier,
		DispatchID: &f.dispatch.ID,
		StartDate:  start,
		EndDate:    end,
		Status:     status,
		IsActive:   true,
		CreatedAt:  created,
	}
	s.Require().NoError(s.store.CreateAssignment(context.Background(), &a))
	return a
}

func (s *StoreSuite) TestCreate_NumbersFromSequence() {
	f := s.newFixture(domain.DispatchPending)

	s.Equal("ORD-20250310-0001", f.order.Number)
	s.Equal("TRIP-20250310-0001", f.trip.Number)
	s.Equal("DISP-20250310-0001", f.dispatch.Number)
}

func (s *StoreSuite) TestNextNumber_PerDay() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchPending)

	n, err := s.store.NextNumber(ctx, f.tenant.ID, repository.PrefixDispatch, base)
	s.Require().NoError(err)
	s.Equal("DISP-20250310-0002", n)

	n, err = s.store.NextNumber(ctx, f.tenant.ID, repository.PrefixDispatch, base.AddDate(0, 0, 1))
	s.Require().NoError(err)
	s.Equal("DISP-20250311-0001", n)
}

func (s *StoreSuite) TestLockDispatch_RoundTrip() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchAssigned)

	err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.LockDispatch(ctx, f.dispatch.ID)
		s.Require().NoError(err)
		s.Require().NotNil(d)
		s.Equal(f.dispatch.Number, d.Number)
		s.Equal(f.trip.ID, *d.TripID)

		d.ApplyStatus(domain.DispatchInTransit, base.Add(time.Hour))
		return tx.UpdateDispatchStatus(ctx, d)
	})
	s.Require().NoError(err)

	err = s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.LockDispatch(ctx, f.dispatch.ID)
		s.Require().NoError(err)
		s.Equal(domain.DispatchInTransit, d.Status)
		s.Require().NotNil(d.ActualStart)
		s.WithinDuration(base.Add(time.Hour), *d.ActualStart, time.Millisecond)
		s.Nil(d.ActualEnd)

		o, err := tx.LockOrder(ctx, f.order.ID)
		s.Require().NoError(err)
		s.InDelta(1800.5, o.LoadTotal, 0.001)
		return nil
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) TestLock_MissingRowsAreNil() {
	ctx := context.Background()

	err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		d, err := tx.LockDispatch(ctx, uuid.New())
		s.Require().NoError(err)
		s.Nil(d)

		drv, err := tx.LockDriver(ctx, uuid.New())
		s.Require().NoError(err)
		s.Nil(drv)

		a, err := tx.LockAssignment(ctx, uuid.New())
		s.Require().NoError(err)
		s.Nil(a)
		return nil
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) TestUpdateTrip_Duration() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchInTransit)

	err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		t, err := tx.LockTrip(ctx, f.trip.ID)
		s.Require().NoError(err)
		t.Start(base)
		t.Finish(base.Add(90 * time.Minute))
		t.Status = domain.TripCompleted
		return tx.UpdateTrip(ctx, t)
	})
	s.Require().NoError(err)

	err = s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		t, err := tx.LockTrip(ctx, f.trip.ID)
		s.Require().NoError(err)
		s.Equal(domain.TripCompleted, t.Status)
		s.Require().NotNil(t.ActualDuration)
		s.Equal(90*time.Minute, *t.ActualDuration)
		return nil
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) TestFindConflictingAssignment() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchAssigned)

	older := s.assignment(f, domain.AssignmentAssigned, base, ptr(base.Add(4*time.Hour)), base.Add(-2*time.Hour))
	newer := s.assignment(f, domain.AssignmentOnDuty, base.Add(2*time.Hour), nil, base.Add(-time.Hour))
	s.assignment(f, domain.AssignmentCancelled, base, ptr(base.Add(8*time.Hour)), base.Add(-3*time.Hour))

	query := func(start time.Time, end *time.Time, exclude *uuid.UUID) *domain.Assignment {
		var found *domain.Assignment
		err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
			var err error
			found, err = tx.FindConflictingAssignment(ctx, domain.ConflictQuery{
				Kind:       domain.ResourceDriver,
				ResourceID: f.driver.ID,
				Start:      start,
				End:        end,
				ExcludeID:  exclude,
			})
			return err
		})
		s.Require().NoError(err)
		return found
	}

	got := query(base.Add(3*time.Hour), ptr(base.Add(5*time.Hour)), nil)
	s.Require().NotNil(got)
	s.Equal(older.ID, got.ID, "earliest created wins")

	got = query(base.Add(3*time.Hour), ptr(base.Add(5*time.Hour)), &older.ID)
	s.Require().NotNil(got)
	s.Equal(newer.ID, got.ID)

	s.Nil(query(base.Add(-2*time.Hour), ptr(base), nil), "back to back windows do not overlap")
	s.NotNil(query(base.Add(100*time.Hour), nil, &older.ID), "open-ended assignment overlaps the future")

	err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		n, err := tx.CountActiveAssignments(ctx, domain.ResourceTruck, f.truck.ID)
		s.Require().NoError(err)
		s.Equal(2, n)

		list, err := tx.LockDispatchAssignments(ctx, f.dispatch.ID)
		s.Require().NoError(err)
		s.Len(list, 3)
		s.True(slices.IsSortedFunc(list, func(a, b domain.Assignment) int {
			return slices.Compare(a.ID[:], b.ID[:])
		}))
		return nil
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) TestSavepoint_FailedOutboxKeepsTransaction() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchAssigned)

	n := domain.Notification{
		ID:        uuid.New(),
		TenantID:  f.tenant.ID,
		Ref:       domain.OrderRef(f.order.ID),
		OldStatus: "pending",
		NewStatus: "in_progress",
		Priority:  domain.PriorityMedium,
		Title:     "Order status changed",
		Message:   "Order moved to In Progress",
		CreatedAt: base,
	}

	err := s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		s.Require().NoError(tx.EnqueueNotification(ctx, &n))

		dup := n
		err := tx.EnqueueNotification(ctx, &dup)
		s.Require().Error(err)
		s.True(repository.IsDuplicate(err))

		o, err := tx.LockOrder(ctx, f.order.ID)
		s.Require().NoError(err)
		o.Status = domain.OrderInProgress
		o.UpdatedAt = base
		return tx.UpdateOrderStatus(ctx, o)
	})
	s.Require().NoError(err)

	pending, err := s.store.ListPendingNotifications(ctx, 10000, 100)
	s.Require().NoError(err)
	s.True(slices.ContainsFunc(pending, func(p domain.Notification) bool { return p.ID == n.ID }))
}

func (s *StoreSuite) TestWithTx_LockTimeoutIsRetryable() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchAssigned)
	impatient := repository.NewStore(s.pool, 100*time.Millisecond)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
			if _, err := tx.LockDispatch(ctx, f.dispatch.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()

	<-locked
	err := impatient.WithTx(ctx, func(tx dispatchtx.Repository) error {
		_, err := tx.LockDispatch(ctx, f.dispatch.ID)
		return err
	})
	close(release)

	s.Require().Error(err)
	s.True(apperr.IsRetryable(err), "lock timeout must be retryable: %v", err)
	s.Require().NoError(<-done)
}

func (s *StoreSuite) TestReader() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchAssigned)
	active := s.assignment(f, domain.AssignmentAssigned, base, ptr(base.Add(time.Hour)), base)
	s.assignment(f, domain.AssignmentOffDuty, base, ptr(base.Add(time.Hour)), base)

	tenants, err := s.store.ListTenants(ctx)
	s.Require().NoError(err)
	s.True(slices.ContainsFunc(tenants, func(t domain.Tenant) bool { return t.ID == f.tenant.ID }))

	links, err := s.store.ListDispatchLinks(ctx, f.tenant.ID)
	s.Require().NoError(err)
	s.Require().Len(links, 1)
	s.Equal(domain.DispatchAssigned, links[0].DispatchStatus)
	s.Equal(domain.OrderPending, links[0].OrderStatus)
	s.Require().NotNil(links[0].TripID)
	s.Equal(domain.TripPending, links[0].TripStatus)

	views, err := s.store.ListActiveAssignments(ctx, f.tenant.ID)
	s.Require().NoError(err)
	s.Require().Len(views, 1)
	s.Equal(active.ID, views[0].ID)
	s.Equal(domain.DriverAvailable, views[0].DriverDuty)
	s.Equal(domain.TruckAvailable, views[0].TruckDuty)
}

func (s *StoreSuite) TestOutbox_MarkFailedThenSent() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchAssigned)

	n := domain.Notification{
		TenantID:  f.tenant.ID,
		Ref:       domain.DispatchRef(f.dispatch.ID),
		OldStatus: "assigned",
		NewStatus: "in_transit",
		Priority:  domain.PriorityMedium,
		Title:     "Dispatch status changed",
		CreatedAt: base,
	}
	s.Require().NoError(s.store.WithTx(ctx, func(tx dispatchtx.Repository) error {
		return tx.EnqueueNotification(ctx, &n)
	}))

	find := func() (domain.Notification, bool) {
		pending, err := s.store.ListPendingNotifications(ctx, 10000, 100)
		s.Require().NoError(err)
		i := slices.IndexFunc(pending, func(p domain.Notification) bool { return p.ID == n.ID })
		if i < 0 {
			return domain.Notification{}, false
		}
		return pending[i], true
	}

	s.Require().NoError(s.store.MarkNotificationFailed(ctx, n.ID, "broker down"))
	got, ok := find()
	s.Require().True(ok)
	s.Equal(1, got.Attempts)
	s.Equal("broker down", got.LastError)
	s.Equal(domain.KindDispatch, got.Ref.Kind)

	s.Require().NoError(s.store.MarkNotificationSent(ctx, n.ID, base))
	_, ok = find()
	s.False(ok)
}

func (s *StoreSuite) TestFleetRepo_Qualification() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchPending)
	fleet := repository.NewFleetRepo(s.pool)

	ok, reason, err := fleet.IsDriverQualifiedForTruck(ctx, f.driver.ID, f.truck.ID)
	s.Require().NoError(err)
	s.True(ok, reason)

	other := uuid.New()
	foreign := domain.Truck{TenantID: f.tenant.ID, CarrierID: &other, UnitNumber: "U-200", DutyStatus: domain.TruckAvailable, IsActive: true}
	s.Require().NoError(s.store.CreateTruck(ctx, &foreign))

	ok, reason, err = fleet.IsDriverQualifiedForTruck(ctx, f.driver.ID, foreign.ID)
	s.Require().NoError(err)
	s.False(ok)
	s.Contains(reason, "different carriers")

	ok, reason, err = fleet.IsDriverQualifiedForTruck(ctx, uuid.New(), f.truck.ID)
	s.Require().NoError(err)
	s.False(ok)
	s.Equal("driver not found", reason)

	valid, err := fleet.IsDriverLicenseValid(ctx, f.driver.ID)
	s.Require().NoError(err)
	s.True(valid)
}

func (s *StoreSuite) TestChangeStatus_EndToEnd() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchPending)
	a := s.assignment(f, domain.AssignmentUnassigned, base, ptr(base.Add(10*time.Hour)), base)

	locks := resourcelock.NewManager(repository.NewFleetRepo(s.pool), logx.Nop(), nil)
	engine := statussync.NewEngine(history.NewRecorder(), locks, logx.Nop(), nil)
	svc := dispatch.NewService(s.store, locks, engine, 5*time.Second, logx.Nop(), nil)

	res, err := svc.ChangeStatus(ctx, dispatch.ChangeStatusInput{DispatchID: f.dispatch.ID, Status: domain.DispatchAssigned, Actor: "ops"})
	s.Require().NoError(err)
	s.Empty(res.Warnings)
	s.Len(res.Transitions, 3)

	var orderStatus, assignmentStatus, duty string
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, f.order.ID).Scan(&orderStatus))
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT status FROM assignments WHERE id = $1`, a.ID).Scan(&assignmentStatus))
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT duty_status FROM drivers WHERE id = $1`, f.driver.ID).Scan(&duty))
	s.Equal("in_progress", orderStatus)
	s.Equal("assigned", assignmentStatus)
	s.Equal("on_duty", duty)

	var rows int
	s.Require().NoError(s.pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM status_history WHERE tenant_id = $1
    `, f.tenant.ID).Scan(&rows))
	s.Equal(3, rows)
}

func (s *StoreSuite) dispatchService() *dispatch.Service {
	locks := resourcelock.NewManager(repository.NewFleetRepo(s.pool), logx.Nop(), nil)
	engine := statussync.NewEngine(history.NewRecorder(), locks, logx.Nop(), nil)
	return dispatch.NewService(s.store, locks, engine, 5*time.Second, logx.Nop(), nil)
}

type createResult struct {
	assignment domain.Assignment
	err        error
}

// createConcurrently releases every input at once and collects results in input order.
func createConcurrently(svc *dispatch.Service, inputs ...dispatch.CreateAssignmentInput) []createResult {
	results := make([]createResult, len(inputs))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			a, err := svc.CreateAssignment(context.Background(), in)
			results[i] = createResult{assignment: a, err: err}
		}()
	}
	close(start)
	wg.Wait()
	return results
}

func (s *StoreSuite) TestCreateAssignment_ConcurrentOverlapOnlyOneWins() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchPending)
	svc := s.dispatchService()

	in := dispatch.CreateAssignmentInput{
		TenantID: f.tenant.ID,
		DriverID: f.driver.ID,
		TruckID:  f.truck.ID,
		Start:    base,
		End:      ptr(base.Add(8 * time.Hour)),
	}
	late := in
	late.Start = base.Add(2 * time.Hour)
	late.End = ptr(base.Add(10 * time.Hour))

	results := createConcurrently(svc, in, late)

	var winner, loser *createResult
	for i := range results {
		if results[i].err == nil {
			s.Nil(winner, "both overlapping creates succeeded")
			winner = &results[i]
		} else {
			loser = &results[i]
		}
	}
	s.Require().NotNil(winner)
	s.Require().NotNil(loser)

	var unavailable *apperr.ResourceUnavailableError
	s.Require().True(errors.As(loser.err, &unavailable), "unexpected error: %v", loser.err)
	s.Equal(apperr.ReasonDriverConflict, unavailable.Reason)
	s.Require().NotNil(unavailable.ConflictingAssignmentID)
	s.Equal(winner.assignment.ID, *unavailable.ConflictingAssignmentID)
	s.False(apperr.IsRetryable(loser.err))

	var active int
	s.Require().NoError(s.pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM assignments WHERE driver_id = $1 AND is_active
    `, f.driver.ID).Scan(&active))
	s.Equal(1, active)
}

func (s *StoreSuite) TestCreateAssignment_CrossedPairsDoNotDeadlock() {
	ctx := context.Background()
	f := s.newFixture(domain.DispatchPending)
	svc := s.dispatchService()

	expires := time.Now().AddDate(1, 0, 0)
	driverB := domain.Driver{
		TenantID:         f.tenant.ID,
		CarrierID:        &f.carrier,
		FullName:         "John Doe",
		LicenseNumber:    "CDL-2",
		LicenseExpiresAt: &expires,
		EmploymentStatus: domain.EmploymentActive,
		DutyStatus:       domain.DriverAvailable,
		IsActive:         true,
	}
	s.Require().NoError(s.store.CreateDriver(ctx, &driverB))
	truckB := domain.Truck{
		TenantID:   f.tenant.ID,
		CarrierID:  &f.carrier,
		UnitNumber: "U-101",
		DutyStatus: domain.TruckAvailable,
		IsActive:   true,
	}
	s.Require().NoError(s.store.CreateTruck(ctx, &truckB))

	window := func(driverID, truckID uuid.UUID) dispatch.CreateAssignmentInput {
		return dispatch.CreateAssignmentInput{
			TenantID: f.tenant.ID,
			DriverID: driverID,
			TruckID:  truckID,
			Start:    base,
			End:      ptr(base.Add(8 * time.Hour)),
		}
	}

	// {A, B} и {B, A}: без общего порядка блокировок здесь был бы 40P01
	for range 5 {
		results := createConcurrently(svc,
			window(f.driver.ID, truckB.ID),
			window(driverB.ID, f.truck.ID),
		)
		for _, r := range results {
			s.Require().NoError(r.err)
		}
		s.NotEqual(results[0].assignment.ID, results[1].assignment.ID)

		_, err := s.pool.Exec(ctx, `
            UPDATE assignments SET is_active = false, status = 'cancelled'
            WHERE driver_id = ANY($1)
        `, []uuid.UUID{f.driver.ID, driverB.ID})
		s.Require().NoError(err)
	}
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
