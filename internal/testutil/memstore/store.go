// Package memstore is an in-memory entity store for tests. Transactions are
// serialized by a single writer lock and work on a snapshot that is only
// published on commit, so a failing fn leaves the store untouched.
package memstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/ports/dispatchtx"
)

// ErrMissing is returned by updates of rows that do not exist.
var ErrMissing = errors.New("memstore: row not found")

type state struct {
	tenants       map[uuid.UUID]domain.Tenant
	orders        map[uuid.UUID]domain.Order
	trips         map[uuid.UUID]domain.Trip
	dispatches    map[uuid.UUID]domain.Dispatch
	assignments   map[uuid.UUID]domain.Assignment
	drivers       map[uuid.UUID]domain.Driver
	trucks        map[uuid.UUID]domain.Truck
	history       []domain.StatusHistory
	notifications []domain.Notification
	writes        int
}

func newState() *state {
	return &state{
		tenants:     map[uuid.UUID]domain.Tenant{},
		orders:      map[uuid.UUID]domain.Order{},
		trips:       map[uuid.UUID]domain.Trip{},
		dispatches:  map[uuid.UUID]domain.Dispatch{},
		assignments: map[uuid.UUID]domain.Assignment{},
		drivers:     map[uuid.UUID]domain.Driver{},
		trucks:      map[uuid.UUID]domain.Truck{},
	}
}

func (s *state) clone() *state {
	return &state{
		tenants:       maps.Clone(s.tenants),
		orders:        maps.Clone(s.orders),
		trips:         maps.Clone(s.trips),
		dispatches:    maps.Clone(s.dispatches),
		assignments:   maps.Clone(s.assignments),
		drivers:       maps.Clone(s.drivers),
		trucks:        maps.Clone(s.trucks),
		history:       slices.Clone(s.history),
		notifications: slices.Clone(s.notifications),
		writes:        s.writes,
	}
}

// Store is the in-memory store.
type Store struct {
	txMu   sync.Mutex
	dataMu sync.RWMutex
	data   *state

	// HistoryErr and NotifyErr, when set, make the sink writes fail.
	HistoryErr error
	NotifyErr  error
	// BeforeCommit runs inside WithTx after fn succeeded; an error rolls back.
	BeforeCommit func() error
}

// New creates an empty store.
func New() *Store {
	return &Store{data: newState()}
}

var _ dispatchtx.Runner = (*Store)(nil)

// WithTx runs fn against a private snapshot and publishes it when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.dataMu.RLock()
	snapshot := s.data.clone()
	s.dataMu.RUnlock()

	if err := fn(&tx{st: snapshot, store: s}); err != nil {
		return err
	}
	if s.BeforeCommit != nil {
		if err := s.BeforeCommit(); err != nil {
			return err
		}
	}

	s.dataMu.Lock()
	s.data = snapshot
	s.dataMu.Unlock()
	return nil
}

func (s *Store) read(fn func(st *state)) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	fn(s.data)
}

func (s *Store) write(fn func(st *state)) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	fn(s.data)
}

// PutTenant seeds a tenant.
func (s *Store) PutTenant(t domain.Tenant) { s.write(func(st *state) { st.tenants[t.ID] = t }) }

// PutOrder seeds an order.
func (s *Store) PutOrder(o domain.Order) { s.write(func(st *state) { st.orders[o.ID] = o }) }

// PutTrip seeds a trip.
func (s *Store) PutTrip(t domain.Trip) { s.write(func(st *state) { st.trips[t.ID] = t }) }

// PutDispatch seeds a dispatch.
func (s *Store) PutDispatch(d domain.Dispatch) { s.write(func(st *state) { st.dispatches[d.ID] = d }) }

// PutAssignment seeds an assignment.
func (s *Store) PutAssignment(a domain.Assignment) {
	s.write(func(st *state) { st.assignments[a.ID] = a })
}

// PutDriver seeds a driver.
func (s *Store) PutDriver(d domain.Driver) { s.write(func(st *state) { st.drivers[d.ID] = d }) }

// PutTruck seeds a truck.
func (s *Store) PutTruck(t domain.Truck) { s.write(func(st *state) { st.trucks[t.ID] = t }) }

// Order returns the committed order.
func (s *Store) Order(id uuid.UUID) (o domain.Order) {
	s.read(func(st *state) { o = st.orders[id] })
	return o
}

// Trip returns the committed trip.
func (s *Store) Trip(id uuid.UUID) (t domain.Trip) {
	s.read(func(st *state) { t = st.trips[id] })
	return t
}

// Dispatch returns the committed dispatch.
func (s *Store) Dispatch(id uuid.UUID) (d domain.Dispatch) {
	s.read(func(st *state) { d = st.dispatches[id] })
	return d
}

// Assignment returns the committed assignment.
func (s *Store) Assignment(id uuid.UUID) (a domain.Assignment) {
	s.read(func(st *state) { a = st.assignments[id] })
	return a
}

// Assignments returns every committed assignment.
func (s *Store) Assignments() (out []domain.Assignment) {
	s.read(func(st *state) { out = slices.Collect(maps.Values(st.assignments)) })
	return out
}

// Driver returns the committed driver.
func (s *Store) Driver(id uuid.UUID) (d domain.Driver) {
	s.read(func(st *state) { d = st.drivers[id] })
	return d
}

// Truck returns the committed truck.
func (s *Store) Truck(id uuid.UUID) (t domain.Truck) {
	s.read(func(st *state) { t = st.trucks[id] })
	return t
}

// History returns the committed history rows.
func (s *Store) History() (out []domain.StatusHistory) {
	s.read(func(st *state) { out = slices.Clone(st.history) })
	return out
}

// HistoryFor returns the committed history rows of one entity kind.
func (s *Store) HistoryFor(kind domain.EntityKind) []domain.StatusHistory {
	var out []domain.StatusHistory
	for _, h := range s.History() {
		if h.Ref.Kind == kind {
			out = append(out, h)
		}
	}
	return out
}

// Notifications returns the committed outbox rows.
func (s *Store) Notifications() (out []domain.Notification) {
	s.read(func(st *state) { out = slices.Clone(st.notifications) })
	return out
}

// Writes counts committed entity writes (history and outbox excluded).
func (s *Store) Writes() (n int) {
	s.read(func(st *state) { n = st.writes })
	return n
}

// ListTenants returns the active tenants.
func (s *Store) ListTenants(context.Context) ([]domain.Tenant, error) {
	var out []domain.Tenant
	s.read(func(st *state) {
		for _, t := range st.tenants {
			if t.IsActive {
				out = append(out, t)
			}
		}
	})
	slices.SortFunc(out, func(a, b domain.Tenant) int { return compareIDs(a.ID, b.ID) })
	return out, nil
}

// ListDispatchLinks returns the tenant's active dispatches with order and trip statuses.
func (s *Store) ListDispatchLinks(_ context.Context, tenantID uuid.UUID) ([]domain.DispatchLink, error) {
	var out []domain.DispatchLink
	s.read(func(st *state) {
		for _, d := range st.dispatches {
			if d.TenantID != tenantID || !d.IsActive {
				continue
			}
			link := domain.DispatchLink{
				DispatchID:     d.ID,
				DispatchNumber: d.Number,
				DispatchStatus: d.Status,
				OrderID:        d.OrderID,
				OrderStatus:    st.orders[d.OrderID].Status,
			}
			if d.TripID != nil {
				if trip, ok := st.trips[*d.TripID]; ok {
					id := trip.ID
					link.TripID = &id
					link.TripStatus = trip.Status
				}
			}
			out = append(out, link)
		}
	})
	slices.SortFunc(out, func(a, b domain.DispatchLink) int { return compareIDs(a.DispatchID, b.DispatchID) })
	return out, nil
}

// ListActiveAssignments returns the tenant's active assignments with duty statuses.
func (s *Store) ListActiveAssignments(_ context.Context, tenantID uuid.UUID) ([]domain.AssignmentView, error) {
	var out []domain.AssignmentView
	s.read(func(st *state) {
		for _, a := range st.assignments {
			if a.TenantID != tenantID || !a.IsActive || !a.Status.Active() {
				continue
			}
			out = append(out, domain.AssignmentView{
				Assignment: a,
				DriverDuty: st.drivers[a.DriverID].DutyStatus,
				TruckDuty:  st.trucks[a.TruckID].DutyStatus,
			})
		}
	})
	slices.SortFunc(out, func(a, b domain.AssignmentView) int { return compareIDs(a.ID, b.ID) })
	return out, nil
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

type tx struct {
	st    *state
	store *Store
}

var _ dispatchtx.Repository = (*tx)(nil)

func (t *tx) LockDispatch(_ context.Context, id uuid.UUID) (*domain.Dispatch, error) {
	d, ok := t.st.dispatches[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (t *tx) UpdateDispatchStatus(_ context.Context, d *domain.Dispatch) error {
	if _, ok := t.st.dispatches[d.ID]; !ok {
		return fmt.Errorf("dispatch %s: %w", d.ID, ErrMissing)
	}
	t.st.dispatches[d.ID] = *d
	t.st.writes++
	return nil
}

func (t *tx) LockOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (t *tx) UpdateOrderStatus(_ context.Context, o *domain.Order) error {
	if _, ok := t.st.orders[o.ID]; !ok {
		return fmt.Errorf("order %s: %w", o.ID, ErrMissing)
	}
	t.st.orders[o.ID] = *o
	t.st.writes++
	return nil
}

func (t *tx) LockTrip(_ context.Context, id uuid.UUID) (*domain.Trip, error) {
	tr, ok := t.st.trips[id]
	if !ok {
		return nil, nil
	}
	return &tr, nil
}

func (t *tx) UpdateTrip(_ context.Context, tr *domain.Trip) error {
	if _, ok := t.st.trips[tr.ID]; !ok {
		return fmt.Errorf("trip %s: %w", tr.ID, ErrMissing)
	}
	t.st.trips[tr.ID] = *tr
	t.st.writes++
	return nil
}

func (t *tx) LockDispatchAssignments(_ context.Context, dispatchID uuid.UUID) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range t.st.assignments {
		if a.IsActive && a.DispatchID != nil && *a.DispatchID == dispatchID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b domain.Assignment) int { return compareIDs(a.ID, b.ID) })
	return out, nil
}

func (t *tx) LockAssignment(_ context.Context, id uuid.UUID) (*domain.Assignment, error) {
	a, ok := t.st.assignments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (t *tx) InsertAssignment(_ context.Context, a *domain.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if _, ok := t.st.assignments[a.ID]; ok {
		return fmt.Errorf("assignment %s already exists", a.ID)
	}
	t.st.assignments[a.ID] = *a
	t.st.writes++
	return nil
}

func (t *tx) UpdateAssignment(_ context.Context, a *domain.Assignment) error {
	if _, ok := t.st.assignments[a.ID]; !ok {
		return fmt.Errorf("assignment %s: %w", a.ID, ErrMissing)
	}
	t.st.assignments[a.ID] = *a
	t.st.writes++
	return nil
}

func (t *tx) LockDriver(_ context.Context, id uuid.UUID) (*domain.Driver, error) {
	d, ok := t.st.drivers[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (t *tx) LockTruck(_ context.Context, id uuid.UUID) (*domain.Truck, error) {
	tr, ok := t.st.trucks[id]
	if !ok {
		return nil, nil
	}
	return &tr, nil
}

func (t *tx) UpdateDriverDutyStatus(_ context.Context, id uuid.UUID, status domain.DriverDutyStatus) error {
	d, ok := t.st.drivers[id]
	if !ok {
		return fmt.Errorf("driver %s: %w", id, ErrMissing)
	}
	d.DutyStatus = status
	t.st.drivers[id] = d
	t.st.writes++
	return nil
}

func (t *tx) UpdateTruckDutyStatus(_ context.Context, id uuid.UUID, status domain.TruckDutyStatus) error {
	tr, ok := t.st.trucks[id]
	if !ok {
		return fmt.Errorf("truck %s: %w", id, ErrMissing)
	}
	tr.DutyStatus = status
	t.st.trucks[id] = tr
	t.st.writes++
	return nil
}

func holds(a domain.Assignment, kind domain.ResourceKind, id uuid.UUID) bool {
	switch kind {
	case domain.ResourceDriver:
		return a.DriverID == id
	case domain.ResourceTruck:
		return a.TruckID == id
	}
	return false
}

func (t *tx) FindConflictingAssignment(_ context.Context, q domain.ConflictQuery) (*domain.Assignment, error) {
	var found *domain.Assignment
	for _, a := range t.st.assignments {
		if !a.IsActive || !a.Status.Active() || !holds(a, q.Kind, q.ResourceID) {
			continue
		}
		if q.ExcludeID != nil && a.ID == *q.ExcludeID {
			continue
		}
		if !domain.Overlaps(q.Start, q.End, a.StartDate, a.EndDate) {
			continue
		}
		if found == nil || a.CreatedAt.Before(found.CreatedAt) ||
			(a.CreatedAt.Equal(found.CreatedAt) && compareIDs(a.ID, found.ID) < 0) {
			cp := a
			found = &cp
		}
	}
	return found, nil
}

func (t *tx) CountActiveAssignments(_ context.Context, kind domain.ResourceKind, resourceID uuid.UUID) (int, error) {
	n := 0
	for _, a := range t.st.assignments {
		if a.IsActive && a.Status.Active() && holds(a, kind, resourceID) {
			n++
		}
	}
	return n, nil
}

func (t *tx) InsertStatusHistory(_ context.Context, h *domain.StatusHistory) error {
	if t.store.HistoryErr != nil {
		return t.store.HistoryErr
	}
	h.ID = int64(len(t.st.history) + 1)
	t.st.history = append(t.st.history, *h)
	return nil
}

func (t *tx) EnqueueNotification(_ context.Context, n *domain.Notification) error {
	if t.store.NotifyErr != nil {
		return t.store.NotifyErr
	}
	t.st.notifications = append(t.st.notifications, *n)
	return nil
}
