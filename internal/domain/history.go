package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntityKind enumerates the entities whose status transitions are tracked.
type EntityKind string

// Entity kinds.
const (
	KindOrder      EntityKind = "order"
	KindTrip       EntityKind = "trip"
	KindDispatch   EntityKind = "dispatch"
	KindAssignment EntityKind = "assignment"
)

// Valid reports whether k is one of the tracked kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindOrder, KindTrip, KindDispatch, KindAssignment:
		return true
	}
	return false
}

// EntityRef points at exactly one tracked entity. Build it with the kind
// constructors so the kind and id always agree.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

// OrderRef references an order.
func OrderRef(id uuid.UUID) EntityRef { return EntityRef{Kind: KindOrder, ID: id} }

// TripRef references a trip.
func TripRef(id uuid.UUID) EntityRef { return EntityRef{Kind: KindTrip, ID: id} }

// DispatchRef references a dispatch.
func DispatchRef(id uuid.UUID) EntityRef { return EntityRef{Kind: KindDispatch, ID: id} }

// AssignmentRef references an assignment.
func AssignmentRef(id uuid.UUID) EntityRef { return EntityRef{Kind: KindAssignment, ID: id} }

func (r EntityRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Priority of a status notification.
type Priority string

// Notification priorities.
const (
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// PriorityFor returns high for closing outcomes and medium otherwise.
func PriorityFor(newStatus string) Priority {
	switch newStatus {
	case "completed", "cancelled", "off_duty":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Transition is one applied status change.
type Transition struct {
	TenantID uuid.UUID      `json:"tenant_id"`
	Ref      EntityRef      `json:"entity"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Actor    string         `json:"actor"`
	At       time.Time      `json:"at"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Priority of the notification emitted for t.
func (t Transition) Priority() Priority {
	return PriorityFor(t.To)
}

// StatusHistory is an immutable history row.
type StatusHistory struct {
	ID        int64
	TenantID  uuid.UUID
	Ref       EntityRef
	OldStatus string
	NewStatus string
	Actor     string
	ChangedAt time.Time
	Metadata  map[string]any
}

// HistoryFromTransition builds the history row recorded for t.
func HistoryFromTransition(t Transition) StatusHistory {
	return StatusHistory{
		TenantID:  t.TenantID,
		Ref:       t.Ref,
		OldStatus: t.From,
		NewStatus: t.To,
		Actor:     t.Actor,
		ChangedAt: t.At,
		Metadata:  t.Metadata,
	}
}

// Notification is an outbox row waiting to be published.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Ref       EntityRef `json:"entity"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	Priority  Priority  `json:"priority"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Attempts  int       `json:"-"`
	LastError string    `json:"-"`
}
