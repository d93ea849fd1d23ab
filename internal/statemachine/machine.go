// Package statemachine validates status transitions for each tracked entity kind.
package statemachine

import (
	"slices"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/domain"
)

// Machine is a fixed adjacency table over one status type.
type Machine[S ~string] struct {
	kind domain.EntityKind
	next map[S][]S
}

func newMachine[S ~string](kind domain.EntityKind, next map[S][]S) Machine[S] {
	return Machine[S]{kind: kind, next: next}
}

// Kind returns the entity kind this machine validates.
func (m Machine[S]) Kind() domain.EntityKind { return m.kind }

// Validate returns nil when to is reachable from from in one step, or when they are equal.
func (m Machine[S]) Validate(from, to S) error {
	if from == to {
		return nil
	}
	if slices.Contains(m.next[from], to) {
		return nil
	}
	return &apperr.TransitionRejectedError{Kind: m.kind, From: string(from), To: string(to)}
}

// CanTransition is Validate as a bool.
func (m Machine[S]) CanTransition(from, to S) bool {
	return m.Validate(from, to) == nil
}

// Allowed lists the statuses reachable from from.
func (m Machine[S]) Allowed(from S) []S {
	return slices.Clone(m.next[from])
}

// Terminal reports whether s has no outgoing transitions.
func (m Machine[S]) Terminal(s S) bool {
	return len(m.next[s]) == 0
}

// Order transitions.
var Order = newMachine(domain.KindOrder, map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderPending:    {domain.OrderInProgress, domain.OrderCancelled},
	domain.OrderInProgress: {domain.OrderCompleted, domain.OrderCancelled},
	domain.OrderCompleted:  nil,
	domain.OrderCancelled:  nil,
})

// Trip transitions.
var Trip = newMachine(domain.KindTrip, map[domain.TripStatus][]domain.TripStatus{
	domain.TripPending:    {domain.TripInProgress, domain.TripCancelled},
	domain.TripInProgress: {domain.TripCompleted, domain.TripCancelled},
	domain.TripCompleted:  nil,
	domain.TripCancelled:  nil,
})

// Dispatch transitions. Cancelled is reachable from every non-terminal status.
var Dispatch = newMachine(domain.KindDispatch, map[domain.DispatchStatus][]domain.DispatchStatus{
	domain.DispatchPending:         {domain.DispatchAssigned, domain.DispatchCancelled},
	domain.DispatchAssigned:        {domain.DispatchInTransit, domain.DispatchCancelled},
	domain.DispatchInTransit:       {domain.DispatchDelivered, domain.DispatchCancelled},
	domain.DispatchDelivered:       {domain.DispatchInvoiced, domain.DispatchCancelled},
	domain.DispatchInvoiced:        {domain.DispatchPaymentReceived, domain.DispatchCancelled},
	domain.DispatchPaymentReceived: {domain.DispatchCompleted, domain.DispatchCancelled},
	domain.DispatchCompleted:       nil,
	domain.DispatchCancelled:       nil,
})

// Assignment transitions. OffDuty and Cancelled are terminal.
var Assignment = newMachine(domain.KindAssignment, map[domain.AssignmentStatus][]domain.AssignmentStatus{
	domain.AssignmentUnassigned: {domain.AssignmentAssigned, domain.AssignmentCancelled},
	domain.AssignmentAssigned:   {domain.AssignmentOnDuty, domain.AssignmentCancelled},
	domain.AssignmentOnDuty:     {domain.AssignmentOffDuty, domain.AssignmentCancelled},
	domain.AssignmentOffDuty:    nil,
	domain.AssignmentCancelled:  nil,
})
