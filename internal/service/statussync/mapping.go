package statussync

import "trucking-dispatch-core/internal/domain"

// OrderTarget is the order status a dispatch moving to ds propagates, given the
// order's current status. ok is false when the order is left alone.
func OrderTarget(ds domain.DispatchStatus, current domain.OrderStatus) (domain.OrderStatus, bool) {
	switch ds {
	case domain.DispatchAssigned, domain.DispatchInTransit, domain.DispatchDelivered:
		if current == domain.OrderPending {
			return domain.OrderInProgress, true
		}
	case domain.DispatchCompleted:
		return domain.OrderCompleted, true
	case domain.DispatchCancelled:
		return domain.OrderCancelled, true
	}
	return "", false
}

// TripTarget is the trip status a dispatch moving to ds propagates.
func TripTarget(ds domain.DispatchStatus) (domain.TripStatus, bool) {
	switch ds {
	case domain.DispatchInTransit:
		return domain.TripInProgress, true
	case domain.DispatchDelivered:
		return domain.TripCompleted, true
	case domain.DispatchCancelled:
		return domain.TripCancelled, true
	}
	return "", false
}

// AssignmentTarget is the status every active assignment of a dispatch moving to ds receives.
func AssignmentTarget(ds domain.DispatchStatus) (domain.AssignmentStatus, bool) {
	switch ds {
	case domain.DispatchAssigned:
		return domain.AssignmentAssigned, true
	case domain.DispatchInTransit:
		return domain.AssignmentOnDuty, true
	case domain.DispatchDelivered, domain.DispatchCompleted:
		return domain.AssignmentOffDuty, true
	case domain.DispatchCancelled:
		return domain.AssignmentCancelled, true
	}
	return "", false
}

// ExpectedOrderStatus is the order status a dispatch resting at ds implies once
// every propagation up to ds has run. ok is false when any order status is acceptable.
func ExpectedOrderStatus(ds domain.DispatchStatus) (domain.OrderStatus, bool) {
	switch ds {
	case domain.DispatchAssigned, domain.DispatchInTransit, domain.DispatchDelivered,
		domain.DispatchInvoiced, domain.DispatchPaymentReceived:
		return domain.OrderInProgress, true
	case domain.DispatchCompleted:
		return domain.OrderCompleted, true
	case domain.DispatchCancelled:
		return domain.OrderCancelled, true
	}
	return "", false
}

// ExpectedTripStatus is the trip status a dispatch resting at ds implies.
func ExpectedTripStatus(ds domain.DispatchStatus) (domain.TripStatus, bool) {
	switch ds {
	case domain.DispatchInTransit:
		return domain.TripInProgress, true
	case domain.DispatchDelivered, domain.DispatchInvoiced, domain.DispatchPaymentReceived, domain.DispatchCompleted:
		return domain.TripCompleted, true
	case domain.DispatchCancelled:
		return domain.TripCancelled, true
	}
	return "", false
}

// InitialAssignmentStatus is the status of an assignment created for a dispatch at ds.
// ok is false once the dispatch no longer accepts new assignments.
func InitialAssignmentStatus(ds domain.DispatchStatus) (domain.AssignmentStatus, bool) {
	switch ds {
	case domain.DispatchPending:
		return domain.AssignmentUnassigned, true
	case domain.DispatchAssigned:
		return domain.AssignmentAssigned, true
	case domain.DispatchInTransit:
		return domain.AssignmentOnDuty, true
	}
	return "", false
}
