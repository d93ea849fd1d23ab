package domain

// OrderStatus is the lifecycle status of an order.
type OrderStatus string

// Order statuses.
const (
	OrderPending    OrderStatus = "pending"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// TripStatus is the lifecycle status of a trip.
type TripStatus string

// Trip statuses.
const (
	TripPending    TripStatus = "pending"
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
	TripCancelled  TripStatus = "cancelled"
)

// Valid reports whether s is a known trip status.
func (s TripStatus) Valid() bool {
	switch s {
	case TripPending, TripInProgress, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// DispatchStatus is the authoritative status driving orders, trips and assignments.
type DispatchStatus string

// Dispatch statuses.
const (
	DispatchPending         DispatchStatus = "pending"
	DispatchAssigned        DispatchStatus = "assigned"
	DispatchInTransit       DispatchStatus = "in_transit"
	DispatchDelivered       DispatchStatus = "delivered"
	DispatchInvoiced        DispatchStatus = "invoiced"
	DispatchPaymentReceived DispatchStatus = "payment_received"
	DispatchCompleted       DispatchStatus = "completed"
	DispatchCancelled       DispatchStatus = "cancelled"
)

// Valid reports whether s is a known dispatch status.
func (s DispatchStatus) Valid() bool {
	switch s {
	case DispatchPending, DispatchAssigned, DispatchInTransit, DispatchDelivered,
		DispatchInvoiced, DispatchPaymentReceived, DispatchCompleted, DispatchCancelled:
		return true
	}
	return false
}

// AssignmentStatus is the lifecycle status of a driver/truck assignment.
type AssignmentStatus string

// Assignment statuses.
const (
	AssignmentUnassigned AssignmentStatus = "unassigned"
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentOnDuty     AssignmentStatus = "on_duty"
	AssignmentOffDuty    AssignmentStatus = "off_duty"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

// Valid reports whether s is a known assignment status.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentUnassigned, AssignmentAssigned, AssignmentOnDuty, AssignmentOffDuty, AssignmentCancelled:
		return true
	}
	return false
}

// Active reports whether the status counts toward conflict detection.
func (s AssignmentStatus) Active() bool {
	return s == AssignmentAssigned || s == AssignmentOnDuty
}

// DriverDutyStatus is the duty status stored on a driver row.
type DriverDutyStatus string

// Driver duty statuses.
const (
	DriverAvailable  DriverDutyStatus = "available"
	DriverOnDuty     DriverDutyStatus = "on_duty"
	DriverOnLeave    DriverDutyStatus = "on_leave"
	DriverUnassigned DriverDutyStatus = "unassigned"
)

// TruckDutyStatus is the duty status stored on a truck row.
type TruckDutyStatus string

// Truck duty statuses.
const (
	TruckAvailable     TruckDutyStatus = "available"
	TruckOnDuty        TruckDutyStatus = "on_duty"
	TruckOffDuty       TruckDutyStatus = "off_duty"
	TruckInMaintenance TruckDutyStatus = "in_maintenance"
	TruckOutOfService  TruckDutyStatus = "out_of_service"
)

// EmploymentStatus of a driver.
type EmploymentStatus string

// Employment statuses.
const (
	EmploymentActive     EmploymentStatus = "active"
	EmploymentInactive   EmploymentStatus = "inactive"
	EmploymentOnLeave    EmploymentStatus = "on_leave"
	EmploymentTerminated EmploymentStatus = "terminated"
)
