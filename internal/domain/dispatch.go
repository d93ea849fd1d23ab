package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order is a shipment request.
type Order struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Number     string
	Status     OrderStatus
	PickupAt   *time.Time
	DeliveryAt *time.Time
	LoadTotal  float64
	Currency   string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Trip is the planned and actual movement of an order.
type Trip struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	OrderID           uuid.UUID
	Number            string
	Status            TripStatus
	StartTime         *time.Time
	EndTime           *time.Time
	EstimatedDistance *float64
	ActualDistance    *float64
	EstimatedDuration *time.Duration
	ActualDuration    *time.Duration
	EstimatedCost     *float64
	ActualCost        *float64
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Start stamps the start time unless it is already set.
func (t *Trip) Start(now time.Time) {
	if t.StartTime == nil {
		ts := now
		t.StartTime = &ts
	}
}

// Finish stamps the end time unless it is already set and recomputes the actual duration.
func (t *Trip) Finish(now time.Time) {
	if t.EndTime == nil {
		ts := now
		t.EndTime = &ts
	}
	if t.StartTime != nil {
		d := t.EndTime.Sub(*t.StartTime)
		if d < 0 {
			d = 0
		}
		t.ActualDuration = &d
	}
}

// Dispatch binds an order to a trip, driver, truck and carrier.
type Dispatch struct {
	ID                   uuid.UUID
	TenantID             uuid.UUID
	Number               string
	OrderID              uuid.UUID
	TripID               *uuid.UUID
	DriverID             *uuid.UUID
	TruckID              *uuid.UUID
	CarrierID            *uuid.UUID
	CommissionPercentage float64
	CommissionAmount     *float64
	Currency             string
	Status               DispatchStatus
	ActualStart          *time.Time
	ActualEnd            *time.Time
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ApplyStatus sets the status and stamps the actual start and end times it implies.
func (d *Dispatch) ApplyStatus(status DispatchStatus, now time.Time) {
	d.Status = status
	switch status {
	case DispatchInTransit:
		if d.ActualStart == nil {
			ts := now
			d.ActualStart = &ts
		}
	case DispatchDelivered, DispatchCompleted:
		if d.ActualEnd == nil {
			ts := now
			d.ActualEnd = &ts
		}
	}
	d.UpdatedAt = now
}

// StatusChangeResult is returned by a dispatch status change.
type StatusChangeResult struct {
	Dispatch    Dispatch       `json:"-"`
	Previous    DispatchStatus `json:"previous_status"`
	Transitions []Transition   `json:"transitions"`
	Warnings    []string       `json:"warnings,omitempty"`
}
