package handlers

import (
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/service/dispatch"
	"trucking-dispatch-core/internal/service/resourcelock"
)

type changeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending assigned in_transit delivered invoiced payment_received completed cancelled"`
	Actor  string `json:"actor,omitempty" validate:"omitempty,max=128"`
}

type changeStatusResponse struct {
	DispatchID  uuid.UUID           `json:"dispatch_id"`
	Status      string              `json:"status"`
	Previous    string              `json:"previous_status"`
	Changed     bool                `json:"changed"`
	Transitions []domain.Transition `json:"transitions"`
	Warnings    []string            `json:"warnings,omitempty"`
}

func changeResultToResponse(res domain.StatusChangeResult) changeStatusResponse {
	transitions := res.Transitions
	if transitions == nil {
		transitions = []domain.Transition{}
	}
	return changeStatusResponse{
		DispatchID:  res.Dispatch.ID,
		Status:      string(res.Dispatch.Status),
		Previous:    string(res.Previous),
		Changed:     len(res.Transitions) > 0,
		Transitions: transitions,
		Warnings:    res.Warnings,
	}
}

type availabilityRequest struct {
	DriverID            string     `json:"driver_id" validate:"required,uuid"`
	TruckID             string     `json:"truck_id" validate:"required,uuid"`
	Start               time.Time  `json:"start_date" validate:"required"`
	End                 *time.Time `json:"end_date,omitempty"`
	ExcludeAssignmentID string     `json:"exclude_assignment_id,omitempty" validate:"omitempty,uuid"`
}

func (r availabilityRequest) toModel() resourcelock.Request {
	req := resourcelock.Request{
		DriverID: uuid.MustParse(r.DriverID),
		TruckID:  uuid.MustParse(r.TruckID),
		Start:    r.Start,
		End:      r.End,
	}
	if r.ExcludeAssignmentID != "" {
		id := uuid.MustParse(r.ExcludeAssignmentID)
		req.ExcludeAssignmentID = &id
	}
	return req
}

type createAssignmentRequest struct {
	TenantID   string     `json:"tenant_id" validate:"required,uuid"`
	DriverID   string     `json:"driver_id" validate:"required,uuid"`
	TruckID    string     `json:"truck_id" validate:"required,uuid"`
	DispatchID string     `json:"dispatch_id,omitempty" validate:"omitempty,uuid"`
	Start      time.Time  `json:"start_date" validate:"required"`
	End        *time.Time `json:"end_date,omitempty"`
}

func (r createAssignmentRequest) toModel() dispatch.CreateAssignmentInput {
	in := dispatch.CreateAssignmentInput{
		TenantID: uuid.MustParse(r.TenantID),
		DriverID: uuid.MustParse(r.DriverID),
		TruckID:  uuid.MustParse(r.TruckID),
		Start:    r.Start,
		End:      r.End,
	}
	if r.DispatchID != "" {
		id := uuid.MustParse(r.DispatchID)
		in.DispatchID = &id
	}
	return in
}

type updateWindowRequest struct {
	Start time.Time  `json:"start_date" validate:"required"`
	End   *time.Time `json:"end_date,omitempty"`
}

type assignmentDTO struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	DriverID   uuid.UUID  `json:"driver_id"`
	TruckID    uuid.UUID  `json:"truck_id"`
	CarrierID  *uuid.UUID `json:"carrier_id,omitempty"`
	DispatchID *uuid.UUID `json:"dispatch_id,omitempty"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Status     string     `json:"status"`
}

func assignmentToResponse(a domain.Assignment) assignmentDTO {
	return assignmentDTO{
		ID:         a.ID,
		TenantID:   a.TenantID,
		DriverID:   a.DriverID,
		TruckID:    a.TruckID,
		CarrierID:  a.CarrierID,
		DispatchID: a.DispatchID,
		StartDate:  a.StartDate,
		EndDate:    a.EndDate,
		Status:     string(a.Status),
	}
}
