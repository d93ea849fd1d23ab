package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/domain"
)

// SystemActor is recorded when a change carries no actor.
const SystemActor = "system"

// ChangeStatusInput requests a dispatch status change.
type ChangeStatusInput struct {
	DispatchID uuid.UUID
	Status     domain.DispatchStatus
	Actor      string
}

func (in ChangeStatusInput) normalize() (ChangeStatusInput, error) {
	if in.DispatchID == uuid.Nil {
		return in, fmt.Errorf("dispatch id is required: %w", apperr.ErrInvalid)
	}
	if !in.Status.Valid() {
		return in, fmt.Errorf("unknown dispatch status %q: %w", in.Status, apperr.ErrInvalid)
	}
	in.Actor = strings.TrimSpace(in.Actor)
	if in.Actor == "" {
		in.Actor = SystemActor
	}
	return in, nil
}

// CreateAssignmentInput requests a new driver/truck assignment. A nil End is open-ended.
type CreateAssignmentInput struct {
	TenantID   uuid.UUID
	DriverID   uuid.UUID
	TruckID    uuid.UUID
	DispatchID *uuid.UUID
	Start      time.Time
	End        *time.Time
}

// UpdateWindowInput reschedules an assignment.
type UpdateWindowInput struct {
	AssignmentID uuid.UUID
	Start        time.Time
	End          *time.Time
}
