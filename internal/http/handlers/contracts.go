package handlers

import (
	"context"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/service/dispatch"
	"trucking-dispatch-core/internal/service/reconcile"
	"trucking-dispatch-core/internal/service/resourcelock"
)

type dispatchUsecase interface {
	ChangeStatus(ctx context.Context, in dispatch.ChangeStatusInput) (domain.StatusChangeResult, error)
	CheckAvailability(ctx context.Context, req resourcelock.Request) (resourcelock.Availability, error)
	CreateAssignment(ctx context.Context, in dispatch.CreateAssignmentInput) (domain.Assignment, error)
	UpdateAssignmentWindow(ctx context.Context, in dispatch.UpdateWindowInput) (domain.Assignment, error)
}

// NewDispatchUsecase wires a dispatch Service into a dispatchUsecase.
func NewDispatchUsecase(svc *dispatch.Service) dispatchUsecase {
	return svc
}

type reconcileUsecase interface {
	Detect(ctx context.Context, tenantID uuid.UUID) (domain.Report, error)
	Fix(ctx context.Context, tenantID uuid.UUID, report *domain.Report, dryRun bool) (domain.FixResult, error)
}

// NewReconcileUsecase wires a reconcile Service into a reconcileUsecase.
func NewReconcileUsecase(svc *reconcile.Service) reconcileUsecase {
	return svc
}
