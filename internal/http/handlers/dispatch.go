package handlers

import (
	"net/http"

	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/service/dispatch"
)

// DispatchHandler handles dispatch status changes and assignment bookings.
type DispatchHandler struct {
	usecase dispatchUsecase
	logger  logx.Logger
}

// NewDispatchHandler creates a new DispatchHandler.
func NewDispatchHandler(logger logx.Logger, uc dispatchUsecase) *DispatchHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &DispatchHandler{usecase: uc, logger: logger}
}

// ChangeStatus handles POST /dispatches/{id}/status.
// @Summary Сменить статус рейса
// @Tags dispatches
// @Accept json
// @Produce json
// @Param id path string true "Dispatch ID"
// @Param request body changeStatusRequest true "Target status"
// @Success 200 {object} changeStatusResponse
// @Failure 400 {object} ErrorResponse "invalid input"
// @Failure 404 {object} ErrorResponse "dispatch not found"
// @Failure 409 {object} ErrorResponse "transition rejected or sync failed"
// @Failure 503 {object} ErrorResponse "lock timeout"
// @Router /dispatches/{id}/status [post]
func (h *DispatchHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid dispatch id")
		return
	}
	var req changeStatusRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.usecase.ChangeStatus(r.Context(), dispatch.ChangeStatusInput{
		DispatchID: id,
		Status:     domain.DispatchStatus(req.Status),
		Actor:      actor(r, req.Actor),
	})
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, changeResultToResponse(res))
}

// CheckAvailability handles POST /availability.
// The answer is 200 whether or not the resources are free; the body says which.
func (h *DispatchHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	res, err := h.usecase.CheckAvailability(r.Context(), req.toModel())
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, res)
}

// CreateAssignment handles POST /assignments.
func (h *DispatchHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	a, err := h.usecase.CreateAssignment(r.Context(), req.toModel())
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusCreated, assignmentToResponse(a))
}

// UpdateAssignmentWindow handles PATCH /assignments/{id}/window.
func (h *DispatchHandler) UpdateAssignmentWindow(w http.ResponseWriter, r *http.Request) {
	id, err := uuidFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid assignment id")
		return
	}
	var req updateWindowRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	a, err := h.usecase.UpdateAssignmentWindow(r.Context(), dispatch.UpdateWindowInput{
		AssignmentID: id,
		Start:        req.Start,
		End:          req.End,
	})
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, assignmentToResponse(a))
}
