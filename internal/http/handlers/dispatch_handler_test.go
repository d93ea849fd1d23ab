package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/domain"
	"trucking-dispatch-core/internal/logx"
	"trucking-dispatch-core/internal/service/dispatch"
	"trucking-dispatch-core/internal/service/resourcelock"
)

type stubDispatchUsecase struct {
	changeFn       func(ctx context.Context, in dispatch.ChangeStatusInput) (domain.StatusChangeResult, error)
	availabilityFn func(ctx context.Context, req resourcelock.Request) (resourcelock.Availability, error)
	createFn       func(ctx context.Context, in dispatch.CreateAssignmentInput) (domain.Assignment, error)
	windowFn       func(ctx context.Context, in dispatch.UpdateWindowInput) (domain.Assignment, error)
}

func (s *stubDispatchUsecase) ChangeStatus(ctx context.Context, in dispatch.ChangeStatusInput) (domain.StatusChangeResult, error) {
	if s.changeFn == nil {
		panic("ChangeStatus not expected in this test")
	}
	return s.changeFn(ctx, in)
}

func (s *stubDispatchUsecase) CheckAvailability(ctx context.Context, req resourcelock.Request) (resourcelock.Availability, error) {
	if s.availabilityFn == nil {
		panic("CheckAvailability not expected in this test")
	}
	return s.availabilityFn(ctx, req)
}

func (s *stubDispatchUsecase) CreateAssignment(ctx context.Context, in dispatch.CreateAssignmentInput) (domain.Assignment, error) {
	if s.createFn == nil {
		panic("CreateAssignment not expected in this test")
	}
	return s.createFn(ctx, in)
}

func (s *stubDispatchUsecase) UpdateAssignmentWindow(ctx context.Context, in dispatch.UpdateWindowInput) (domain.Assignment, error) {
	if s.windowFn == nil {
		panic("UpdateAssignmentWindow not expected in this test")
	}
	return s.windowFn(ctx, in)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestDispatchHandler_ChangeStatus_OK(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	orderID := uuid.New()
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	uc := &stubDispatchUsecase{
		changeFn: func(_ context.Context, in dispatch.ChangeStatusInput) (domain.StatusChangeResult, error) {
			require.Equal(t, id, in.DispatchID)
			require.Equal(t, domain.DispatchAssigned, in.Status)
			require.Equal(t, "dispatcher-7", in.Actor)
			return domain.StatusChangeResult{
				Dispatch: domain.Dispatch{ID: id, Status: domain.DispatchAssigned},
				Previous: domain.DispatchPending,
				Transitions: []domain.Transition{{
					Ref: domain.OrderRef(orderID), From: "pending", To: "in_progress", Actor: "dispatcher-7", At: at,
				}},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/dispatches/"+id.String()+"/status", strings.NewReader(`{"status":"assigned"}`))
	req.Header.Set(ActorHeader, "dispatcher-7")
	req = withURLParam(req, "id", id.String())
	rr := httptest.NewRecorder()

	NewDispatchHandler(logx.Nop(), uc).ChangeStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{
		"dispatch_id": %q,
		"status": "assigned",
		"previous_status": "pending",
		"changed": true,
		"transitions": [{
			"tenant_id": "00000000-0000-0000-0000-000000000000",
			"entity": {"kind": "order", "id": %q},
			"from": "pending",
			"to": "in_progress",
			"actor": "dispatcher-7",
			"at": "2025-03-10T09:00:00Z"
		}]
	}`, id, orderID), rr.Body.String())
}

func TestDispatchHandler_ChangeStatus_BadInput(t *testing.T) {
	t.Parallel()

	id := uuid.New().String()
	tests := []struct {
		name  string
		param string
		body  string
	}{
		{"bad id", "nope", `{"status":"assigned"}`},
		{"unknown status", id, `{"status":"teleported"}`},
		{"missing status", id, `{}`},
		{"unknown field", id, `{"status":"assigned","x":1}`},
		{"trailing data", id, `{"status":"assigned"}{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := withURLParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)), "id", tt.param)
			rr := httptest.NewRecorder()
			NewDispatchHandler(logx.Nop(), &stubDispatchUsecase{}).ChangeStatus(rr, req)
			require.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestDispatchHandler_ChangeStatus_ErrorMapping(t *testing.T) {
	t.Parallel()

	conflictID := uuid.New()
	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"not found", fmt.Errorf("dispatch: %w", apperr.ErrNotFound), http.StatusNotFound, ""},
		{"rejected", &apperr.TransitionRejectedError{Kind: domain.KindDispatch, From: "completed", To: "pending"}, http.StatusConflict, "transition_rejected"},
		{"sync failed", &apperr.SyncError{DispatchID: uuid.New(), Err: &apperr.TransitionRejectedError{Kind: domain.KindOrder, From: "completed", To: "cancelled"}}, http.StatusConflict, "transition_rejected"},
		{"resource conflict", &apperr.ResourceUnavailableError{Reason: apperr.ReasonDriverConflict, Message: "driver busy", ConflictingAssignmentID: &conflictID}, http.StatusConflict, "driver_conflict"},
		{"lock timeout", apperr.Retryable(fmt.Errorf("lock dispatch: timeout")), http.StatusServiceUnavailable, ""},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, ""},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			uc := &stubDispatchUsecase{
				changeFn: func(context.Context, dispatch.ChangeStatusInput) (domain.StatusChangeResult, error) {
					return domain.StatusChangeResult{}, tt.err
				},
			}
			id := uuid.New().String()
			req := withURLParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"cancelled"}`)), "id", id)
			rr := httptest.NewRecorder()

			NewDispatchHandler(logx.Nop(), uc).ChangeStatus(rr, req)

			require.Equal(t, tt.status, rr.Code)
			if tt.reason != "" {
				require.Contains(t, rr.Body.String(), `"reason":"`+tt.reason+`"`)
			}
		})
	}
}

func TestDispatchHandler_CheckAvailability(t *testing.T) {
	t.Parallel()

	driverID, truckID, conflictID := uuid.New(), uuid.New(), uuid.New()
	uc := &stubDispatchUsecase{
		availabilityFn: func(_ context.Context, req resourcelock.Request) (resourcelock.Availability, error) {
			require.Equal(t, driverID, req.DriverID)
			require.Equal(t, truckID, req.TruckID)
			require.Nil(t, req.End)
			return resourcelock.Availability{
				Reason:                  apperr.ReasonTruckConflict,
				Message:                 "truck is booked",
				ConflictingAssignmentID: &conflictID,
			}, nil
		},
	}
	body := fmt.Sprintf(`{"driver_id":%q,"truck_id":%q,"start_date":"2025-03-10T10:00:00Z"}`, driverID, truckID)
	rr := httptest.NewRecorder()

	NewDispatchHandler(logx.Nop(), uc).CheckAvailability(rr, httptest.NewRequest(http.MethodPost, "/availability", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{
		"available": false,
		"reason": "truck_conflict",
		"message": "truck is booked",
		"conflicting_assignment_id": %q
	}`, conflictID), rr.Body.String())
}

func TestDispatchHandler_CheckAvailability_MissingStart(t *testing.T) {
	t.Parallel()

	body := fmt.Sprintf(`{"driver_id":%q,"truck_id":%q}`, uuid.New(), uuid.New())
	rr := httptest.NewRecorder()

	NewDispatchHandler(logx.Nop(), &stubDispatchUsecase{}).CheckAvailability(rr, httptest.NewRequest(http.MethodPost, "/availability", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "start")
}

func TestDispatchHandler_CreateAssignment(t *testing.T) {
	t.Parallel()

	tenantID, driverID, truckID, dispatchID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	uc := &stubDispatchUsecase{
		createFn: func(_ context.Context, in dispatch.CreateAssignmentInput) (domain.Assignment, error) {
			require.Equal(t, tenantID, in.TenantID)
			require.NotNil(t, in.DispatchID)
			require.Equal(t, dispatchID, *in.DispatchID)
			require.True(t, in.Start.Equal(start))
			require.True(t, in.End.Equal(end))
			return domain.Assignment{
				ID: uuid.New(), TenantID: in.TenantID, DriverID: in.DriverID, TruckID: in.TruckID,
				DispatchID: in.DispatchID, StartDate: in.Start, EndDate: in.End, Status: domain.AssignmentUnassigned,
			}, nil
		},
	}
	body := fmt.Sprintf(`{"tenant_id":%q,"driver_id":%q,"truck_id":%q,"dispatch_id":%q,"start_date":"2025-03-10T10:00:00Z","end_date":"2025-03-10T14:00:00Z"}`,
		tenantID, driverID, truckID, dispatchID)
	rr := httptest.NewRecorder()

	NewDispatchHandler(logx.Nop(), uc).CreateAssignment(rr, httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"unassigned"`)
}

func TestDispatchHandler_CreateAssignment_Conflict(t *testing.T) {
	t.Parallel()

	existing := uuid.New()
	uc := &stubDispatchUsecase{
		createFn: func(context.Context, dispatch.CreateAssignmentInput) (domain.Assignment, error) {
			return domain.Assignment{}, &apperr.ResourceUnavailableError{
				Reason: apperr.ReasonDriverConflict, Message: "driver already booked", ConflictingAssignmentID: &existing,
			}
		},
	}
	body := fmt.Sprintf(`{"tenant_id":%q,"driver_id":%q,"truck_id":%q,"start_date":"2025-03-10T10:00:00Z"}`, uuid.New(), uuid.New(), uuid.New())
	rr := httptest.NewRecorder()

	NewDispatchHandler(logx.Nop(), uc).CreateAssignment(rr, httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(body)))

	require.Equal(t, http.StatusConflict, rr.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"error":"driver already booked","reason":"driver_conflict","conflicting_assignment_id":%q}`, existing), rr.Body.String())
}

func TestDispatchHandler_CreateAssignment_InvalidIDs(t *testing.T) {
	t.Parallel()

	body := `{"tenant_id":"x","driver_id":"y","truck_id":"z","start_date":"2025-03-10T10:00:00Z"}`
	rr := httptest.NewRecorder()

	NewDispatchHandler(logx.Nop(), &stubDispatchUsecase{}).CreateAssignment(rr, httptest.NewRequest(http.MethodPost, "/assignments", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDispatchHandler_UpdateAssignmentWindow(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	uc := &stubDispatchUsecase{
		windowFn: func(_ context.Context, in dispatch.UpdateWindowInput) (domain.Assignment, error) {
			require.Equal(t, id, in.AssignmentID)
			require.Nil(t, in.End)
			return domain.Assignment{ID: id, StartDate: in.Start, Status: domain.AssignmentAssigned}, nil
		},
	}
	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"start_date":"2025-03-11T08:00:00Z"}`)), "id", id.String())
	rr := httptest.NewRecorder()

	NewDispatchHandler(logx.Nop(), uc).UpdateAssignmentWindow(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"start_date":"2025-03-11T08:00:00Z"`)
}
