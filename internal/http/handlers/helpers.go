package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"trucking-dispatch-core/internal/apperr"
	"trucking-dispatch-core/internal/logx"
)

// ActorHeader carries the user or system that requested a change.
const ActorHeader = "X-Actor"

var validate = validator.New(validator.WithRequiredStructEnabled())

func reqID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return "-"
}

func writeJSON(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Warn("json encode error", logx.String("req_id", reqID(r.Context())), logx.Err(err))
	}
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error                   string     `json:"error"`
	Reason                  string     `json:"reason,omitempty"`
	ConflictingAssignmentID *uuid.UUID `json:"conflicting_assignment_id,omitempty"`
}

func writeError(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeErrorBody(logger, w, r, status, ErrorResponse{Error: msg})
}

func writeErrorBody(logger logx.Logger, w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	logger.Info("http error",
		logx.String("req_id", reqID(r.Context())),
		logx.Int("status", status),
		logx.String("msg", body.Error),
	)
	writeJSON(logger, w, r, status, body)
}

// writeServiceError maps use case errors onto HTTP statuses.
func writeServiceError(logger logx.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var unavailable *apperr.ResourceUnavailableError
	if errors.As(err, &unavailable) {
		status := http.StatusConflict
		if unavailable.Reason == apperr.ReasonNotFound {
			status = http.StatusNotFound
		}
		writeErrorBody(logger, w, r, status, ErrorResponse{
			Error:                   unavailable.Message,
			Reason:                  string(unavailable.Reason),
			ConflictingAssignmentID: unavailable.ConflictingAssignmentID,
		})
		return
	}

	var rejected *apperr.TransitionRejectedError
	switch {
	case errors.As(err, &rejected):
		writeErrorBody(logger, w, r, http.StatusConflict, ErrorResponse{Error: rejected.Error(), Reason: "transition_rejected"})
	case errors.Is(err, apperr.ErrInvalid):
		writeError(logger, w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(logger, w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(logger, w, r, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrRetryable), errors.Is(err, context.DeadlineExceeded):
		w.Header().Set("Retry-After", "1")
		writeError(logger, w, r, http.StatusServiceUnavailable, "temporarily unavailable, retry")
	default:
		logger.Error("internal error", logx.String("req_id", reqID(r.Context())), logx.Err(err))
		writeError(logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

const (
	bodyLimit = 1 << 20
)

func decodeJSON[T any](logger logx.Logger, w http.ResponseWriter, r *http.Request, dst *T) bool {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(logger, w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		writeError(logger, w, r, http.StatusBadRequest, "invalid json: trailing data")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(logger, w, r, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid input"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func uuidFromURL(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.New("invalid id")
	}
	return id, nil
}

func actor(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return strings.TrimSpace(r.Header.Get(ActorHeader))
}
