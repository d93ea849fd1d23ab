package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trucking-dispatch-core/internal/domain"
)

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates a state conflict (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrRetryable marks failures the caller may retry from scratch (lock timeout, deadlock).
var ErrRetryable = errors.New("retryable")

// TransitionRejectedError is returned when a status is not reachable from the current one.
type TransitionRejectedError struct {
	Kind domain.EntityKind
	From string
	To   string
}

func (e *TransitionRejectedError) Error() string {
	return fmt.Sprintf("%s transition rejected: %q -> %q", e.Kind, e.From, e.To)
}

// Is matches ErrConflict.
func (e *TransitionRejectedError) Is(target error) bool { return target == ErrConflict }

// ResourceReason enumerates why a driver/truck pair cannot be bound.
type ResourceReason string

// Resource unavailability reasons.
const (
	ReasonNotFound       ResourceReason = "not_found"
	ReasonNotQualified   ResourceReason = "not_qualified"
	ReasonDriverConflict ResourceReason = "driver_conflict"
	ReasonTruckConflict  ResourceReason = "truck_conflict"
)

// ResourceUnavailableError reports a qualification failure or a scheduling conflict.
type ResourceUnavailableError struct {
	Reason                  ResourceReason
	Message                 string
	ConflictingAssignmentID *uuid.UUID
}

func (e *ResourceUnavailableError) Error() string {
	if e.ConflictingAssignmentID != nil {
		return fmt.Sprintf("resource unavailable (%s): %s [assignment %s]", e.Reason, e.Message, e.ConflictingAssignmentID)
	}
	return fmt.Sprintf("resource unavailable (%s): %s", e.Reason, e.Message)
}

// Is matches ErrConflict, or ErrNotFound for missing resources.
func (e *ResourceUnavailableError) Is(target error) bool {
	if e.Reason == ReasonNotFound {
		return target == ErrNotFound
	}
	return target == ErrConflict
}

// SyncError wraps whatever stopped the propagation of a dispatch status change.
type SyncError struct {
	DispatchID uuid.UUID
	Err        error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync dispatch %s: %v", e.DispatchID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// NotificationError is a history or notification sink failure. It never aborts a transition.
type NotificationError struct {
	Ref domain.EntityRef
	Op  string
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

type retryableError struct{ err error }

func (e retryableError) Error() string        { return e.err.Error() }
func (e retryableError) Unwrap() error        { return e.err }
func (e retryableError) Is(target error) bool { return target == ErrRetryable }

// Retryable marks err as retryable. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

// IsRetryable reports whether err (or anything it wraps) is retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}
