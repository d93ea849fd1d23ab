package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"trucking-dispatch-core/internal/apperr"
)

const (
	codeUniqueViolation   = "23505"
	codeLockNotAvailable  = "55P03"
	codeDeadlockDetected  = "40P01"
	codeSerializationFail = "40001"
)

// IsDuplicate - signals that the error is a duplicate key violation.
func IsDuplicate(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == codeUniqueViolation
}

// IsNotFound - signals that the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsRetryable - signals a lock timeout, deadlock or serialization failure.
// The whole transaction may be retried from scratch.
func IsRetryable(err error) bool {
	var pgerr *pgconn.PgError
	if !errors.As(err, &pgerr) {
		return false
	}
	switch pgerr.Code {
	case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFail:
		return true
	}
	return false
}

// wrapf adds context to err and marks lock failures retryable.
func wrapf(err error, format string, args ...any) error {
	wrapped := fmt.Errorf(format+": %w", append(args, err)...)
	if IsRetryable(err) {
		return apperr.Retryable(wrapped)
	}
	return wrapped
}
