package kafka

import "errors"

// PermanentError marks a message (or notification) that fails the same way on
// every delivery, such as a malformed payload. The consumer commits past it.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string { return "permanent: " + e.Err.Error() }

func (e PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError in its chain.
func IsPermanent(err error) bool {
	var perm PermanentError
	return errors.As(err, &perm)
}
