// Package apperror defines the error kinds shared by the repository, service
// and handler layers.
//
// Repositories return one of these kinds instead of raw driver errors so the
// handler can map them to HTTP status codes with errors.Is, without knowing
// which database is behind the repository.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("Validation Error")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("storage unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: driver error behind the kind
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel kind and the underlying cause, so
// errors.Is(err, ErrConflict) and errors.As(err, &driverErr) both work.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed reports a missing or unusable input field. The message is
// the quoted field name, which is what callers see after "Error creating user".
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// ConstraintViolation wraps a storage error raised by a unique, not-null or
// check constraint.
func ConstraintViolation(cause error) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// StorageUnavailable wraps an error raised because the store could not be reached.
func StorageUnavailable(cause error) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: cause.Error(),
		Cause:   cause,
	}
}
