package store

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-local/internal/domain"
)

// Common store errors used across all store implementations.
var (
	// ErrConcurrentModification is returned when the medium no longer holds
	// the snapshot a caller loaded: some other context committed in between.
	// Nothing is written when this error is returned. It is fatal to the
	// caller's session; retrying without reconciling risks silent data loss.
	ErrConcurrentModification = errors.New("persistent store was modified since it was loaded")

	// ErrCorruptData is returned when the medium holds bytes that do not
	// decode into a valid card set.
	ErrCorruptData = errors.New("persistent store holds corrupt data")

	// ErrMediumUnavailable is returned when the medium cannot be read or
	// written at all (I/O failure, lock acquisition failure).
	ErrMediumUnavailable = errors.New("persistent store unavailable")
)

// IsFatal reports whether err is one of the conditions that must stop a
// session from writing: a concurrent modification or corrupt data.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrCorruptData)
}

// ConflictError carries the tags involved in a refused commit for
// diagnostics. It matches ErrConcurrentModification with errors.Is.
type ConflictError struct {
	Location string
	Expected domain.IntegrityTag
	Actual   domain.IntegrityTag
}

// Error implements the error interface for ConflictError.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s (loaded %s, now %s)",
		ErrConcurrentModification, e.Location, e.Expected.Short(), e.Actual.Short())
}

// Is reports whether target is ErrConcurrentModification.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConcurrentModification
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Location  string // The storage location (file path, database row key)
	Operation string // The operation that failed (e.g., "load", "commit")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Location,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Location, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given location, operation, message, and wrapped error.
func NewStoreError(location, operation, message string, err error) *StoreError {
	return &StoreError{
		Location:  location,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
