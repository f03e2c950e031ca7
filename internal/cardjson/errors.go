package cardjson

import (
	"fmt"

	"github.com/phrazzld/scry-local/internal/domain"
)

// ValidationError describes why externally supplied card data was rejected.
// It matches domain.ErrValidation with errors.Is.
type ValidationError struct {
	// Index is the position of the offending card, or -1 when the problem is
	// with the document as a whole (not an array, malformed JSON).
	Index int
	// Field is the JSON name of the offending field, empty when the problem
	// is not tied to one field.
	Field string
	// Reason is a short human-readable description of the problem.
	Reason string
	// Err is the underlying decoder error, if any.
	Err error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	var msg string
	switch {
	case e.Index < 0:
		msg = fmt.Sprintf("invalid card data: %s", e.Reason)
	case e.Field == "":
		msg = fmt.Sprintf("invalid card %d: %s", e.Index, e.Reason)
	default:
		msg = fmt.Sprintf("invalid card %d: field %q %s", e.Index, e.Field, e.Reason)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is domain.ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == domain.ErrValidation
}

func documentError(reason string, err error) *ValidationError {
	return &ValidationError{Index: -1, Reason: reason, Err: err}
}
