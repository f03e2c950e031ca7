package review

import (
	"errors"
	"fmt"
)

// ErrReadOnly is returned by mutating operations after the session has been
// halted by a refused save. Reading, navigating and exporting still work.
var ErrReadOnly = errors.New("session is read-only after a failed save")

// SessionError is a custom error type for review session errors with additional context.
type SessionError struct {
	SessionID string // Correlates the error with the session's log lines
	Operation string // The operation that failed (e.g., "answer", "save")
	Err       error  // Original error
}

// Error implements the error interface for SessionError.
func (e *SessionError) Error() string {
	return fmt.Sprintf("review session %s: %s failed: %v", e.SessionID, e.Operation, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *SessionError) Unwrap() error {
	return e.Err
}

func (s *Session) fail(op string, err error) error {
	return &SessionError{SessionID: s.id, Operation: op, Err: err}
}
