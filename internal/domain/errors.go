// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrIndexOutOfRange is returned when a positional card reference does
	// not exist in the card set.
	ErrIndexOutOfRange = errors.New("card index out of range")
)
