package store

import "context"

// ReplaceFn computes the next content of a medium from its current content.
// current is nil when nothing has been stored yet. Returning an error aborts
// the replacement and leaves the medium untouched.
type ReplaceFn func(current []byte) ([]byte, error)

// Medium defines the interface for a durable storage location holding one
// serialized snapshot.
//
// Implementations must make Replace exclusive across every process that can
// reach the same location, and must write its result atomically: readers see
// either the old content or the new content, never a mix.
type Medium interface {
	// Read returns the stored bytes, or nil if the location is empty.
	Read(ctx context.Context) ([]byte, error)

	// Replace runs fn while holding exclusive access to the location and
	// stores its result. If fn fails, nothing is written and fn's error is
	// returned unchanged.
	Replace(ctx context.Context, fn ReplaceFn) error

	// Location describes where the snapshot lives, for logs and errors.
	Location() string
}
