// Package memory provides an in-process store.Medium backed by a byte slice.
// Independent CardStores sharing one Medium behave like independent
// processes sharing one file, which makes it the medium of choice for tests.
package memory

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-local/internal/store"
)

// Medium is a mutex-guarded, in-memory store.Medium.
type Medium struct {
	mu       sync.Mutex
	data     []byte
	location string
	writes   int
}

var _ store.Medium = (*Medium)(nil)

// New returns an empty medium identified by location.
func New(location string) *Medium {
	return &Medium{location: location}
}

// Read returns a copy of the stored bytes, or nil when nothing is stored.
func (m *Medium) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.data), nil
}

// Replace runs fn under the medium's mutex and stores its result.
func (m *Medium) Replace(ctx context.Context, fn store.ReplaceFn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := fn(clone(m.data))
	if err != nil {
		return err
	}
	m.data = clone(next)
	m.writes++
	return nil
}

// Location implements store.Medium.
func (m *Medium) Location() string {
	return "memory:" + m.location
}

// Tamper replaces the stored bytes directly, bypassing any consistency
// check, the way a text editor would.
func (m *Medium) Tamper(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = clone(data)
}

// Writes returns the number of successful Replace calls.
func (m *Medium) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
