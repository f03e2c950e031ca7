package filestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay is how often a contended file lock is retried.
const lockRetryDelay = 20 * time.Millisecond

// Locker grants exclusive access to one storage path.
type Locker interface {
	// Lock blocks until access is granted or ctx is done. The returned
	// function releases the lock.
	Lock(ctx context.Context) (unlock func() error, err error)
}

// processLocks holds one channel per path so that stores opened on the same
// path inside one process exclude each other even where advisory file locks
// are per process.
var processLocks sync.Map // map[string]chan struct{}

type processLocker struct {
	ch chan struct{}
}

// NewProcessLocker returns a Locker that serializes access to path among
// goroutines of the current process only.
func NewProcessLocker(path string) Locker {
	ch, _ := processLocks.LoadOrStore(path, make(chan struct{}, 1))
	return &processLocker{ch: ch.(chan struct{})}
}

func (l *processLocker) Lock(ctx context.Context) (func() error, error) {
	select {
	case l.ch <- struct{}{}:
		return func() error {
			<-l.ch
			return nil
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fileLocker layers an advisory lock on <path>.lock over the process lock,
// excluding other processes as well as other goroutines.
type fileLocker struct {
	process Locker
	flock   *flock.Flock
}

// NewFileLocker returns a Locker that excludes every process using the same
// lock file. path is the data file; the lock lives beside it.
func NewFileLocker(path string) Locker {
	return &fileLocker{
		process: NewProcessLocker(path),
		flock:   flock.New(path + ".lock"),
	}
}

func (l *fileLocker) Lock(ctx context.Context) (func() error, error) {
	releaseProcess, err := l.process.Lock(ctx)
	if err != nil {
		return nil, err
	}

	locked, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		_ = releaseProcess()
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("failed to lock %s: %w", l.flock.Path(), err)
	}

	return func() error {
		unlockErr := l.flock.Unlock()
		_ = releaseProcess()
		return unlockErr
	}, nil
}
