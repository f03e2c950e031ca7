// Package filestore implements store.Medium on a single JSON file.
//
// Replace holds an exclusive lock for the whole read-decide-write cycle and
// publishes the new content by renaming a fully written temporary file over
// the old one, so readers never observe a partial write.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/phrazzld/scry-local/internal/store"
)

// ErrWatchUnsupported is returned by Watch on filesystems other than the OS.
var ErrWatchUnsupported = errors.New("watching is only supported on the OS filesystem")

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Store is a file-backed store.Medium.
type Store struct {
	fs     afero.Fs
	path   string
	locker Locker
	logger *slog.Logger
}

var _ store.Medium = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithFs sets the filesystem. The default is the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = fs }
}

// WithLocker replaces the default locker.
func WithLocker(l Locker) Option {
	return func(s *Store) { s.locker = l }
}

// WithLogger sets the logger; if nil, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New returns a Store for path, creating its parent directory if needed.
// On the OS filesystem the store takes a cross-process file lock; on any
// other filesystem it falls back to a process-wide lock.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage path must not be empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path %s: %w", path, err)
	}

	s := &Store{fs: afero.NewOsFs(), path: abs}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(
		slog.String("component", "filestore"),
		slog.String("path", s.path),
	)

	if s.locker == nil {
		if s.isOsFs() {
			s.locker = NewFileLocker(s.path)
		} else {
			s.locker = NewProcessLocker(s.path)
		}
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return nil, fmt.Errorf("%w: create directory for %s: %w", store.ErrMediumUnavailable, s.path, err)
	}
	return s, nil
}

// Location implements store.Medium.
func (s *Store) Location() string {
	return s.path
}

// Read returns the file content, or nil if the file does not exist.
func (s *Store) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.readFile()
}

// Replace implements store.Medium.
func (s *Store) Replace(ctx context.Context, fn store.ReplaceFn) error {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrMediumUnavailable, err)
	}
	defer func() {
		if unlockErr := unlock(); unlockErr != nil {
			s.logger.Error("failed to release lock", slog.String("error", unlockErr.Error()))
		}
	}()

	current, err := s.readFile()
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	return s.writeAtomic(next)
}

func (s *Store) readFile() ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %w", store.ErrMediumUnavailable, s.path, err)
	}
	return data, nil
}

// writeAtomic writes data to a temporary file in the target directory and
// renames it over the target.
func (s *Store) writeAtomic(data []byte) error {
	tmp, err := afero.TempFile(s.fs, filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temporary file: %w", store.ErrMediumUnavailable, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		if rmErr := s.fs.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("failed to remove temporary file",
				slog.String("file", tmpName),
				slog.String("error", rmErr.Error()))
		}
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write temporary file: %w", store.ErrMediumUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync temporary file: %w", store.ErrMediumUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close temporary file: %w", store.ErrMediumUnavailable, err)
	}
	if err := s.fs.Chmod(tmpName, filePerm); err != nil {
		s.logger.Debug("failed to set file mode", slog.String("error", err.Error()))
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: replace %s: %w", store.ErrMediumUnavailable, s.path, err)
	}

	s.logger.Debug("file replaced", slog.Int("bytes", len(data)))
	return nil
}

func (s *Store) isOsFs() bool {
	_, ok := s.fs.(*afero.OsFs)
	return ok
}
