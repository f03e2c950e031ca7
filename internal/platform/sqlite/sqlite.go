// Package sqlite implements store.Medium on a SQLite database using the
// pure Go modernc.org/sqlite driver.
//
// Every location is one row of the snapshots table. Replace runs inside an
// IMMEDIATE transaction, which takes the database write lock before the
// current row is read, so check-and-write is serialized across processes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/phrazzld/scry-local/internal/store"
)

const (
	driverName    = "sqlite"
	busyTimeoutMS = 5000
)

const (
	selectPayloadSQL = `SELECT payload FROM snapshots WHERE location = ?`
	upsertPayloadSQL = `INSERT INTO snapshots (location, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT(location) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
)

// Store is a SQLite-backed store.Medium.
type Store struct {
	db       *sql.DB
	path     string
	location string
	logger   *slog.Logger
	ownsDB   bool
}

var _ store.Medium = (*Store)(nil)

// DSN returns the connection string used for the database at path.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Open opens (creating if needed) the database at path, applies pending
// migrations and returns a Store for the row keyed by location.
// It accepts an optional logger; if nil, slog.Default() is used.
func Open(ctx context.Context, path, location string, log *slog.Logger) (*Store, error) {
	if path == "" || location == "" {
		return nil, errors.New("sqlite store requires a path and a location")
	}
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory for %s: %w", store.ErrMediumUnavailable, path, err)
	}

	db, err := sql.Open(driverName, DSN(path))
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", store.ErrMediumUnavailable, err)
	}
	// One connection per process: cross-process exclusion comes from the
	// database lock, and a single connection avoids self-contention.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: connect to %s: %w", store.ErrMediumUnavailable, path, err)
	}

	if err := migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := NewWithDB(db, path, location, log)
	s.ownsDB = true
	return s, nil
}

// NewWithDB returns a Store over an already migrated database handle.
// The caller keeps ownership of db.
func NewWithDB(db *sql.DB, path, location string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		db:       db,
		path:     path,
		location: location,
		logger: log.With(
			slog.String("component", "sqlite_store"),
			slog.String("location", location),
		),
	}
}

// Close releases the database handle if the Store opened it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Location implements store.Medium.
func (s *Store) Location() string {
	return "sqlite:" + s.path + "#" + s.location
}

// Read returns the stored payload, or nil when the row does not exist.
func (s *Store) Read(ctx context.Context) ([]byte, error) {
	payload, err := queryPayload(ctx, s.db, s.location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrMediumUnavailable, err)
	}
	return payload, nil
}

// Replace implements store.Medium.
func (s *Store) Replace(ctx context.Context, fn store.ReplaceFn) error {
	return s.inWriteTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		current, err := queryPayload(ctx, tx, s.location)
		if err != nil {
			return fmt.Errorf("%w: %w", store.ErrMediumUnavailable, err)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		updatedAt := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx, upsertPayloadSQL, s.location, next, updatedAt); err != nil {
			return fmt.Errorf("%w: write snapshot: %w", store.ErrMediumUnavailable, err)
		}
		return nil
	})
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryPayload(ctx context.Context, q queryer, location string) ([]byte, error) {
	var payload []byte
	err := q.QueryRowContext(ctx, selectPayloadSQL, location).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return payload, nil
}
