package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-local/internal/platform/logger"
	"github.com/phrazzld/scry-local/internal/store"
)

// txFn is the body of a write transaction on the snapshots table.
type txFn func(ctx context.Context, tx *sql.Tx) error

// inWriteTx runs fn inside one IMMEDIATE transaction (see DSN), so the write
// lock is held from the first read to the commit.
//
// fn's error is returned unchanged after the rollback; the guard relies on
// that to tell its own refusals from medium failures. Failing to begin,
// commit or roll back is reported as store.ErrMediumUnavailable. A panic in
// fn rolls back and is re-raised.
func (s *Store) inWriteTx(ctx context.Context, fn txFn) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn("cannot take the database write lock", slog.String("error", err.Error()))
		return fmt.Errorf("%w: begin write on %s: %w", store.ErrMediumUnavailable, s.Location(), err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := rollback(tx); rbErr != nil {
				log.Error("rollback after panic failed",
					slog.String("error", rbErr.Error()),
					slog.Any("panic", p))
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := rollback(tx); rbErr != nil {
			log.Error("rollback failed",
				slog.String("rollback_error", rbErr.Error()),
				slog.String("original_error", err.Error()))
			return fmt.Errorf("%w: roll back %s: %v: %w", store.ErrMediumUnavailable, s.Location(), rbErr, err)
		}
		log.Debug("write rolled back", slog.String("error", err.Error()))
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: commit to %s: %w", store.ErrMediumUnavailable, s.Location(), err)
	}

	log.Debug("write committed")
	return nil
}

// rollback ends tx. A transaction the driver already ended, for example
// after its context was cancelled, counts as rolled back.
func rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
