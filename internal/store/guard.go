package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-local/internal/domain"
	"github.com/phrazzld/scry-local/internal/platform/logger"
)

// Guard detects writes made by other contexts between a load and a commit.
//
// It keeps no state of its own: every decision is made from what the medium
// holds at the moment of the call, so it is safe to share between goroutines
// as long as the medium is.
type Guard struct {
	medium Medium
	logger *slog.Logger
	now    func() time.Time
}

// NewGuard creates a Guard over medium.
// It accepts an optional logger; if nil, slog.Default() is used.
func NewGuard(medium Medium, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{
		medium: medium,
		logger: log.With(
			slog.String("component", "consistency_guard"),
			slog.String("location", medium.Location()),
		),
		now: time.Now,
	}
}

// Location returns the location of the guarded medium.
func (g *Guard) Location() string {
	return g.medium.Location()
}

// Read returns the snapshot currently stored, tagged with the tag derived
// from its content.
func (g *Guard) Read(ctx context.Context) (domain.Snapshot, error) {
	data, err := g.medium.Read(ctx)
	if err != nil {
		return domain.Snapshot{}, g.mediumError("read", err)
	}

	d, err := g.inspect(ctx, data)
	if err != nil {
		return domain.Snapshot{}, NewStoreError(g.Location(), "read", "cannot decode snapshot", err)
	}
	return d.Snapshot, nil
}

// CurrentTag returns the tag of what the medium holds now, or EmptyTag when
// it holds nothing. It has no side effects.
func (g *Guard) CurrentTag(ctx context.Context) (domain.IntegrityTag, error) {
	snap, err := g.Read(ctx)
	if err != nil {
		return "", err
	}
	return snap.Tag, nil
}

// Commit writes set if and only if the medium still holds the snapshot
// tagged expected. The check and the write happen under the medium's
// exclusive access. On mismatch it returns a *ConflictError and the medium
// is left untouched. On success it returns the tag of the new snapshot.
func (g *Guard) Commit(
	ctx context.Context,
	set domain.CardSet,
	expected domain.IntegrityTag,
) (domain.IntegrityTag, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	var (
		newTag  domain.IntegrityTag
		refusal error
	)
	err := g.medium.Replace(ctx, func(current []byte) ([]byte, error) {
		d, err := g.inspect(ctx, current)
		if err != nil {
			refusal = NewStoreError(g.Location(), "commit", "stored snapshot is unreadable", err)
			return nil, refusal
		}

		if d.Snapshot.Tag != expected {
			refusal = &ConflictError{
				Location: g.Location(),
				Expected: expected,
				Actual:   d.Snapshot.Tag,
			}
			return nil, refusal
		}

		data, tag, err := encodeSnapshot(set, g.now())
		if err != nil {
			refusal = err
			return nil, refusal
		}
		newTag = tag
		return data, nil
	})

	switch {
	case err == nil:
		log.Debug("snapshot committed",
			slog.String("previous_tag", expected.Short()),
			slog.String("tag", newTag.Short()),
			slog.Int("cards", set.Len()))
		return newTag, nil
	case refusal != nil && errors.Is(err, refusal):
		if errors.Is(err, ErrConcurrentModification) {
			log.Warn("commit refused: medium was modified by another writer",
				slog.String("error", err.Error()))
		} else {
			log.Error("commit refused", slog.String("error", err.Error()))
		}
		return "", err
	default:
		return "", g.mediumError("commit", err)
	}
}

// Overwrite writes set without comparing tags. It is the recovery path for a
// medium whose content can no longer be decoded.
func (g *Guard) Overwrite(ctx context.Context, set domain.CardSet) (domain.IntegrityTag, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	var newTag domain.IntegrityTag
	err := g.medium.Replace(ctx, func(_ []byte) ([]byte, error) {
		data, tag, err := encodeSnapshot(set, g.now())
		if err != nil {
			return nil, err
		}
		newTag = tag
		return data, nil
	})
	if err != nil {
		return "", g.mediumError("overwrite", err)
	}

	log.Warn("snapshot overwritten without consistency check",
		slog.String("tag", newTag.Short()),
		slog.Int("cards", set.Len()))
	return newTag, nil
}

// inspect decodes raw content and reports a stored tag that disagrees with
// the content, which means the medium was edited by hand.
func (g *Guard) inspect(ctx context.Context, data []byte) (decoded, error) {
	d, err := decodeSnapshot(data)
	if err != nil {
		return decoded{}, err
	}
	if !d.Empty && d.StoredTag != d.Snapshot.Tag {
		logger.FromContextOrDefault(ctx, g.logger).Warn("stored tag does not match content",
			slog.String("stored_tag", d.StoredTag.Short()),
			slog.String("content_tag", d.Snapshot.Tag.Short()))
	}
	return d, nil
}

func (g *Guard) mediumError(op string, err error) error {
	if errors.Is(err, ErrMediumUnavailable) {
		return NewStoreError(g.Location(), op, "medium unavailable", err)
	}
	return NewStoreError(g.Location(), op, "medium unavailable", fmt.Errorf("%w: %w", ErrMediumUnavailable, err))
}
