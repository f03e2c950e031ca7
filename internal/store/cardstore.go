package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-local/internal/domain"
	"github.com/phrazzld/scry-local/internal/platform/logger"
)

// CardStore loads and saves the persistent card set through a Guard.
//
// It never retries a refused save and never merges: ErrConcurrentModification
// is returned to the caller, who decides what the user sees.
type CardStore struct {
	guard  *Guard
	logger *slog.Logger
}

// NewCardStore creates a CardStore over medium.
// It accepts an optional logger; if nil, slog.Default() is used.
func NewCardStore(medium Medium, log *slog.Logger) *CardStore {
	if log == nil {
		log = slog.Default()
	}
	return &CardStore{
		guard:  NewGuard(medium, log),
		logger: log.With(slog.String("component", "card_store")),
	}
}

// Location returns where the card set is stored.
func (s *CardStore) Location() string {
	return s.guard.Location()
}

// Load returns the stored card set and the tag it was loaded under.
// An empty medium yields an empty set tagged EmptyTag. Content that cannot be
// decoded into a valid set yields ErrCorruptData.
func (s *CardStore) Load(ctx context.Context) (domain.CardSet, domain.IntegrityTag, error) {
	snap, err := s.guard.Read(ctx)
	if err != nil {
		return domain.CardSet{}, "", fmt.Errorf("failed to load card set: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("card set loaded",
		slog.String("location", s.Location()),
		slog.String("tag", snap.Tag.Short()),
		slog.Int("cards", snap.Set.Len()))
	return snap.Set, snap.Tag, nil
}

// Save commits set provided the medium still holds the snapshot tagged
// loadTag, and returns the new tag. An invalid set is rejected with
// ErrValidation before the medium is touched.
func (s *CardStore) Save(
	ctx context.Context,
	set domain.CardSet,
	loadTag domain.IntegrityTag,
) (domain.IntegrityTag, error) {
	if err := set.Validate(); err != nil {
		return "", fmt.Errorf("refusing to save card set: %w", err)
	}

	tag, err := s.guard.Commit(ctx, set, loadTag)
	if err != nil {
		return "", fmt.Errorf("failed to save card set: %w", err)
	}
	return tag, nil
}

// CurrentTag returns the tag of what the medium holds now.
func (s *CardStore) CurrentTag(ctx context.Context) (domain.IntegrityTag, error) {
	return s.guard.CurrentTag(ctx)
}

// Reset replaces whatever the medium holds with an empty card set, without
// a consistency check. It exists to recover from ErrCorruptData and must
// only run on explicit user confirmation.
func (s *CardStore) Reset(ctx context.Context) (domain.IntegrityTag, error) {
	tag, err := s.guard.Overwrite(ctx, domain.NewCardSet())
	if err != nil {
		return "", fmt.Errorf("failed to reset card set: %w", err)
	}
	return tag, nil
}
