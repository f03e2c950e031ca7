// Package review owns the review loop: the working copy of the card set,
// the card currently shown, the navigation history, and the rule that a
// refused save ends all further writing for the session.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-local/internal/cardjson"
	"github.com/phrazzld/scry-local/internal/domain"
	"github.com/phrazzld/scry-local/internal/domain/ranking"
	"github.com/phrazzld/scry-local/internal/store"
)

// Store is the persistence a session needs. *store.CardStore implements it.
type Store interface {
	Load(ctx context.Context) (domain.CardSet, domain.IntegrityTag, error)
	Save(ctx context.Context, set domain.CardSet, loadTag domain.IntegrityTag) (domain.IntegrityTag, error)
	CurrentTag(ctx context.Context) (domain.IntegrityTag, error)
	Location() string
}

// Face is the side of the current card that is visible.
type Face int

const (
	// FaceFront is shown first: the prompt, or the response in reverse mode.
	FaceFront Face = iota
	// FaceBack is revealed by Flip.
	FaceBack
)

// Options configures a Session.
type Options struct {
	// ExclusionWindow is how many recently shown cards Next avoids.
	ExclusionWindow int
	// Autosave commits after every verdict.
	Autosave bool
	// Reverse shows the response first. The selector must be built with
	// matching ranking.Params.Reverse so that verdicts land on the same counters.
	Reverse bool
}

// Session is one review run over a loaded card set.
// It is not safe for concurrent use.
type Session struct {
	id       string
	store    Store
	selector ranking.Selector
	opts     Options
	logger   *slog.Logger

	set     domain.CardSet
	tag     domain.IntegrityTag
	current int
	face    Face
	history []int
	dirty   bool
	halted  error
}

// Start loads the card set from st and shows the first card.
// An empty set is not an error: Card then reports ranking.ErrEmptySet.
// It accepts an optional logger; if nil, slog.Default() is used.
func Start(
	ctx context.Context,
	st Store,
	selector ranking.Selector,
	opts Options,
	log *slog.Logger,
) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.ExclusionWindow < 0 {
		opts.ExclusionWindow = 0
	}

	id := uuid.New().String()
	s := &Session{
		id:       id,
		store:    st,
		selector: selector,
		opts:     opts,
		logger: log.With(
			slog.String("component", "review_session"),
			slog.String("session_id", id),
		),
		current: -1,
	}

	set, tag, err := st.Load(ctx)
	if err != nil {
		return nil, s.fail("start", err)
	}
	s.set = set
	s.tag = tag

	if set.Len() > 0 {
		if s.current, err = s.selector.Next(set, nil); err != nil {
			return nil, s.fail("start", err)
		}
	}

	s.logger.Info("review session started",
		slog.String("location", st.Location()),
		slog.String("tag", tag.Short()),
		slog.Int("cards", set.Len()))
	return s, nil
}

// ID returns the session's correlation ID.
func (s *Session) ID() string {
	return s.id
}

// Card returns the card currently shown and its index.
func (s *Session) Card() (domain.Card, int, error) {
	if s.current < 0 || s.current >= s.set.Len() {
		return domain.Card{}, -1, ranking.ErrEmptySet
	}
	return s.set.Cards[s.current], s.current, nil
}

// Face returns the visible side of the current card.
func (s *Session) Face() Face {
	return s.face
}

// Visible returns the text on the visible side of the current card.
func (s *Session) Visible() (string, error) {
	card, _, err := s.Card()
	if err != nil {
		return "", err
	}
	showPrompt := (s.face == FaceFront) != s.opts.Reverse
	if showPrompt {
		return card.Prompt, nil
	}
	return card.Response, nil
}

// Flip turns the current card over.
func (s *Session) Flip() {
	if s.face == FaceFront {
		s.face = FaceBack
	} else {
		s.face = FaceFront
	}
}

// Next records the current card in the history and picks another one,
// avoiding the most recently shown cards.
func (s *Session) Next() error {
	if s.set.Len() == 0 {
		return ranking.ErrEmptySet
	}
	if s.current >= 0 {
		s.history = append(s.history, s.current)
	}

	next, err := s.selector.Next(s.set, s.recent())
	if err != nil {
		return s.fail("next", err)
	}
	s.current = next
	s.face = FaceFront
	return nil
}

// Prev returns to the previously shown card. It reports false when there is
// no history left.
func (s *Session) Prev() bool {
	if len(s.history) == 0 {
		return false
	}
	last := len(s.history) - 1
	s.current = s.history[last]
	s.history = s.history[:last]
	s.face = FaceFront
	return true
}

// recent returns the exclusion window: the most recently shown cards,
// newest first, never as many as the whole set.
func (s *Session) recent() []int {
	window := min(s.opts.ExclusionWindow, s.set.Len()-1)
	if window <= 0 {
		return nil
	}
	recent := make([]int, 0, window)
	for i := len(s.history) - 1; i >= 0 && len(recent) < window; i-- {
		recent = append(recent, s.history[i])
	}
	return recent
}

// Answer applies a verdict to the current card, saves when autosave is on,
// and moves to the next card. A refused save halts the session and is
// returned; the verdict stays in the working copy for export.
func (s *Session) Answer(ctx context.Context, correct bool) error {
	if s.halted != nil {
		return s.fail("answer", fmt.Errorf("%w: %w", ErrReadOnly, s.halted))
	}
	if _, _, err := s.Card(); err != nil {
		return s.fail("answer", err)
	}

	updated, err := s.selector.Record(s.set, s.current, correct)
	if err != nil {
		return s.fail("answer", err)
	}
	s.set = updated
	s.dirty = true

	s.logger.Debug("verdict recorded",
		slog.Int("index", s.current),
		slog.Bool("correct", correct))

	if s.opts.Autosave {
		if err := s.Save(ctx); err != nil {
			return err
		}
	}
	return s.Next()
}

// Save commits the working copy if it has unsaved changes. When the store
// refuses because of a concurrent modification or corrupt data, the session
// becomes read-only, permanently.
func (s *Session) Save(ctx context.Context) error {
	if s.halted != nil {
		return s.fail("save", fmt.Errorf("%w: %w", ErrReadOnly, s.halted))
	}
	if !s.dirty {
		return nil
	}

	tag, err := s.store.Save(ctx, s.set, s.tag)
	if err != nil {
		if store.IsFatal(err) {
			s.halted = err
			s.logger.Error("save refused, session is now read-only",
				slog.String("error", err.Error()))
		}
		return s.fail("save", err)
	}

	s.logger.Debug("session saved",
		slog.String("previous_tag", s.tag.Short()),
		slog.String("tag", tag.Short()))
	s.tag = tag
	s.dirty = false
	return nil
}

// Halted returns the error that made the session read-only, or nil.
func (s *Session) Halted() error {
	return s.halted
}

// Dirty reports whether the working copy has unsaved verdicts.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Tag returns the tag of the snapshot the working copy is based on.
func (s *Session) Tag() domain.IntegrityTag {
	return s.tag
}

// Set returns a copy of the working card set.
func (s *Session) Set() domain.CardSet {
	return s.set.Clone()
}

// Stats summarizes the working card set in the session's review direction.
func (s *Session) Stats() domain.Stats {
	return domain.Summarize(s.set, s.opts.Reverse)
}

// Export serializes the working card set in the external JSON schema. It is
// available in read-only mode so that progress can be rescued after a conflict.
func (s *Session) Export() ([]byte, error) {
	data, err := cardjson.Export(s.set)
	if err != nil {
		return nil, s.fail("export", err)
	}
	return data, nil
}

// CheckExternal reports whether the store now holds something other than
// the snapshot this session is based on. It never writes and never halts the
// session; a pending save will be refused when it is attempted.
func (s *Session) CheckExternal(ctx context.Context) (bool, error) {
	current, err := s.store.CurrentTag(ctx)
	if err != nil {
		if errors.Is(err, store.ErrCorruptData) {
			return true, nil
		}
		return false, s.fail("check", err)
	}
	changed := current != s.tag
	if changed {
		s.logger.Warn("store changed outside this session",
			slog.String("session_tag", s.tag.Short()),
			slog.String("store_tag", current.Short()))
	}
	return changed, nil
}
