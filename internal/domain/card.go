package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Card-specific validation errors
var (
	// ErrCardPromptEmpty is returned when a card has no prompt text.
	ErrCardPromptEmpty = errors.New("card prompt cannot be empty")

	// ErrCardResponseEmpty is returned when a card has no response text.
	ErrCardResponseEmpty = errors.New("card response cannot be empty")

	// ErrCardNegativeCounter is returned when a hit or miss counter is below zero.
	ErrCardNegativeCounter = errors.New("card counters cannot be negative")
)

// Card is one prompt/response flashcard with cumulative review counters.
// The reverse counters track reviews where the response is shown first.
type Card struct {
	Prompt        string `json:"prompt"`
	Response      string `json:"response"`
	Misses        int    `json:"misses"`
	Hits          int    `json:"hits"`
	ReverseHits   int    `json:"reverse_hits,omitempty"`
	ReverseMisses int    `json:"reverse_misses,omitempty"`
}

// NewCard creates a card that has never been reviewed.
// Returns an error if validation fails.
func NewCard(prompt, response string) (Card, error) {
	card := Card{Prompt: prompt, Response: response}
	if err := card.Validate(); err != nil {
		return Card{}, err
	}
	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c Card) Validate() error {
	if strings.TrimSpace(c.Prompt) == "" {
		return ErrCardPromptEmpty
	}

	if strings.TrimSpace(c.Response) == "" {
		return ErrCardResponseEmpty
	}

	if c.Hits < 0 || c.Misses < 0 || c.ReverseHits < 0 || c.ReverseMisses < 0 {
		return ErrCardNegativeCounter
	}

	return nil
}

// Counters returns the hit and miss pair for the given review direction.
func (c Card) Counters(reverse bool) (hits, misses int) {
	if reverse {
		return c.ReverseHits, c.ReverseMisses
	}
	return c.Hits, c.Misses
}

// CurrentFormat is the format version written with every card set.
const CurrentFormat = 1

// CardSet is the ordered collection of cards that is persisted as one unit.
type CardSet struct {
	Format int    `json:"format"`
	Cards  []Card `json:"cards"`
}

// NewCardSet returns a card set in the current format holding the given cards.
func NewCardSet(cards ...Card) CardSet {
	set := CardSet{Format: CurrentFormat, Cards: make([]Card, 0, len(cards))}
	set.Cards = append(set.Cards, cards...)
	return set
}

// Len returns the number of cards in the set.
func (s CardSet) Len() int {
	return len(s.Cards)
}

// Clone returns a deep copy of the set. Mutating the copy never affects s.
func (s CardSet) Clone() CardSet {
	clone := CardSet{Format: s.Format, Cards: make([]Card, len(s.Cards))}
	copy(clone.Cards, s.Cards)
	return clone
}

// Validate checks every card in the set and the format version.
// The returned error wraps ErrValidation and names the offending position.
func (s CardSet) Validate() error {
	if s.Format != CurrentFormat {
		return fmt.Errorf("%w: unsupported format %d", ErrValidation, s.Format)
	}
	for i, card := range s.Cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: card %d: %w", ErrValidation, i, err)
		}
	}
	return nil
}

// Append adds cards to the end of the set, preserving their order.
func (s *CardSet) Append(cards ...Card) error {
	for i, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: card %d: %w", ErrValidation, s.Len()+i, err)
		}
	}
	s.Cards = append(s.Cards, cards...)
	return nil
}

// Update replaces the card at index.
func (s *CardSet) Update(index int, card Card) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: card %d: %w", ErrValidation, index, err)
	}
	s.Cards[index] = card
	return nil
}

// Remove deletes the card at index. Later cards shift down by one position.
func (s *CardSet) Remove(index int) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.Cards = append(s.Cards[:index:index], s.Cards[index+1:]...)
	return nil
}

func (s CardSet) checkIndex(index int) error {
	if index < 0 || index >= len(s.Cards) {
		return fmt.Errorf("%w: %d (set has %d cards)", ErrIndexOutOfRange, index, len(s.Cards))
	}
	return nil
}

// IntegrityTag identifies the content of one persisted snapshot. Two sets
// with identical serialized content always carry the same tag.
type IntegrityTag string

// EmptyTag is the tag reported for a medium that holds no snapshot yet.
const EmptyTag IntegrityTag = "empty"

// Short returns an abbreviated form of the tag for diagnostics.
func (t IntegrityTag) Short() string {
	if len(t) > 12 {
		return string(t[:12])
	}
	return string(t)
}

// Snapshot is a card set together with the tag it was durably written under.
type Snapshot struct {
	Set CardSet
	Tag IntegrityTag
}
