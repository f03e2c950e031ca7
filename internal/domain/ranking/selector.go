// Package ranking chooses which card to review next and applies verdicts to
// the per-card counters. The counters carried on each card are the only
// adaptive state; a Selector keeps no memory of what it has shown.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/phrazzld/scry-local/internal/domain"
)

// Common errors
var (
	ErrEmptySet        = errors.New("card set is empty")
	ErrIndexOutOfRange = domain.ErrIndexOutOfRange
	ErrUnknownPolicy   = errors.New("unknown selection policy")
)

// Selector defines the interface for card selection operations
type Selector interface {
	// Next picks the index of the card to show. Indices in recent are
	// avoided when at least one other card is available.
	// Returns ErrEmptySet when the set has no cards.
	Next(set domain.CardSet, recent []int) (int, error)

	// Record returns a copy of set with the verdict applied to the card at
	// index: hits+1 when correct, misses+1 otherwise. set itself is not modified.
	Record(set domain.CardSet, index int, correct bool) (domain.CardSet, error)
}

// defaultSelector is the standard implementation of the Selector interface.
// It is not safe for concurrent use because the random source is not.
type defaultSelector struct {
	params *Params
	src    rand.Source
	rng    *rand.Rand
}

// NewDefaultSelector creates a selector with default parameters
func NewDefaultSelector(src rand.Source) Selector {
	return NewSelectorWithParams(NewDefaultParams(), src)
}

// NewSelectorWithParams creates a selector with custom parameters.
// A nil src seeds a new PCG source from the runtime's random generator.
func NewSelectorWithParams(params *Params, src rand.Source) Selector {
	if params == nil {
		params = NewDefaultParams()
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &defaultSelector{
		params: params,
		src:    src,
		rng:    rand.New(src),
	}
}

// Next implements the Selector interface
func (s *defaultSelector) Next(set domain.CardSet, recent []int) (int, error) {
	if set.Len() == 0 {
		return 0, ErrEmptySet
	}

	weights := calculateWeights(set, recent, s.params, s.src)
	return pickWeighted(weights, s.rng), nil
}

// Record implements the Selector interface
func (s *defaultSelector) Record(set domain.CardSet, index int, correct bool) (domain.CardSet, error) {
	if index < 0 || index >= set.Len() {
		return domain.CardSet{}, fmt.Errorf("%w: %d (set has %d cards)", ErrIndexOutOfRange, index, set.Len())
	}

	updated := set.Clone()
	card := &updated.Cards[index]
	switch {
	case correct && s.params.Reverse:
		increment(&card.ReverseHits)
	case correct:
		increment(&card.Hits)
	case s.params.Reverse:
		increment(&card.ReverseMisses)
	default:
		increment(&card.Misses)
	}

	return updated, nil
}

// increment adds one to a counter, saturating at math.MaxInt.
func increment(counter *int) {
	if *counter < math.MaxInt {
		*counter++
	}
}
