package testutils

import (
	"fmt"
	"testing"

	"github.com/phrazzld/scry-local/internal/domain"
)

// MustCard builds a card with the given counters or fails the test.
func MustCard(t testing.TB, prompt, response string, misses, hits int) domain.Card {
	t.Helper()

	card, err := domain.NewCard(prompt, response)
	if err != nil {
		t.Fatalf("invalid test card %q: %v", prompt, err)
	}
	card.Misses = misses
	card.Hits = hits
	return card
}

// SampleSet returns a valid set of n cards with distinct prompts.
func SampleSet(n int) domain.CardSet {
	cards := make([]domain.Card, n)
	for i := range cards {
		cards[i] = domain.Card{
			Prompt:   fmt.Sprintf("prompt %d", i),
			Response: fmt.Sprintf("response %d", i),
			Misses:   i,
			Hits:     n - i,
		}
	}
	return domain.NewCardSet(cards...)
}
