package cardjson

import (
	"encoding/json"
	"fmt"

	"github.com/phrazzld/scry-local/internal/domain"
)

// Export serializes the set in the external schema, one indented object per
// card in set order. Field order is prompt, response, misses, hits.
func Export(set domain.CardSet) ([]byte, error) {
	cards := set.Cards
	if cards == nil {
		cards = []domain.Card{}
	}

	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export cards: %w", err)
	}
	return append(data, '\n'), nil
}
