package domain

import "sort"

// KnownWellGoodness is the goodness a card must reach, after more than one
// response, to count as known well.
const KnownWellGoodness = 0.5

// CardStats describes the review history of a single card.
type CardStats struct {
	Index      int     `json:"index"`
	Prompt     string  `json:"prompt"`
	Response   string  `json:"response"`
	Hits       int     `json:"hits"`
	Misses     int     `json:"misses"`
	HitPercent float64 `json:"hit_percent"`
	Goodness   float64 `json:"goodness"`
}

// Responses returns the number of verdicts recorded for the card.
func (c CardStats) Responses() int {
	return c.Hits + c.Misses
}

// Stats aggregates the review history of a card set.
type Stats struct {
	// Rows holds one entry per card, best goodness first.
	Rows []CardStats `json:"rows"`
	// OverallScore is the mean goodness across all cards, scaled to [-100, 100].
	OverallScore float64 `json:"overall_score"`
	// PercentKnownWell is the share of cards answered more than once with a
	// goodness of at least KnownWellGoodness.
	PercentKnownWell float64 `json:"percent_known_well"`
	// PercentVisited is the share of cards with at least one verdict.
	PercentVisited float64 `json:"percent_visited"`
	// Responses is the total number of verdicts across the set.
	Responses int `json:"responses"`
}

// Summarize computes statistics over the set for one review direction.
func Summarize(set CardSet, reverse bool) Stats {
	if set.Len() == 0 {
		return Stats{}
	}

	rows := make([]CardStats, 0, set.Len())
	var goodnessSum float64
	var visited, knownWell, responses int

	for i, card := range set.Cards {
		hits, misses := card.Counters(reverse)
		row := CardStats{
			Index:      i,
			Prompt:     card.Prompt,
			Response:   card.Response,
			Hits:       hits,
			Misses:     misses,
			HitPercent: 100 * hitRatio(hits, misses),
			Goodness:   goodness(hits, misses),
		}
		rows = append(rows, row)

		goodnessSum += row.Goodness
		responses += row.Responses()
		if row.Responses() > 0 {
			visited++
		}
		// a single response is not enough to know a card well
		if row.Responses() > 1 && row.Goodness >= KnownWellGoodness {
			knownWell++
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Goodness > rows[b].Goodness
	})

	n := float64(set.Len())
	return Stats{
		Rows:             rows,
		OverallScore:     100 * goodnessSum / n,
		PercentKnownWell: 100 * float64(knownWell) / n,
		PercentVisited:   100 * float64(visited) / n,
		Responses:        responses,
	}
}

func hitRatio(hits, misses int) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func goodness(hits, misses int) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits-misses) / float64(total)
}
