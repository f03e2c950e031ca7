package ranking

import (
	"math/rand/v2"

	"github.com/phrazzld/scry-local/internal/domain"
	"gonum.org/v1/gonum/stat/distuv"
)

// linearWeight is misses + 1, so an unreviewed card still weighs 1 and every
// additional miss raises the weight by the same amount.
func linearWeight(_, misses int) float64 {
	return float64(misses) + 1
}

// betaWeight draws from Beta(misses+1, hits+1). The expected value is
// (misses+1)/(misses+hits+2): strictly increasing in misses, decreasing in
// hits, and positive for every card. Because it is a sample rather than the
// mean, a card with a good record still comes up now and then.
func betaWeight(hits, misses int, src rand.Source) float64 {
	dist := distuv.Beta{
		Alpha: float64(misses) + 1,
		Beta:  float64(hits) + 1,
		Src:   src,
	}
	return dist.Rand()
}

// calculateWeights returns one weight per card. Cards listed in recent get
// weight zero unless that would leave no card selectable.
func calculateWeights(
	set domain.CardSet,
	recent []int,
	params *Params,
	src rand.Source,
) []float64 {
	weights := make([]float64, set.Len())
	for i, card := range set.Cards {
		hits, misses := card.Counters(params.Reverse)
		switch params.Policy {
		case PolicyLinear:
			weights[i] = linearWeight(hits, misses)
		default:
			weights[i] = betaWeight(hits, misses, src)
		}
	}

	excluded := make(map[int]bool, len(recent))
	for _, idx := range recent {
		if idx >= 0 && idx < len(weights) {
			excluded[idx] = true
		}
	}
	if len(excluded) == 0 || len(excluded) >= len(weights) {
		return weights
	}
	for idx := range excluded {
		weights[idx] = 0
	}
	return weights
}

// pickWeighted returns an index with probability proportional to its weight.
// If every weight is zero (possible only through float underflow in beta
// sampling) it falls back to a uniform choice.
func pickWeighted(weights []float64, rng *rand.Rand) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.IntN(len(weights))
	}

	target := rng.Float64() * total
	var cumulative float64
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		cumulative += w
		last = i
		if target < cumulative {
			return i
		}
	}
	// rounding can leave target just above the final cumulative sum
	return last
}
