package ranking

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/phrazzld/scry-local/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelector(t *testing.T, policy Policy, reverse bool) Selector {
	t.Helper()
	params, err := NewParams(ParamsConfig{Policy: string(policy), Reverse: reverse})
	require.NoError(t, err)
	return NewSelectorWithParams(params, rand.NewPCG(42, 1024))
}

func cardsWithMisses(misses ...int) domain.CardSet {
	set := domain.NewCardSet()
	for i, m := range misses {
		set.Cards = append(set.Cards, domain.Card{
			Prompt:   string(rune('a' + i)),
			Response: "r",
			Misses:   m,
		})
	}
	return set
}

func TestNextEmptySet(t *testing.T) {
	t.Parallel()

	for _, policy := range []Policy{PolicyLinear, PolicyBeta} {
		selector := newTestSelector(t, policy, false)
		idx, err := selector.Next(domain.NewCardSet(), nil)
		assert.ErrorIs(t, err, ErrEmptySet, "policy %s", policy)
		assert.Zero(t, idx)
	}
}

func TestNextSingleCard(t *testing.T) {
	t.Parallel()

	selector := newTestSelector(t, PolicyBeta, false)
	set := cardsWithMisses(0)

	// a fresh card with hits = misses = 0 must be selectable, even when it
	// was just shown
	for i := 0; i < 20; i++ {
		idx, err := selector.Next(set, []int{0})
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	}
}

func TestNextWeightedFairness(t *testing.T) {
	t.Parallel()

	const samples = 40000

	testCases := []struct {
		name   string
		policy Policy
		misses []int
	}{
		{"linear", PolicyLinear, []int{0, 1, 3, 7}},
		{"beta", PolicyBeta, []int{0, 2, 6}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			selector := newTestSelector(t, tc.policy, false)
			set := cardsWithMisses(tc.misses...)

			counts := make([]int, set.Len())
			for i := 0; i < samples; i++ {
				idx, err := selector.Next(set, nil)
				require.NoError(t, err)
				counts[idx]++
			}

			for i, c := range counts {
				assert.Positive(t, c, "card %d was never selected", i)
			}
			for i := 1; i < len(counts); i++ {
				assert.Greater(t, counts[i], counts[i-1],
					"selection frequency should increase with misses: %v", counts)
			}
		})
	}
}

func TestNextLinearProportions(t *testing.T) {
	t.Parallel()

	const samples = 60000
	selector := newTestSelector(t, PolicyLinear, false)
	set := cardsWithMisses(0, 3) // weights 1 and 4

	var second int
	for i := 0; i < samples; i++ {
		idx, err := selector.Next(set, nil)
		require.NoError(t, err)
		if idx == 1 {
			second++
		}
	}
	assert.InDelta(t, 0.8, float64(second)/samples, 0.02)
}

func TestNextHitsLowerBetaWeight(t *testing.T) {
	t.Parallel()

	const samples = 20000
	selector := newTestSelector(t, PolicyBeta, false)
	set := domain.NewCardSet(
		domain.Card{Prompt: "known", Response: "r", Hits: 9},
		domain.Card{Prompt: "fresh", Response: "r"},
	)

	counts := make([]int, 2)
	for i := 0; i < samples; i++ {
		idx, err := selector.Next(set, nil)
		require.NoError(t, err)
		counts[idx]++
	}
	assert.Positive(t, counts[0], "well known card must still resurface")
	assert.Greater(t, counts[1], counts[0])
}

func TestNextMaxCounters(t *testing.T) {
	t.Parallel()

	for _, policy := range []Policy{PolicyBeta, PolicyLinear} {
		t.Run(string(policy), func(t *testing.T) {
			t.Parallel()

			const samples = 2000
			selector := newTestSelector(t, policy, false)
			set := domain.NewCardSet(
				domain.Card{Prompt: "missed", Response: "r", Misses: math.MaxInt},
				domain.Card{Prompt: "fresh", Response: "r"},
				domain.Card{Prompt: "known", Response: "r", Hits: math.MaxInt, Misses: math.MaxInt},
			)

			counts := make([]int, 3)
			for i := 0; i < samples; i++ {
				idx, err := selector.Next(set, nil)
				require.NoError(t, err)
				counts[idx]++
			}
			assert.Greater(t, counts[0], counts[1], "a huge miss count still raises the weight")
		})
	}
}

func TestNextExclusionWindow(t *testing.T) {
	t.Parallel()

	selector := newTestSelector(t, PolicyLinear, false)
	set := cardsWithMisses(0, 0, 50)

	for i := 0; i < 500; i++ {
		idx, err := selector.Next(set, []int{2})
		require.NoError(t, err)
		assert.NotEqual(t, 2, idx)
	}

	// excluding every card disables the window
	idx, err := selector.Next(set, []int{0, 1, 2})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, 3)

	// indices outside the set are ignored
	_, err = selector.Next(set, []int{-1, 7})
	assert.NoError(t, err)
}

func TestNextReverseUsesReverseCounters(t *testing.T) {
	t.Parallel()

	const samples = 20000
	selector := newTestSelector(t, PolicyLinear, true)
	set := domain.NewCardSet(
		domain.Card{Prompt: "a", Response: "r", Misses: 20},
		domain.Card{Prompt: "b", Response: "r", ReverseMisses: 20},
	)

	counts := make([]int, 2)
	for i := 0; i < samples; i++ {
		idx, err := selector.Next(set, nil)
		require.NoError(t, err)
		counts[idx]++
	}
	assert.Greater(t, counts[1], counts[0]*5)
}

func TestRecord(t *testing.T) {
	t.Parallel()

	selector := newTestSelector(t, PolicyBeta, false)
	set := domain.NewCardSet(
		domain.Card{Prompt: "a", Response: "1", Hits: 2, Misses: 5},
		domain.Card{Prompt: "b", Response: "2", Hits: 1, Misses: 1},
	)

	hit, err := selector.Record(set, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 3, hit.Cards[0].Hits)
	assert.Equal(t, 5, hit.Cards[0].Misses)
	assert.Equal(t, set.Cards[1], hit.Cards[1])

	miss, err := selector.Record(set, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, miss.Cards[1].Hits)
	assert.Equal(t, 2, miss.Cards[1].Misses)
	assert.Equal(t, set.Cards[0], miss.Cards[0])

	// the input set is never modified
	assert.Equal(t, 2, set.Cards[0].Hits)
	assert.Equal(t, 1, set.Cards[1].Misses)
}

func TestRecordReverse(t *testing.T) {
	t.Parallel()

	selector := newTestSelector(t, PolicyLinear, true)
	set := domain.NewCardSet(domain.Card{Prompt: "a", Response: "1"})

	updated, err := selector.Record(set, 0, true)
	require.NoError(t, err)
	updated, err = selector.Record(updated, 0, false)
	require.NoError(t, err)

	card := updated.Cards[0]
	assert.Equal(t, 1, card.ReverseHits)
	assert.Equal(t, 1, card.ReverseMisses)
	assert.Zero(t, card.Hits)
	assert.Zero(t, card.Misses)
}

func TestRecordSaturates(t *testing.T) {
	t.Parallel()

	set := domain.NewCardSet(domain.Card{
		Prompt: "a", Response: "1",
		Hits: math.MaxInt, Misses: math.MaxInt,
		ReverseHits: math.MaxInt, ReverseMisses: math.MaxInt,
	})

	for _, reverse := range []bool{false, true} {
		selector := newTestSelector(t, PolicyLinear, reverse)
		updated, err := selector.Record(set, 0, true)
		require.NoError(t, err)
		updated, err = selector.Record(updated, 0, false)
		require.NoError(t, err)

		assert.Equal(t, set.Cards[0], updated.Cards[0])
		assert.NoError(t, updated.Validate())
	}
}

func TestRecordOutOfRange(t *testing.T) {
	t.Parallel()

	selector := newTestSelector(t, PolicyLinear, false)
	set := cardsWithMisses(0)

	_, err := selector.Record(set, 1, true)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = selector.Record(set, -1, false)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestPickWeightedAllZeroFallsBackToUniform(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		seen[pickWeighted([]float64{0, 0, 0}, rng)] = true
	}
	assert.Len(t, seen, 3)
}
