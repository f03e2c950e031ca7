package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmptySet(t *testing.T) {
	t.Parallel()

	stats := Summarize(NewCardSet(), false)
	assert.Empty(t, stats.Rows)
	assert.Zero(t, stats.Responses)
	assert.Zero(t, stats.PercentVisited)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	set := NewCardSet(
		Card{Prompt: "never", Response: "seen"},
		Card{Prompt: "good", Response: "card", Hits: 3, Misses: 1},
		Card{Prompt: "bad", Response: "card", Hits: 0, Misses: 2},
		Card{Prompt: "once", Response: "right", Hits: 1},
	)

	stats := Summarize(set, false)
	require.Len(t, stats.Rows, 4)

	// goodness: once=1.0, good=0.5, never=0, bad=-1
	assert.Equal(t, "once", stats.Rows[0].Prompt)
	assert.Equal(t, "good", stats.Rows[1].Prompt)
	assert.Equal(t, "never", stats.Rows[2].Prompt)
	assert.Equal(t, "bad", stats.Rows[3].Prompt)

	assert.InDelta(t, 75.0, stats.Rows[1].HitPercent, 1e-9)
	assert.InDelta(t, 0.5, stats.Rows[1].Goodness, 1e-9)
	assert.Equal(t, 1, stats.Rows[1].Index)

	assert.Equal(t, 7, stats.Responses)
	assert.InDelta(t, 75.0, stats.PercentVisited, 1e-9)
	// only "good" has more than one response and goodness >= 0.5
	assert.InDelta(t, 25.0, stats.PercentKnownWell, 1e-9)
	assert.InDelta(t, 100*(0+0.5-1+1)/4.0, stats.OverallScore, 1e-9)
}

func TestSummarizeReverse(t *testing.T) {
	t.Parallel()

	set := NewCardSet(Card{Prompt: "p", Response: "r", Hits: 5, ReverseMisses: 2})

	forward := Summarize(set, false)
	reverse := Summarize(set, true)

	assert.Equal(t, 5, forward.Rows[0].Hits)
	assert.Equal(t, 0, reverse.Rows[0].Hits)
	assert.Equal(t, 2, reverse.Rows[0].Misses)
	assert.InDelta(t, -100.0, reverse.OverallScore, 1e-9)
}
