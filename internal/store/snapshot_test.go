package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-local/internal/domain"
)

func TestDeriveTag(t *testing.T) {
	t.Parallel()

	a := domain.NewCardSet(domain.Card{Prompt: "q", Response: "a", Misses: 1, Hits: 0})
	b := domain.NewCardSet(domain.Card{Prompt: "q", Response: "a", Misses: 1, Hits: 0})
	c := domain.NewCardSet(domain.Card{Prompt: "q", Response: "a", Misses: 2, Hits: 0})

	tagA, err := DeriveTag(a)
	require.NoError(t, err)
	tagB, err := DeriveTag(b)
	require.NoError(t, err)
	tagC, err := DeriveTag(c)
	require.NoError(t, err)

	assert.Equal(t, tagA, tagB)
	assert.NotEqual(t, tagA, tagC)
	assert.Len(t, string(tagA), 64)
	assert.NotEqual(t, domain.EmptyTag, tagA)

	nilCards, err := DeriveTag(domain.CardSet{Format: domain.CurrentFormat})
	require.NoError(t, err)
	emptyCards, err := DeriveTag(domain.NewCardSet())
	require.NoError(t, err)
	assert.Equal(t, nilCards, emptyCards)
}

func TestEncodeDecodeSnapshot(t *testing.T) {
	t.Parallel()

	set := domain.NewCardSet(
		domain.Card{Prompt: "q1", Response: "a1", Misses: 3, Hits: 1},
		domain.Card{Prompt: "q2", Response: "a2", ReverseHits: 2},
	)
	savedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	data, tag, err := encodeSnapshot(set, savedAt)
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	assert.EqualValues(t, 1, env["format"])
	assert.Equal(t, string(tag), env["tag"])
	assert.Equal(t, "2024-05-01T12:00:00Z", env["saved_at"])

	d, err := decodeSnapshot(data)
	require.NoError(t, err)
	assert.False(t, d.Empty)
	assert.Equal(t, set, d.Snapshot.Set)
	assert.Equal(t, tag, d.Snapshot.Tag)
	assert.Equal(t, tag, d.StoredTag)
}

func TestDecodeEmpty(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, {}, []byte("  \n")} {
		d, err := decodeSnapshot(data)
		require.NoError(t, err)
		assert.True(t, d.Empty)
		assert.Equal(t, domain.EmptyTag, d.Snapshot.Tag)
		assert.Equal(t, 0, d.Snapshot.Set.Len())
	}
}

func TestDecodeCorrupt(t *testing.T) {
	t.Parallel()

	_, err := decodeSnapshot([]byte("[1,2,3]"))
	assert.ErrorIs(t, err, ErrCorruptData)
}
