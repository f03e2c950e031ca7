package store_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-local/internal/domain"
	"github.com/phrazzld/scry-local/internal/platform/filestore"
	"github.com/phrazzld/scry-local/internal/platform/memory"
	"github.com/phrazzld/scry-local/internal/platform/sqlite"
	"github.com/phrazzld/scry-local/internal/store"
	"github.com/phrazzld/scry-local/internal/testutils"
)

type mediumFactory struct {
	name string
	// open returns a function opening independent handles on one location,
	// the way separate processes would.
	open func(t *testing.T) func() store.Medium
}

func media() []mediumFactory {
	return []mediumFactory{
		{
			name: "memory",
			open: func(t *testing.T) func() store.Medium {
				m := memory.New(t.Name())
				return func() store.Medium { return m }
			},
		},
		{
			name: "filestore/memfs",
			open: func(t *testing.T) func() store.Medium {
				fs := afero.NewMemMapFs()
				path := "/" + t.Name() + "/cards.json"
				return func() store.Medium {
					s, err := filestore.New(path, filestore.WithFs(fs))
					require.NoError(t, err)
					return s
				}
			},
		},
		{
			name: "filestore/os",
			open: func(t *testing.T) func() store.Medium {
				path := filepath.Join(t.TempDir(), "cards.json")
				return func() store.Medium {
					s, err := filestore.New(path)
					require.NoError(t, err)
					return s
				}
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) func() store.Medium {
				path := filepath.Join(t.TempDir(), "scry.db")
				return func() store.Medium {
					s, err := sqlite.Open(context.Background(), path, "cards", nil)
					require.NoError(t, err)
					t.Cleanup(func() { _ = s.Close() })
					return s
				}
			},
		},
	}
}

func forEachMedium(t *testing.T, test func(t *testing.T, open func() store.Medium)) {
	for _, m := range media() {
		t.Run(m.name, func(t *testing.T) {
			t.Parallel()
			test(t, m.open(t))
		})
	}
}

func TestLoadEmptyMedium(t *testing.T) {
	t.Parallel()

	forEachMedium(t, func(t *testing.T, open func() store.Medium) {
		cs := store.NewCardStore(open(), nil)

		set, tag, err := cs.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.EmptyTag, tag)
		assert.Equal(t, 0, set.Len())
		assert.Equal(t, domain.CurrentFormat, set.Format)
	})
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	t.Parallel()

	forEachMedium(t, func(t *testing.T, open func() store.Medium) {
		ctx := context.Background()
		cs := store.NewCardStore(open(), nil)
		set := testutils.SampleSet(3)

		tag, err := cs.Save(ctx, set, domain.EmptyTag)
		require.NoError(t, err)

		loaded, loadedTag, err := store.NewCardStore(open(), nil).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, set, loaded)
		assert.Equal(t, tag, loadedTag)

		current, err := cs.CurrentTag(ctx)
		require.NoError(t, err)
		assert.Equal(t, tag, current)
	})
}

// A context that only ever commits with the tag its last commit returned is
// never refused.
func TestCommitMonotonicity(t *testing.T) {
	t.Parallel()

	forEachMedium(t, func(t *testing.T, open func() store.Medium) {
		ctx := context.Background()
		cs := store.NewCardStore(open(), nil)

		set, tag, err := cs.Load(ctx)
		require.NoError(t, err)

		for i := range 5 {
			require.NoError(t, set.Append(testutils.MustCard(t, fmt.Sprintf("q%d", i), "a", 0, 0)))
			tag, err = cs.Save(ctx, set, tag)
			require.NoError(t, err, "save %d", i)
		}

		loaded, _, err := cs.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, loaded.Len())
	})
}

func TestConcurrentModificationDetected(t *testing.T) {
	t.Parallel()

	forEachMedium(t, func(t *testing.T, open func() store.Medium) {
		ctx := context.Background()

		seed := store.NewCardStore(open(), nil)
		_, err := seed.Save(ctx, testutils.SampleSet(2), domain.EmptyTag)
		require.NoError(t, err)

		a := store.NewCardStore(open(), nil)
		b := store.NewCardStore(open(), nil)

		setA, tagA, err := a.Load(ctx)
		require.NoError(t, err)
		setB, tagB, err := b.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, tagA, tagB)

		require.NoError(t, setB.Update(0, testutils.MustCard(t, "from B", "b", 0, 0)))
		tagAfterB, err := b.Save(ctx, setB, tagB)
		require.NoError(t, err)

		require.NoError(t, setA.Update(1, testutils.MustCard(t, "from A", "a", 0, 0)))
		_, err = a.Save(ctx, setA, tagA)
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrConcurrentModification)
		assert.True(t, store.IsFatal(err))

		var conflict *store.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, tagA, conflict.Expected)
		assert.Equal(t, tagAfterB, conflict.Actual)

		// The medium still holds exactly what B wrote.
		stored, storedTag, err := store.NewCardStore(open(), nil).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, setB, stored)
		assert.Equal(t, tagAfterB, storedTag)
	})
}

func TestFirstSaveConflictsWithConcurrentFirstSave(t *testing.T) {
	t.Parallel()

	forEachMedium(t, func(t *testing.T, open func() store.Medium) {
		ctx := context.Background()
		a := store.NewCardStore(open(), nil)
		b := store.NewCardStore(open(), nil)

		_, err := b.Save(ctx, testutils.SampleSet(1), domain.EmptyTag)
		require.NoError(t, err)

		_, err = a.Save(ctx, testutils.SampleSet(2), domain.EmptyTag)
		assert.ErrorIs(t, err, store.ErrConcurrentModification)
	})
}

func TestInvalidSetNotWritten(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := memory.New("invalid")
	cs := store.NewCardStore(m, nil)

	set := domain.NewCardSet(domain.Card{Prompt: "q", Response: "a", Misses: -1})
	_, err := cs.Save(ctx, set, domain.EmptyTag)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, store.IsFatal(err))
	assert.Equal(t, 0, m.Writes())
}

func TestCorruptDataAndReset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "this is not json"},
		{"truncated", `{"format":1,"cards":[{"prompt":"q"`},
		{"invalid card", `{"format":1,"cards":[{"prompt":"","response":"a","misses":0,"hits":0}]}`},
		{"unknown format", `{"format":7,"cards":[]}`},
		{"negative counter", `{"format":1,"cards":[{"prompt":"q","response":"a","misses":-2,"hits":0}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			m := memory.New(tt.name)
			m.Tamper([]byte(tt.content))
			cs := store.NewCardStore(m, nil)

			_, _, err := cs.Load(ctx)
			assert.ErrorIs(t, err, store.ErrCorruptData)

			_, err = cs.CurrentTag(ctx)
			assert.ErrorIs(t, err, store.ErrCorruptData)

			_, err = cs.Save(ctx, testutils.SampleSet(1), domain.EmptyTag)
			assert.ErrorIs(t, err, store.ErrCorruptData)
			assert.True(t, store.IsFatal(err))

			tag, err := cs.Reset(ctx)
			require.NoError(t, err)

			set, loadedTag, err := cs.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, set.Len())
			assert.Equal(t, tag, loadedTag)
			assert.NotEqual(t, domain.EmptyTag, loadedTag)
		})
	}
}

func TestHandEditIsDetected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := memory.New("hand-edit")
	log, handler := testutils.NewTestLogger()
	cs := store.NewCardStore(m, log)

	set := testutils.SampleSet(2)
	tag, err := cs.Save(ctx, set, domain.EmptyTag)
	require.NoError(t, err)

	// An editor changes a counter but leaves the stored tag alone.
	m.Tamper(fmt.Appendf(nil,
		`{"format":1,"tag":%q,"cards":[{"prompt":"prompt 0","response":"response 0","misses":9,"hits":2},{"prompt":"prompt 1","response":"response 1","misses":1,"hits":1}]}`,
		tag))

	_, err = cs.Save(ctx, set, tag)
	assert.ErrorIs(t, err, store.ErrConcurrentModification)
	assert.NotEmpty(t, handler.Find("stored tag does not match content"))

	entries := handler.Find("commit refused: medium was modified by another writer")
	require.Len(t, entries, 1)
	assert.Equal(t, "consistency_guard", entries[0]["component"])
}

func TestReformattingDoesNotChangeTag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := memory.New("reformat")
	cs := store.NewCardStore(m, nil)

	set := domain.NewCardSet(testutils.MustCard(t, "q", "a", 1, 2))
	tag, err := cs.Save(ctx, set, domain.EmptyTag)
	require.NoError(t, err)

	// Same content, different layout, no saved_at.
	m.Tamper([]byte(`{"cards":[{"hits":2,"misses":1,"prompt":"q","response":"a"}],"format":1,"tag":"` + string(tag) + `"}`))

	current, err := cs.CurrentTag(ctx)
	require.NoError(t, err)
	assert.Equal(t, tag, current)

	_, err = cs.Save(ctx, set, tag)
	assert.NoError(t, err)
}

type failingMedium struct{}

func (failingMedium) Read(context.Context) ([]byte, error) { return nil, errors.New("disk gone") }
func (failingMedium) Replace(context.Context, store.ReplaceFn) error {
	return errors.New("disk gone")
}
func (failingMedium) Location() string { return "broken" }

func TestMediumFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cs := store.NewCardStore(failingMedium{}, nil)

	_, _, err := cs.Load(ctx)
	assert.ErrorIs(t, err, store.ErrMediumUnavailable)
	assert.False(t, store.IsFatal(err))

	_, err = cs.Save(ctx, testutils.SampleSet(1), domain.EmptyTag)
	assert.ErrorIs(t, err, store.ErrMediumUnavailable)

	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "commit", storeErr.Operation)
	assert.Equal(t, "broken", storeErr.Location)
}
