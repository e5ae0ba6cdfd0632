package metastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segbuild/model"
)

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rec := IndexMetadata{ID: "idx", Name: "by_embedding", Kind: model.KindVector, Enabled: true}

	t.Run("create with expected version zero", func(t *testing.T) {
		require.NoError(t, store.CompareAndSwap(ctx, 0, rec))

		got, err := store.Load(ctx, "idx")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), got.Version)
	})

	t.Run("replace bumps version", func(t *testing.T) {
		got, err := store.Load(ctx, "idx")
		require.NoError(t, err)

		got.Name = "by_embedding_v2"
		require.NoError(t, store.CompareAndSwap(ctx, got.Version, got))

		got, err = store.Load(ctx, "idx")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), got.Version)
		assert.Equal(t, "by_embedding_v2", got.Name)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		err := store.CompareAndSwap(ctx, 1, rec)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("create of existing record conflicts", func(t *testing.T) {
		err := store.CompareAndSwap(ctx, 0, rec)
		require.ErrorIs(t, err, ErrConflict)
	})
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	_, err := NewMemoryStore().Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CompareAndSwap(ctx, 0, IndexMetadata{ID: "a"}))
	require.NoError(t, store.CompareAndSwap(ctx, 0, IndexMetadata{ID: "b"}))

	recs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}
