package blobstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreUploadMintsFreshKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	k1, n1, err := store.Upload(ctx, "segments", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n1)
	assert.True(t, strings.HasPrefix(string(k1), "segments/"))

	k2, _, err := store.Upload(ctx, "segments", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2, "identical payloads still get distinct keys")

	data, err := DownloadAll(ctx, store, k1)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestMemoryStoreDownloadMissing(t *testing.T) {
	_, err := NewMemoryStore().Download(context.Background(), "segments/nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	key, _, err := UploadBytes(ctx, store, "bitsets", []byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, key))
	assert.Equal(t, 0, store.Len())

	// deleting a missing object is not an error
	require.NoError(t, store.Delete(ctx, key))
}
