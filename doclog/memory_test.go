package doclog

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segbuild/model"
)

func collect(t *testing.T, s Stream) []model.Revision {
	t.Helper()
	var revs []model.Revision
	for {
		rev, err := s.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return revs
		}
		require.NoError(t, err)
		revs = append(revs, rev)
	}
}

func TestMemoryLogWindow(t *testing.T) {
	log := NewMemoryLog()
	for ts := 1; ts <= 10; ts++ {
		require.NoError(t, log.Append(model.Revision{
			ID:    model.DocumentID(rune('a' + ts)),
			TS:    model.Timestamp(ts),
			Value: &model.Document{},
		}))
	}

	// half-open window: from exclusive, to inclusive
	revs := collect(t, log.Changes(context.Background(), 3, 7))
	require.Len(t, revs, 4)
	assert.Equal(t, model.Timestamp(4), revs[0].TS)
	assert.Equal(t, model.Timestamp(7), revs[3].TS)

	assert.Empty(t, collect(t, log.Changes(context.Background(), 7, 7)))
}

func TestMemoryLogLatestTimestamp(t *testing.T) {
	log := NewMemoryLog()

	ts, err := log.LatestTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Timestamp(0), ts)

	require.NoError(t, log.Append(model.Revision{ID: "a", TS: 42, Value: &model.Document{}}))
	ts, err = log.LatestTimestamp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Timestamp(42), ts)
}

func TestMemoryLogRejectsNonMonotonicAppend(t *testing.T) {
	log := NewMemoryLog()
	require.NoError(t, log.Append(model.Revision{ID: "a", TS: 5}))
	require.Error(t, log.Append(model.Revision{ID: "b", TS: 5}))
	require.Error(t, log.Append(model.Revision{ID: "b", TS: 4}))
}

func TestStreamHonorsContext(t *testing.T) {
	log := NewMemoryLog()
	require.NoError(t, log.Append(model.Revision{ID: "a", TS: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	s := log.Changes(ctx, 0, 1)
	cancel()

	_, err := s.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
