package segbuild

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segbuild/doclog"
	"github.com/hupe1980/segbuild/model"
)

type recordingPrev struct {
	deleted []model.DocumentID
}

func (p *recordingPrev) MaybeDeleteDocument(id model.DocumentID) error {
	p.deleted = append(p.deleted, id)
	return nil
}

func newTestLog(t *testing.T, revs ...model.Revision) *doclog.MemoryLog {
	t.Helper()
	log := doclog.NewMemoryLog()
	for _, rev := range revs {
		require.NoError(t, log.Append(rev))
	}
	return log
}

func drain(t *testing.T, m *mergeStream[*recordingPrev]) []model.Revision {
	t.Helper()
	var out []model.Revision
	for {
		rev, err := m.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, rev)
	}
}

func doc(id model.DocumentID, ts model.Timestamp) model.Revision {
	return model.Revision{ID: id, TS: ts, Value: &model.Document{ID: id}}
}

func tombstone(id model.DocumentID, ts model.Timestamp) model.Revision {
	return model.Revision{ID: id, TS: ts}
}

func TestMergeStreamTombstonesEveryRevision(t *testing.T) {
	log := newTestLog(t,
		doc("a", 1),
		tombstone("b", 2),
		doc("c", 3),
	)
	prev := &recordingPrev{}
	m := &mergeStream[*recordingPrev]{
		stream: log.Changes(context.Background(), 0, 3),
		prev:   prev,
	}

	out := drain(t, m)
	require.Len(t, out, 3, "deletes pass through for in-window reconciliation")
	assert.Equal(t, []model.DocumentID{"a", "b", "c"}, prev.deleted,
		"every revision supersedes what older segments hold")
	assert.Equal(t, model.Timestamp(3), m.cursor)
	assert.False(t, m.truncated)
}

func TestMergeStreamTruncation(t *testing.T) {
	log := newTestLog(t,
		doc("a", 1), doc("b", 2), doc("c", 3), doc("d", 4), doc("e", 5),
	)
	prev := &recordingPrev{}
	m := &mergeStream[*recordingPrev]{
		stream: log.Changes(context.Background(), 0, 5),
		prev:   prev,
		max:    3,
	}

	out := drain(t, m)
	assert.Len(t, out, 3)
	assert.True(t, m.truncated)
	assert.Equal(t, model.Timestamp(3), m.cursor, "cursor stops at the last consumed revision")
	assert.Len(t, prev.deleted, 3, "unconsumed revisions leave previous segments untouched")
}

func TestMergeStreamEmptyWindow(t *testing.T) {
	log := newTestLog(t)
	m := &mergeStream[*recordingPrev]{
		stream: log.Changes(context.Background(), 0, 0),
		prev:   &recordingPrev{},
		cursor: 7,
	}

	out := drain(t, m)
	assert.Empty(t, out)
	assert.False(t, m.truncated)
	assert.Equal(t, model.Timestamp(7), m.cursor, "empty window keeps the starting cursor")
}
