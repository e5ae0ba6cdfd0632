package segment

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segbuild/model"
)

func TestIDTrackerRoundTrip(t *testing.T) {
	ids := make([]model.DocumentID, 500)
	for i := range ids {
		ids[i] = model.DocumentID(fmt.Sprintf("doc-%04d", i))
	}

	var buf bytes.Buffer
	require.NoError(t, EncodeIDTracker(&buf, ids))

	decoded, err := DecodeIDTracker(&buf)
	require.NoError(t, err)
	require.Len(t, decoded, len(ids))
	for i, id := range ids {
		assert.Equal(t, uint32(i), decoded[id])
	}
}

func TestIDTrackerEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeIDTracker(&buf, nil))

	decoded, err := DecodeIDTracker(&buf)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestIDTrackerTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeIDTracker(&buf, []model.DocumentID{"a", "b", "c"}))

	data := buf.Bytes()
	_, err := DecodeIDTracker(bytes.NewReader(data[:len(data)-4]))
	require.Error(t, err)
}
