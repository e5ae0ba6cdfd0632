package vector

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/segbuild/model"
)

func randomVectors(t *testing.T, n, dim int) ([]model.DocumentID, [][]float32) {
	t.Helper()
	rng := rand.New(rand.NewSource(1))

	ids := make([]model.DocumentID, n)
	vecs := make([][]float32, n)
	for i := range ids {
		ids[i] = model.DocumentID(fmt.Sprintf("doc-%06d", i))
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = rng.Float32()
		}
		vecs[i] = vec
	}
	return ids, vecs
}

func TestFlatRoundTrip(t *testing.T) {
	// Large enough to span several blocks.
	const (
		n   = 5000
		dim = 64
	)
	ids, vecs := randomVectors(t, n, dim)

	var buf bytes.Buffer
	w, err := NewFlatWriter(&buf, dim, n)
	require.NoError(t, err)
	for i := range ids {
		require.NoError(t, w.Add(ids[i], vecs[i]))
	}
	require.NoError(t, w.Close())

	r, err := NewFlatReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, dim, r.Dimension())

	for i := 0; i < n; i++ {
		id, vec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, ids[i], id)
		assert.Equal(t, vecs[i], vec)
	}
	_, _, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestFlatRoundTripCompressible(t *testing.T) {
	// All-zero vectors compress well, exercising the compressed-block
	// path end to end.
	const (
		n   = 2000
		dim = 128
	)

	var buf bytes.Buffer
	w, err := NewFlatWriter(&buf, dim, n)
	require.NoError(t, err)
	zero := make([]float32, dim)
	for i := 0; i < n; i++ {
		require.NoError(t, w.Add(model.DocumentID(fmt.Sprintf("d%d", i)), zero))
	}
	require.NoError(t, w.Close())

	raw := n * dim * 4
	assert.Less(t, buf.Len(), raw/2, "zero vectors should compress")

	r, err := NewFlatReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, vec, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, zero, vec)
	}
}

func TestFlatWriterDimensionMismatch(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewFlatWriter(&buf, 4, 1)
	require.NoError(t, err)
	require.Error(t, w.Add("a", []float32{1, 2, 3}))
}

func TestFlatWriterRowCount(t *testing.T) {
	t.Run("underflow", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := NewFlatWriter(&buf, 2, 2)
		require.NoError(t, err)
		require.NoError(t, w.Add("a", []float32{1, 2}))
		require.Error(t, w.Close())
	})

	t.Run("overflow", func(t *testing.T) {
		var buf bytes.Buffer
		w, err := NewFlatWriter(&buf, 2, 1)
		require.NoError(t, err)
		require.NoError(t, w.Add("a", []float32{1, 2}))
		require.Error(t, w.Add("b", []float32{3, 4}))
	})
}

func TestFlatReaderBadMagic(t *testing.T) {
	_, err := NewFlatReader(bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x00}))
	require.Error(t, err)
}

func TestFlatReaderTruncated(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewFlatWriter(&buf, 4, 10)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Add(model.DocumentID(fmt.Sprintf("d%d", i)), []float32{1, 2, 3, 4}))
	}
	require.NoError(t, w.Close())

	data := buf.Bytes()
	r, err := NewFlatReader(bytes.NewReader(data[:len(data)-8]))
	require.NoError(t, err)

	var readErr error
	for i := 0; i < 10; i++ {
		if _, _, readErr = r.Next(); readErr != nil {
			break
		}
	}
	require.Error(t, readErr)
	require.NotErrorIs(t, readErr, io.EOF, "truncation must not look like clean end of data")
}
