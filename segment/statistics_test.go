package segment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsAdd(t *testing.T) {
	a := Statistics{NumVectors: 10, NonDeletedVectors: 7}
	b := Statistics{NumVectors: 5, NonDeletedVectors: 5}
	c := Statistics{NumVectors: 2, NonDeletedVectors: 0}

	t.Run("sums fields", func(t *testing.T) {
		got, err := Add(a, nil, b, nil)
		require.NoError(t, err)
		assert.Equal(t, Statistics{NumVectors: 15, NonDeletedVectors: 12}, got)
	})

	t.Run("zero is identity", func(t *testing.T) {
		got, err := Add(a, nil, Statistics{}, nil)
		require.NoError(t, err)
		assert.Equal(t, a, got)

		got, err = Add(Statistics{}, nil, a, nil)
		require.NoError(t, err)
		assert.Equal(t, a, got)
	})

	t.Run("commutative", func(t *testing.T) {
		ab, err := Add(a, nil, b, nil)
		require.NoError(t, err)
		ba, err := Add(b, nil, a, nil)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	})

	t.Run("associative", func(t *testing.T) {
		ab, err := Add(a, nil, b, nil)
		require.NoError(t, err)
		left, err := Add(ab, nil, c, nil)
		require.NoError(t, err)

		bc, err := Add(b, nil, c, nil)
		require.NoError(t, err)
		right, err := Add(a, nil, bc, nil)
		require.NoError(t, err)

		assert.Equal(t, left, right)
	})

	t.Run("propagates first error", func(t *testing.T) {
		lhsErr := errors.New("lhs failed")
		rhsErr := errors.New("rhs failed")

		_, err := Add(a, lhsErr, b, rhsErr)
		assert.Equal(t, lhsErr, err)

		_, err = Add(a, nil, b, rhsErr)
		assert.Equal(t, rhsErr, err)
	})
}

func TestStatisticsFold(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		got, err := Fold(nil)
		require.NoError(t, err)
		assert.Equal(t, Statistics{}, got)
	})

	t.Run("sums segments", func(t *testing.T) {
		got, err := Fold([]Fragmented{
			{ID: "a", NumVectors: 100, NumDeleted: 10},
			{ID: "b", NumVectors: 50, NumDeleted: 0},
		})
		require.NoError(t, err)
		assert.Equal(t, Statistics{NumVectors: 150, NonDeletedVectors: 140}, got)
	})

	t.Run("inconsistent segment fails", func(t *testing.T) {
		_, err := Fold([]Fragmented{
			{ID: "a", NumVectors: 100, NumDeleted: 10},
			{ID: "bad", NumVectors: 5, NumDeleted: 6},
		})
		require.Error(t, err)

		var serr *StatisticsError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "bad", serr.SegmentID)
	})
}

func TestFragmentedNonDeletedVectors(t *testing.T) {
	n, err := Fragmented{ID: "a", NumVectors: 10, NumDeleted: 3}.NonDeletedVectors()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)

	_, err = Fragmented{ID: "a", NumVectors: 2, NumDeleted: 3}.NonDeletedVectors()
	require.Error(t, err)
}
