// Package segment models the immutable on-disk unit of vector index
// data: a fragmented segment descriptor, its additive statistics, and
// the mutable tombstone overlay used while a build cycle is in flight.
package segment

import (
	"fmt"

	"github.com/hupe1980/segbuild/blobstore"
)

// Fragmented describes one immutable on-disk vector segment. The data
// blob never changes after upload; only the deleted-bitset blob is
// replaced, each amendment producing a fresh key while the segment ID
// stays stable.
type Fragmented struct {
	ID               string        `json:"id"`
	NumVectors       uint64        `json:"num_vectors"`
	NumDeleted       uint64        `json:"num_deleted"`
	DataKey          blobstore.Key `json:"data_key"`
	IDTrackerKey     blobstore.Key `json:"id_tracker_key"`
	DeletedBitsetKey blobstore.Key `json:"deleted_bitset_key"`

	// GraphKey is set only for indexed segments.
	GraphKey blobstore.Key `json:"graph_key,omitempty"`

	SizeBytes uint64 `json:"size_bytes"`

	// Indexed reports whether the segment carries an ANN graph or is a
	// flat layout meant to be scanned linearly.
	Indexed bool `json:"indexed"`
}

// NonDeletedVectors returns the number of live vectors.
func (f Fragmented) NonDeletedVectors() (uint64, error) {
	if f.NumDeleted > f.NumVectors {
		return 0, &StatisticsError{
			SegmentID: f.ID,
			Reason:    fmt.Sprintf("num_deleted %d exceeds num_vectors %d", f.NumDeleted, f.NumVectors),
		}
	}
	return f.NumVectors - f.NumDeleted, nil
}

// Statistics computes the segment's statistics from its own metadata.
// No data blob read is required.
func (f Fragmented) Statistics() (Statistics, error) {
	nonDeleted, err := f.NonDeletedVectors()
	if err != nil {
		return Statistics{}, err
	}
	return Statistics{
		NumVectors:        f.NumVectors,
		NonDeletedVectors: nonDeleted,
	}, nil
}
