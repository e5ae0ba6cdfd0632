package segment

import "fmt"

// Statistics is an additive summary of an index's contents. It forms a
// commutative monoid under Add, so segment statistics can be folded in
// any order.
type Statistics struct {
	NumVectors        uint64
	NonDeletedVectors uint64
}

// StatisticsError reports that a segment's self-reported statistics are
// inconsistent. It fails the cycle's aggregation but leaves the
// previously persisted state untouched.
type StatisticsError struct {
	SegmentID string
	Reason    string
}

func (e *StatisticsError) Error() string {
	return fmt.Sprintf("segment %s statistics: %s", e.SegmentID, e.Reason)
}

// Add combines two possibly failed statistics, propagating the first
// failure encountered.
func Add(lhs Statistics, lhsErr error, rhs Statistics, rhsErr error) (Statistics, error) {
	if lhsErr != nil {
		return Statistics{}, lhsErr
	}
	if rhsErr != nil {
		return Statistics{}, rhsErr
	}
	return Statistics{
		NumVectors:        lhs.NumVectors + rhs.NumVectors,
		NonDeletedVectors: lhs.NonDeletedVectors + rhs.NonDeletedVectors,
	}, nil
}

// NumDocuments returns the total vector count, deleted included.
func (s Statistics) NumDocuments() uint64 {
	return s.NumVectors
}

// NumNonDeletedDocuments returns the live vector count.
func (s Statistics) NumNonDeletedDocuments() uint64 {
	return s.NonDeletedVectors
}

// Fold sums the statistics of all segments, failing on the first
// segment whose metadata is inconsistent.
func Fold(segs []Fragmented) (Statistics, error) {
	var total Statistics
	var err error
	for _, seg := range segs {
		st, serr := seg.Statistics()
		total, err = Add(total, err, st, serr)
	}
	return total, err
}
