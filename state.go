package segbuild

import (
	"encoding/json"

	"github.com/hupe1980/segbuild/model"
)

// StateKind tags the lifecycle state of an index's on-disk
// representation.
type StateKind uint8

const (
	// StateBackfilling is the initial state; no queryable snapshot
	// exists yet.
	StateBackfilling StateKind = iota + 1

	// StateBackfilled means a complete snapshot exists but has not yet
	// been promoted to serve queries. Promotion is an administrative
	// step outside this engine.
	StateBackfilled

	// StateSnapshotted is the serving state; queries read the
	// snapshot.
	StateSnapshotted
)

func (k StateKind) String() string {
	switch k {
	case StateBackfilling:
		return "backfilling"
	case StateBackfilled:
		return "backfilled"
	case StateSnapshotted:
		return "snapshotted_at"
	default:
		return "unknown"
	}
}

// BackfillState tracks the progress of an index that has not completed
// its first full build.
type BackfillState[Seg any] struct {
	Segments []Seg

	// Cursor is how far into the document log the backfill has
	// progressed.
	Cursor model.Timestamp

	// BackfillSnapshotTS is the timestamp the finished backfill will be
	// snapshotted at. Zero until the first cycle pins it.
	BackfillSnapshotTS model.Timestamp
}

// Snapshot is a consistent on-disk view of an index as of a logical
// timestamp.
type Snapshot[Seg any] struct {
	TS   model.Timestamp
	Data SnapshotData[Seg]
}

// SnapshotDataKind tags the payload variant of a snapshot.
type SnapshotDataKind uint8

const (
	// SnapshotDataUnknown is a forward-compatible placeholder: payloads
	// written by newer code round-trip untouched instead of being
	// dropped.
	SnapshotDataUnknown SnapshotDataKind = iota + 1

	// SnapshotDataSingleSegment is supported only by index kinds that
	// never fragment.
	SnapshotDataSingleSegment

	// SnapshotDataMultiSegment is the form fragmented kinds always
	// use.
	SnapshotDataMultiSegment
)

// SnapshotData is a closed set of snapshot payload variants.
type SnapshotData[Seg any] struct {
	kind     SnapshotDataKind
	raw      json.RawMessage
	segments []Seg
	version  int
}

// UnknownSnapshotData wraps an unrecognized payload for round-tripping.
func UnknownSnapshotData[Seg any](raw json.RawMessage) SnapshotData[Seg] {
	return SnapshotData[Seg]{kind: SnapshotDataUnknown, raw: raw}
}

// SingleSegmentSnapshotData builds the single-segment variant.
func SingleSegmentSnapshotData[Seg any](seg Seg, version int) SnapshotData[Seg] {
	return SnapshotData[Seg]{kind: SnapshotDataSingleSegment, segments: []Seg{seg}, version: version}
}

// MultiSegmentSnapshotData builds the multi-segment variant.
func MultiSegmentSnapshotData[Seg any](segments []Seg, version int) SnapshotData[Seg] {
	return SnapshotData[Seg]{kind: SnapshotDataMultiSegment, segments: segments, version: version}
}

// Kind returns the payload variant.
func (d SnapshotData[Seg]) Kind() SnapshotDataKind { return d.kind }

// Segments returns the payload's segment list. Empty for Unknown.
func (d SnapshotData[Seg]) Segments() []Seg { return d.segments }

// Version returns the schema version the data was built under. Zero for
// Unknown.
func (d SnapshotData[Seg]) Version() int { return d.version }

// Raw returns the opaque payload of the Unknown variant.
func (d SnapshotData[Seg]) Raw() json.RawMessage { return d.raw }

// OnDiskState is the lifecycle state machine of one index's durable
// representation. Exactly one variant is populated.
//
// Transitions: Backfilling advances its cursor until the log is drained
// at the chosen timestamp, then becomes Backfilled. Every later
// successful build produces Snapshotted at a newer timestamp. Nothing
// transitions back to Backfilling; schema-version changes discard the
// state and start fresh.
type OnDiskState[Seg any] struct {
	kind     StateKind
	backfill BackfillState[Seg]
	snapshot Snapshot[Seg]
}

// Backfilling builds the initial state.
func Backfilling[Seg any](bs BackfillState[Seg]) OnDiskState[Seg] {
	return OnDiskState[Seg]{kind: StateBackfilling, backfill: bs}
}

// Backfilled builds the complete-but-unpromoted state.
func Backfilled[Seg any](s Snapshot[Seg]) OnDiskState[Seg] {
	return OnDiskState[Seg]{kind: StateBackfilled, snapshot: s}
}

// SnapshottedAt builds the serving state.
func SnapshottedAt[Seg any](s Snapshot[Seg]) OnDiskState[Seg] {
	return OnDiskState[Seg]{kind: StateSnapshotted, snapshot: s}
}

// Kind returns which variant is populated.
func (s OnDiskState[Seg]) Kind() StateKind { return s.kind }

// Backfill returns the backfill state if the index is backfilling.
func (s OnDiskState[Seg]) Backfill() (BackfillState[Seg], bool) {
	return s.backfill, s.kind == StateBackfilling
}

// Snapshot returns the snapshot for the Backfilled and Snapshotted
// variants.
func (s OnDiskState[Seg]) Snapshot() (Snapshot[Seg], bool) {
	return s.snapshot, s.kind == StateBackfilled || s.kind == StateSnapshotted
}

// Segments returns the state's current segment list, whichever variant
// holds it.
func (s OnDiskState[Seg]) Segments() []Seg {
	if s.kind == StateBackfilling {
		return s.backfill.Segments
	}
	return s.snapshot.Data.Segments()
}
