package segbuild

import (
	"context"
	"encoding/json"

	"github.com/hupe1980/segbuild/blobstore"
	"github.com/hupe1980/segbuild/doclog"
	"github.com/hupe1980/segbuild/metastore"
	"github.com/hupe1980/segbuild/model"
)

// BuildArgs are the policy knobs the pipeline passes into kind-specific
// segment construction. They are plumbed explicitly; nothing reads
// process-wide state.
type BuildArgs struct {
	// FullScanThresholdBytes is the segment size below which it is
	// reasonable to search by iterating every item. Small segments skip
	// the CPU cost of building an ANN structure; a linear scan is more
	// accurate for them anyway. The kind applies the policy, the
	// pipeline only supplies the number.
	FullScanThresholdBytes uint64

	// MaxCycleDocuments caps how many documents one build cycle
	// consumes. Hitting the cap leaves a backfilling index backfilling
	// with an advanced cursor. Zero means unlimited.
	MaxCycleDocuments int
}

// Statistics is the additive summary a kind reports per segment.
type Statistics interface {
	NumDocuments() uint64
	NumNonDeletedDocuments() uint64
}

// PreviousSegments is the mutable working set of previously uploaded
// segments during one build cycle. Implementations are not safe for
// concurrent use; a cycle owns its set exclusively.
type PreviousSegments interface {
	// MaybeDeleteDocument tombstones the document wherever a previous
	// segment holds it. Unknown documents are ignored.
	MaybeDeleteDocument(id model.DocumentID) error
}

// SearchIndex is the capability contract a concrete index kind must
// satisfy for the build pipeline to operate on it. The pipeline is
// written once against this interface; each kind (vector, text, ...)
// specializes it with its own config, schema, segment, new-segment,
// previous-segments and statistics types.
type SearchIndex[DC, Sch, Seg, NS any, PS PreviousSegments, St Statistics] interface {
	// Kind identifies the index kind this implementation builds.
	Kind() model.IndexKind

	// NewSchema derives the versioned build strategy from the
	// developer's index definition.
	NewSchema(cfg DC) Sch

	// SchemaVersion returns the schema's layout version. Snapshots
	// record the version they were built under.
	SchemaVersion(sch Sch) int

	// IsVersionCurrent reports whether a persisted snapshot was built
	// under a geometry compatible with the current schema. When false
	// the pipeline rebuilds from scratch, ignoring persisted segments.
	IsVersionCurrent(sch Sch, data SnapshotData[Seg]) bool

	// EstimateDocumentSize estimates the on-disk footprint of one
	// document under the schema.
	EstimateDocumentSize(sch Sch, doc model.Document) uint64

	// DownloadPreviousSegments materializes the working set from
	// persisted descriptors.
	DownloadPreviousSegments(ctx context.Context, storage blobstore.Storage, segments []Seg) (PS, error)

	// UploadPreviousSegments persists mutated tombstone overlays,
	// returning updated descriptors. Segment ids never change.
	UploadPreviousSegments(ctx context.Context, storage blobstore.Storage, prev PS) ([]Seg, error)

	// BuildDiskIndex constructs new on-disk data under dir from the
	// merged change stream. Returns nil if there is nothing new to
	// write, e.g. a pure-delete cycle. The stream must be drained.
	BuildDiskIndex(ctx context.Context, sch Sch, dir string, docs doclog.Stream, prev PS, args BuildArgs) (*NS, error)

	// UploadNewSegment persists a freshly built segment.
	UploadNewSegment(ctx context.Context, storage blobstore.Storage, ns NS) (Seg, error)

	// ExtractMetadata splits a persisted index record into developer
	// config and on-disk state. Fails with ErrIndexKindChanged if the
	// record's kind no longer matches.
	ExtractMetadata(rec metastore.IndexMetadata) (DC, OnDiskState[Seg], error)

	// NewIndexConfig serializes developer config plus on-disk state
	// back into the record's config payload.
	NewIndexConfig(cfg DC, state OnDiskState[Seg]) (json.RawMessage, error)

	// SegmentStatistics computes one segment's statistics from its
	// metadata.
	SegmentStatistics(seg Seg) (St, error)

	// MergeStatistics combines two statistics. Must be associative and
	// commutative so segments fold in any order.
	MergeStatistics(a, b St) (St, error)

	// GetIndexSizes reports the byte size of every index of this kind
	// that is both backfilled and enabled, for build scheduling.
	GetIndexSizes(ctx context.Context, meta metastore.Store) (map[model.IndexID]uint64, error)
}
