package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/hupe1980/segbuild"
	"github.com/hupe1980/segbuild/blobstore"
	"github.com/hupe1980/segbuild/doclog"
	"github.com/hupe1980/segbuild/fanout"
	"github.com/hupe1980/segbuild/metastore"
	"github.com/hupe1980/segbuild/model"
	"github.com/hupe1980/segbuild/resource"
	"github.com/hupe1980/segbuild/segment"
)

// blob key prefixes
const (
	prefixSegments = "segments"
	prefixGraphs   = "graphs"
	prefixTrackers = "trackers"
	prefixBitsets  = "bitsets"
)

// Option configures the vector index implementation.
type Option func(*SearchIndex)

// WithFanoutLimit caps concurrent segment downloads and uploads.
func WithFanoutLimit(limit int) Option {
	return func(i *SearchIndex) {
		i.fanoutLimit = limit
	}
}

// WithResourceController throttles segment upload IO through the
// controller's limiter.
func WithResourceController(c *resource.Controller) Option {
	return func(i *SearchIndex) {
		i.res = c
	}
}

// SearchIndex implements the build engine's capability contract for
// vector indexes. It is stateless across cycles and safe for concurrent
// use by workers building different indexes.
type SearchIndex struct {
	fanoutLimit int
	res         *resource.Controller
}

// NewSearchIndex creates the vector index implementation.
func NewSearchIndex(opts ...Option) *SearchIndex {
	i := &SearchIndex{
		fanoutLimit: fanout.DefaultLimit,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var _ segbuild.SearchIndex[
	DeveloperConfig, Schema, segment.Fragmented, DiskSegment,
	*segment.PreviousSegments, segment.Statistics,
] = (*SearchIndex)(nil)

// Kind identifies the index kind.
func (i *SearchIndex) Kind() model.IndexKind { return model.KindVector }

// NewSchema derives the current build strategy from a developer config.
func (i *SearchIndex) NewSchema(cfg DeveloperConfig) Schema {
	return NewSchema(cfg)
}

// SchemaVersion returns the schema's layout version.
func (i *SearchIndex) SchemaVersion(sch Schema) int {
	return sch.Version()
}

// IsVersionCurrent reports whether a snapshot's segments can be reused
// under the current schema. Unknown payloads never match and force a
// rebuild.
func (i *SearchIndex) IsVersionCurrent(sch Schema, data segbuild.SnapshotData[segment.Fragmented]) bool {
	return data.Kind() == segbuild.SnapshotDataMultiSegment && data.Version() == sch.Version()
}

// EstimateDocumentSize estimates one document's on-disk footprint.
func (i *SearchIndex) EstimateDocumentSize(sch Schema, _ model.Document) uint64 {
	return sch.EstimateVectorSize()
}

// DownloadPreviousSegments fetches the id tracker and deletion bitset
// of every persisted segment in parallel. Data blobs are never read.
func (i *SearchIndex) DownloadPreviousSegments(ctx context.Context, storage blobstore.Storage, segments []segment.Fragmented) (*segment.PreviousSegments, error) {
	metas, err := fanout.TryJoinBufferUnordered(ctx, i.fanoutLimit, segments,
		func(ctx context.Context, seg segment.Fragmented) (*segment.MutableMetadata, error) {
			return segment.Download(ctx, storage, seg)
		})
	if err != nil {
		return nil, err
	}
	return &segment.PreviousSegments{Segments: metas}, nil
}

// UploadPreviousSegments persists every mutated deletion bitset in
// parallel and returns the updated descriptors. Untouched segments pass
// through unchanged.
func (i *SearchIndex) UploadPreviousSegments(ctx context.Context, storage blobstore.Storage, prev *segment.PreviousSegments) ([]segment.Fragmented, error) {
	return fanout.TryJoinBufferUnordered(ctx, i.fanoutLimit, prev.Segments,
		func(ctx context.Context, m *segment.MutableMetadata) (segment.Fragmented, error) {
			return m.UploadDeletedBitset(ctx, storage)
		})
}

// BuildDiskIndex constructs a new segment's files from the merged
// change stream. Tombstoning of previous segments happens upstream; the
// stream delivers every revision of the window.
func (i *SearchIndex) BuildDiskIndex(ctx context.Context, sch Schema, dir string, docs doclog.Stream, _ *segment.PreviousSegments, args segbuild.BuildArgs) (*DiskSegment, error) {
	return sch.buildDiskIndex(ctx, dir, docs, args)
}

// UploadNewSegment persists a freshly built segment: its data blob, its
// graph blob when indexed, an id tracker, and an empty deletion bitset.
func (i *SearchIndex) UploadNewSegment(ctx context.Context, storage blobstore.Storage, ns DiskSegment) (segment.Fragmented, error) {
	dataKey, dataSize, err := i.uploadFile(ctx, storage, prefixSegments, ns.DataPath)
	if err != nil {
		return segment.Fragmented{}, fmt.Errorf("upload segment data: %w", err)
	}
	size := uint64(dataSize)

	var graphKey blobstore.Key
	if ns.Indexed {
		key, graphSize, err := i.uploadFile(ctx, storage, prefixGraphs, ns.GraphPath)
		if err != nil {
			return segment.Fragmented{}, fmt.Errorf("upload segment graph: %w", err)
		}
		graphKey = key
		size += uint64(graphSize)
	}

	var tracker bytes.Buffer
	if err := segment.EncodeIDTracker(&tracker, ns.IDs); err != nil {
		return segment.Fragmented{}, fmt.Errorf("encode id tracker: %w", err)
	}
	trackerKey, _, err := blobstore.UploadBytes(ctx, storage, prefixTrackers, tracker.Bytes())
	if err != nil {
		return segment.Fragmented{}, fmt.Errorf("upload id tracker: %w", err)
	}

	bitset, err := segment.NewDeletionBitmap().Bytes()
	if err != nil {
		return segment.Fragmented{}, fmt.Errorf("serialize empty bitset: %w", err)
	}
	bitsetKey, _, err := blobstore.UploadBytes(ctx, storage, prefixBitsets, bitset)
	if err != nil {
		return segment.Fragmented{}, fmt.Errorf("upload empty bitset: %w", err)
	}

	return segment.Fragmented{
		ID:               uuid.NewString(),
		NumVectors:       ns.NumVectors(),
		NumDeleted:       0,
		DataKey:          dataKey,
		IDTrackerKey:     trackerKey,
		DeletedBitsetKey: bitsetKey,
		GraphKey:         graphKey,
		SizeBytes:        size,
		Indexed:          ns.Indexed,
	}, nil
}

func (i *SearchIndex) uploadFile(ctx context.Context, storage blobstore.Storage, prefix, path string) (blobstore.Key, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	return storage.Upload(ctx, prefix, resource.NewRateLimitedReader(f, i.res, ctx))
}

// ExtractMetadata splits a persisted record into developer config and
// on-disk state. A record with an empty config payload is a brand-new
// index: it starts backfilling from the beginning of the log.
func (i *SearchIndex) ExtractMetadata(rec metastore.IndexMetadata) (DeveloperConfig, segbuild.OnDiskState[segment.Fragmented], error) {
	var zero segbuild.OnDiskState[segment.Fragmented]

	if rec.Kind != model.KindVector {
		return DeveloperConfig{}, zero, fmt.Errorf("%w: index %s is %q, expected %q",
			segbuild.ErrIndexKindChanged, rec.ID, rec.Kind, model.KindVector)
	}

	var pc persistedConfig
	if err := json.Unmarshal(rec.Config, &pc); err != nil {
		return DeveloperConfig{}, zero, fmt.Errorf("decode config for index %s: %w", rec.ID, err)
	}
	if err := pc.DeveloperConfig.Validate(); err != nil {
		return DeveloperConfig{}, zero, fmt.Errorf("config for index %s: %w", rec.ID, err)
	}

	if pc.OnDiskState.State == "" {
		return pc.DeveloperConfig, segbuild.Backfilling(segbuild.BackfillState[segment.Fragmented]{}), nil
	}

	state, err := stateFromPersisted(pc.OnDiskState)
	if err != nil {
		return DeveloperConfig{}, zero, fmt.Errorf("decode state for index %s: %w", rec.ID, err)
	}
	return pc.DeveloperConfig, state, nil
}

// NewIndexConfig serializes developer config plus on-disk state back
// into the record's config payload.
func (i *SearchIndex) NewIndexConfig(cfg DeveloperConfig, state segbuild.OnDiskState[segment.Fragmented]) (json.RawMessage, error) {
	ps, err := stateToPersisted(state)
	if err != nil {
		return nil, err
	}
	return json.Marshal(persistedConfig{
		DeveloperConfig: cfg,
		OnDiskState:     ps,
	})
}

// SegmentStatistics derives a segment's statistics from its descriptor.
func (i *SearchIndex) SegmentStatistics(seg segment.Fragmented) (segment.Statistics, error) {
	return seg.Statistics()
}

// MergeStatistics adds two statistics.
func (i *SearchIndex) MergeStatistics(a, b segment.Statistics) (segment.Statistics, error) {
	return segment.Add(a, nil, b, nil)
}

// GetIndexSizes reports the total segment bytes of every vector index
// that is enabled and past its backfill.
func (i *SearchIndex) GetIndexSizes(ctx context.Context, meta metastore.Store) (map[model.IndexID]uint64, error) {
	recs, err := meta.List(ctx)
	if err != nil {
		return nil, err
	}

	sizes := make(map[model.IndexID]uint64)
	for _, rec := range recs {
		if rec.Kind != model.KindVector || !rec.Enabled {
			continue
		}
		_, state, err := i.ExtractMetadata(rec)
		if err != nil {
			return nil, err
		}
		if state.Kind() == segbuild.StateBackfilling {
			continue
		}
		var total uint64
		for _, seg := range state.Segments() {
			total += seg.SizeBytes
		}
		sizes[rec.ID] = total
	}
	return sizes, nil
}
