package segbuild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/segbuild/blobstore"
	"github.com/hupe1980/segbuild/doclog"
	"github.com/hupe1980/segbuild/metastore"
	"github.com/hupe1980/segbuild/model"
	"github.com/hupe1980/segbuild/resource"
)

// Worker runs build cycles for one index kind. An external scheduler
// decides when to build and guarantees at most one in-flight cycle per
// index; the worker answers how.
type Worker[DC, Sch, Seg, NS any, PS PreviousSegments, St Statistics] struct {
	index   SearchIndex[DC, Sch, Seg, NS, PS, St]
	storage blobstore.Storage
	meta    metastore.Store
	log     doclog.Reader
	args    BuildArgs

	logger     *Logger
	res        *resource.Controller
	scratchDir string
}

// NewWorker creates a build worker for the given index kind.
func NewWorker[DC, Sch, Seg, NS any, PS PreviousSegments, St Statistics](
	index SearchIndex[DC, Sch, Seg, NS, PS, St],
	storage blobstore.Storage,
	meta metastore.Store,
	log doclog.Reader,
	args BuildArgs,
	opts ...WorkerOption,
) *Worker[DC, Sch, Seg, NS, PS, St] {
	o := defaultWorkerOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Worker[DC, Sch, Seg, NS, PS, St]{
		index:      index,
		storage:    storage,
		meta:       meta,
		log:        log,
		args:       args,
		logger:     o.logger,
		res:        o.res,
		scratchDir: o.scratchDir,
	}
}

// GetIndexSizes reports the byte size of every backfilled and enabled
// index of the worker's kind, for scheduling priority decisions.
func (w *Worker[DC, Sch, Seg, NS, PS, St]) GetIndexSizes(ctx context.Context) (map[model.IndexID]uint64, error) {
	return w.index.GetIndexSizes(ctx, w.meta)
}

// BuildCycle brings one index's on-disk state up to date with the
// document log and publishes the result via compare-and-swap. The CAS
// is the only durable write: a cycle abandoned at any earlier point
// leaves at worst orphaned uploads for external garbage collection.
//
// Returns the statistics of the published segment set.
func (w *Worker[DC, Sch, Seg, NS, PS, St]) BuildCycle(ctx context.Context, id model.IndexID) (St, error) {
	var zero St

	if err := w.res.AcquireBackground(ctx); err != nil {
		return zero, err
	}
	defer w.res.ReleaseBackground()

	stats, err := w.buildCycle(ctx, id)
	w.logger.LogBuildCycle(ctx, id, stats, err)
	return stats, err
}

func (w *Worker[DC, Sch, Seg, NS, PS, St]) buildCycle(ctx context.Context, id model.IndexID) (St, error) {
	var zero St
	logger := w.logger.WithIndex(id)

	// Step 1: load the current record and split it into developer
	// config and on-disk state.
	rec, err := w.meta.Load(ctx, id)
	if err != nil {
		return zero, err
	}
	cfg, state, err := w.index.ExtractMetadata(rec)
	if err != nil {
		return zero, err
	}

	schema := w.index.NewSchema(cfg)

	// Step 2: version check, and pick the log window.
	var (
		prevDescriptors []Seg
		from            model.Timestamp
		backfillTS      model.Timestamp
		backfilling     = state.Kind() == StateBackfilling
	)

	if backfilling {
		bs, _ := state.Backfill()
		prevDescriptors = bs.Segments
		from = bs.Cursor
		backfillTS = bs.BackfillSnapshotTS
	} else {
		snap, _ := state.Snapshot()
		if w.index.IsVersionCurrent(schema, snap.Data) {
			prevDescriptors = snap.Data.Segments()
			from = snap.TS
		} else {
			// The snapshot was built under an incompatible schema
			// version. Rebuild from the full document history as if no
			// previous segments existed.
			logger.InfoContext(ctx, "stale snapshot version, forcing full rebuild",
				"snapshot_version", snap.Data.Version(),
				"schema_version", w.index.SchemaVersion(schema),
			)
			prevDescriptors = nil
			from = 0
		}
	}

	to, err := w.log.LatestTimestamp(ctx)
	if err != nil {
		return zero, err
	}
	if backfilling {
		// The first backfill cycle pins the snapshot timestamp; later
		// cycles keep draining the log up to it.
		if backfillTS == 0 {
			backfillTS = to
		}
		to = backfillTS
	}

	// Step 3: materialize the previous segments' working set.
	prev, err := w.index.DownloadPreviousSegments(ctx, w.storage, prevDescriptors)
	if err != nil {
		return zero, err
	}

	// Steps 4-5: merge the change stream and build the new segment.
	// The merge stream tombstones superseded and deleted documents in
	// the previous segments while passing fresh values through to the
	// kind's construction.
	merge := &mergeStream[PS]{
		stream: w.log.Changes(ctx, from, to),
		prev:   prev,
		max:    w.args.MaxCycleDocuments,
		cursor: from,
	}

	dir, err := os.MkdirTemp(w.scratchDir, "segbuild-")
	if err != nil {
		return zero, err
	}
	defer os.RemoveAll(dir)

	newSegment, err := w.index.BuildDiskIndex(ctx, schema, dir, merge, prev, w.args)
	if err != nil {
		return zero, err
	}

	// Step 6: upload the new segment and the mutated tombstone
	// overlays concurrently.
	var (
		uploaded    *Seg
		updatedPrev []Seg
	)
	g, gctx := errgroup.WithContext(ctx)
	if newSegment != nil {
		g.Go(func() error {
			seg, err := w.index.UploadNewSegment(gctx, w.storage, *newSegment)
			if err != nil {
				return fmt.Errorf("upload new segment: %w", err)
			}
			uploaded = &seg
			return nil
		})
	}
	g.Go(func() error {
		segs, err := w.index.UploadPreviousSegments(gctx, w.storage, prev)
		if err != nil {
			return fmt.Errorf("upload previous segments: %w", err)
		}
		updatedPrev = segs
		return nil
	})
	if err := g.Wait(); err != nil {
		return zero, err
	}

	segments := updatedPrev
	if uploaded != nil {
		segments = append(segments, *uploaded)
	}

	// Step 7: fold statistics over the full segment set.
	var total St
	for _, seg := range segments {
		st, err := w.index.SegmentStatistics(seg)
		if err != nil {
			return zero, err
		}
		total, err = w.index.MergeStatistics(total, st)
		if err != nil {
			return zero, err
		}
	}

	// Step 8: transition the on-disk state.
	version := w.index.SchemaVersion(schema)
	var newState OnDiskState[Seg]
	switch {
	case backfilling && merge.truncated:
		newState = Backfilling(BackfillState[Seg]{
			Segments:           segments,
			Cursor:             merge.cursor,
			BackfillSnapshotTS: backfillTS,
		})
	case backfilling:
		newState = Backfilled(Snapshot[Seg]{
			TS:   backfillTS,
			Data: MultiSegmentSnapshotData(segments, version),
		})
	case merge.truncated:
		// A capped steady-state cycle still publishes a consistent
		// snapshot, just at the cursor instead of the log head.
		newState = SnapshottedAt(Snapshot[Seg]{
			TS:   merge.cursor,
			Data: MultiSegmentSnapshotData(segments, version),
		})
	default:
		newState = SnapshottedAt(Snapshot[Seg]{
			TS:   to,
			Data: MultiSegmentSnapshotData(segments, version),
		})
	}

	// Step 9: publish atomically, replacing the version read in step 1.
	config, err := w.index.NewIndexConfig(cfg, newState)
	if err != nil {
		return zero, err
	}
	rec.Config = config
	if err := w.meta.CompareAndSwap(ctx, rec.Version, rec); err != nil {
		if errors.Is(err, metastore.ErrConflict) {
			return zero, fmt.Errorf("%w: %w", ErrWriteConflict, err)
		}
		return zero, err
	}

	return total, nil
}

// mergeStream applies the tombstone half of each document revision on
// the way through to segment construction. Every revision supersedes or
// deletes whatever an older segment holds for its id; the revision
// itself is passed along so the kind can reconcile changes within the
// window, e.g. a document inserted and deleted in the same cycle.
type mergeStream[PS PreviousSegments] struct {
	stream doclog.Stream
	prev   PS
	max    int

	seen      int
	cursor    model.Timestamp
	truncated bool
}

func (m *mergeStream[PS]) Next(ctx context.Context) (model.Revision, error) {
	if m.max > 0 && m.seen >= m.max {
		m.truncated = true
		return model.Revision{}, io.EOF
	}

	rev, err := m.stream.Next(ctx)
	if err != nil {
		return model.Revision{}, err
	}
	m.seen++
	m.cursor = rev.TS

	if err := m.prev.MaybeDeleteDocument(rev.ID); err != nil {
		return model.Revision{}, err
	}
	return rev, nil
}
