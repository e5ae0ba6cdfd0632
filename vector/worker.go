package vector

import (
	"github.com/hupe1980/segbuild"
	"github.com/hupe1980/segbuild/blobstore"
	"github.com/hupe1980/segbuild/doclog"
	"github.com/hupe1980/segbuild/metastore"
	"github.com/hupe1980/segbuild/segment"
)

// Worker is the build worker instantiated for vector indexes.
type Worker = segbuild.Worker[
	DeveloperConfig, Schema, segment.Fragmented, DiskSegment,
	*segment.PreviousSegments, segment.Statistics,
]

// NewWorker wires a vector build worker. Index options tune the vector
// implementation, worker options the shared pipeline.
func NewWorker(
	storage blobstore.Storage,
	meta metastore.Store,
	log doclog.Reader,
	args segbuild.BuildArgs,
	indexOpts []Option,
	workerOpts ...segbuild.WorkerOption,
) *Worker {
	return segbuild.NewWorker(NewSearchIndex(indexOpts...), storage, meta, log, args, workerOpts...)
}
