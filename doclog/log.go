// Package doclog exposes the document change log the build engine
// consumes: a lazy, ordered, restartable-from-cursor sequence of
// document revisions between two logical timestamps.
package doclog

import (
	"context"

	"github.com/hupe1980/segbuild/model"
)

// Stream is a lazy, ordered sequence of document revisions.
// Next returns io.EOF after the last revision.
type Stream interface {
	Next(ctx context.Context) (model.Revision, error)
}

// Reader replays committed document revisions.
type Reader interface {
	// Changes streams revisions with from < rev.TS <= to, in timestamp
	// order.
	Changes(ctx context.Context, from, to model.Timestamp) Stream

	// LatestTimestamp returns the newest committed timestamp.
	LatestTimestamp(ctx context.Context) (model.Timestamp, error)
}
