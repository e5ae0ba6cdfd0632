// Package fanout runs bounded, unordered parallel work over a set of
// inputs, failing fast on the first error.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit caps in-flight tasks when the caller does not choose one.
const DefaultLimit = 8

// TryJoinBufferUnordered runs fn over every input with at most limit
// tasks in flight. Completion order is irrelevant: each result lands in
// the slot of its input, so callers key results by identity rather than
// by completion. The first error cancels the group's context and is
// returned; results of tasks that still complete are discarded.
func TryJoinBufferUnordered[T, R any](ctx context.Context, limit int, inputs []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]R, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, in := range inputs {
		g.Go(func() error {
			r, err := fn(ctx, in)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
