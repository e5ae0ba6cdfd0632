package doclog

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/segbuild/model"
)

// MemoryLog is an in-memory Reader implementation for testing. Appends
// must carry strictly increasing timestamps.
type MemoryLog struct {
	mu   sync.RWMutex
	revs []model.Revision
}

// NewMemoryLog creates a new in-memory change log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append adds a revision to the log.
func (l *MemoryLog) Append(rev model.Revision) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.revs); n > 0 && rev.TS <= l.revs[n-1].TS {
		return fmt.Errorf("non-monotonic timestamp %d (latest %d)", rev.TS, l.revs[n-1].TS)
	}
	l.revs = append(l.revs, rev)
	return nil
}

// Changes streams revisions with from < rev.TS <= to.
func (l *MemoryLog) Changes(_ context.Context, from, to model.Timestamp) Stream {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var window []model.Revision
	for _, rev := range l.revs {
		if rev.TS > from && rev.TS <= to {
			window = append(window, rev)
		}
	}
	return &sliceStream{revs: window}
}

// LatestTimestamp returns the newest committed timestamp.
func (l *MemoryLog) LatestTimestamp(_ context.Context) (model.Timestamp, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.revs) == 0 {
		return 0, nil
	}
	return l.revs[len(l.revs)-1].TS, nil
}

type sliceStream struct {
	revs []model.Revision
	pos  int
}

func (s *sliceStream) Next(ctx context.Context) (model.Revision, error) {
	if err := ctx.Err(); err != nil {
		return model.Revision{}, err
	}
	if s.pos >= len(s.revs) {
		return model.Revision{}, io.EOF
	}
	rev := s.revs[s.pos]
	s.pos++
	return rev, nil
}
