package resource

import (
	"context"
	"io"
)

// NewRateLimitedReader wraps r so every read consumes IO budget from
// the controller. A nil controller passes reads through unchanged.
func NewRateLimitedReader(r io.Reader, c *Controller, ctx context.Context) io.Reader {
	if c == nil || c.ioLimiter == nil {
		return r
	}
	return &rateLimitedReader{r: r, c: c, ctx: ctx}
}

type rateLimitedReader struct {
	r   io.Reader
	c   *Controller
	ctx context.Context
}

func (r *rateLimitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if lerr := r.c.AcquireIO(r.ctx, n); lerr != nil {
			return n, lerr
		}
	}
	return n, err
}
