package resource

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerBackgroundSlots(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})
	ctx := context.Background()

	require.NoError(t, c.AcquireBackground(ctx))
	require.NoError(t, c.AcquireBackground(ctx))

	// Third slot blocks until one is released.
	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.AcquireBackground(blocked), context.DeadlineExceeded)

	c.ReleaseBackground()
	require.NoError(t, c.AcquireBackground(ctx))

	c.ReleaseBackground()
	c.ReleaseBackground()
}

func TestControllerDefaultsToOneWorker(t *testing.T) {
	c := NewController(Config{})
	ctx := context.Background()

	require.NoError(t, c.AcquireBackground(ctx))

	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.AcquireBackground(blocked), context.DeadlineExceeded)

	c.ReleaseBackground()
}

func TestNilControllerIsUnlimited(t *testing.T) {
	var c *Controller
	ctx := context.Background()

	require.NoError(t, c.AcquireBackground(ctx))
	c.ReleaseBackground()
	require.NoError(t, c.AcquireIO(ctx, 1<<20))
}

func TestControllerIOUnlimitedByDefault(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 1})
	require.NoError(t, c.AcquireIO(context.Background(), 1<<30))
}

func TestRateLimitedReaderPassThrough(t *testing.T) {
	r := NewRateLimitedReader(strings.NewReader("payload"), nil, context.Background())

	buf := make([]byte, 16)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf[:n]))
}

func TestRateLimitedReaderThrottles(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 1, IOLimitBytesPerSec: 1024})
	r := NewRateLimitedReader(strings.NewReader(strings.Repeat("x", 64)), c, context.Background())

	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
}
