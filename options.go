package segbuild

import (
	"github.com/hupe1980/segbuild/resource"
)

// WorkerOption customizes a Worker.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	logger     *Logger
	res        *resource.Controller
	scratchDir string
}

func defaultWorkerOptions() workerOptions {
	return workerOptions{
		logger: NewLogger(nil),
	}
}

// WithLogger sets the worker's logger.
func WithLogger(l *Logger) WorkerOption {
	return func(o *workerOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithResourceController bounds concurrent cycles and IO throughput.
func WithResourceController(c *resource.Controller) WorkerOption {
	return func(o *workerOptions) {
		o.res = c
	}
}

// WithScratchDir sets the directory for per-cycle scratch space.
// Defaults to the system temp directory.
func WithScratchDir(dir string) WorkerOption {
	return func(o *workerOptions) {
		o.scratchDir = dir
	}
}
