package scheduler

import (
	"time"

	"github.com/okian/pagecue/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithInterval sets the tick cadence.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithName sets the runner name used in logs.
func WithName(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.name = name
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}
