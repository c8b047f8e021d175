// Package scheduler drives the presenter at a fixed cadence.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pagecue/pkg/logger"
	"github.com/okian/pagecue/pkg/metrics"
)

// DefaultInterval bounds trigger latency to half a second.
const DefaultInterval = 500 * time.Millisecond

// Ticker is called once per interval.
type Ticker interface {
	Tick(ctx context.Context) error
}

// TickerFunc adapts a function to Ticker.
type TickerFunc func(ctx context.Context) error

// Tick implements Ticker.
func (f TickerFunc) Tick(ctx context.Context) error {
	return f(ctx)
}

// Runner calls a Ticker on a fixed interval. A tick that overruns the
// interval delays the next one; ticks never overlap.
type Runner struct {
	target   Ticker
	interval time.Duration
	name     string

	shutdown     chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once

	logger logger.Logger
}

// New creates a runner for target.
func New(target Ticker, opts ...Option) *Runner {
	r := &Runner{
		target:   target,
		interval: DefaultInterval,
		name:     "scheduler",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named(r.name)
	return r
}

// Interval returns the tick cadence.
func (r *Runner) Interval() time.Duration {
	return r.interval
}

// Run ticks until ctx is cancelled or Shutdown is called.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info(ctx, "scheduler started", logger.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	err := r.target.Tick(ctx)
	metrics.RecordTick(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		metrics.RecordErrorByComponent("scheduler", "tick")
		r.logger.Error(ctx, "tick failed", logger.Error(err))
	}
}

// Shutdown stops the loop and waits for the current tick to finish.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.shutdownOnce.Do(func() { close(r.shutdown) })

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
