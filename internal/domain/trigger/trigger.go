// Package trigger turns a playback position into at-most-once page advances.
package trigger

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/pkg/logger"
	"github.com/okian/pagecue/pkg/metrics"
)

// Engine tracks which markers have fired since they were last armed.
type Engine interface {
	// Evaluate fires every armed marker with position >= marker position, in
	// list order, and returns the resulting commands.
	Evaluate(ctx context.Context, position float64, markers []model.Marker) []model.AdvancePage

	// State reports whether the marker has fired. Unknown ids are armed.
	State(id model.MarkerID) bool

	// Rearm puts one marker back into the armed state.
	Rearm(ctx context.Context, id model.MarkerID)

	// Reset arms every marker.
	Reset(ctx context.Context)

	// Fired returns the number of markers currently in the fired state.
	Fired() int64

	Policy() Policy
}

// engine keeps the fired set keyed by marker id. Absent means armed.
type engine struct {
	mu     sync.Mutex
	fired  map[model.MarkerID]struct{}
	count  atomic.Int64
	policy Policy
	log    logger.Logger
}

// New creates an engine with every marker armed.
func New(opts ...Option) Engine {
	e := &engine{
		fired:  make(map[model.MarkerID]struct{}),
		policy: PolicyEmitEach,
		log:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engine) Evaluate(ctx context.Context, position float64, markers []model.Marker) []model.AdvancePage {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []model.AdvancePage
	for _, m := range markers {
		if _, done := e.fired[m.ID]; done {
			continue
		}
		if position < m.Position {
			continue
		}
		e.fired[m.ID] = struct{}{}
		e.count.Add(1)
		metrics.RecordMarkerFired()
		e.log.Debug(ctx, "marker fired",
			logger.Uint64("marker", uint64(m.ID)),
			logger.Float64("at", m.Position),
			logger.Float64("position", position))

		if e.policy == PolicyEmitOnce && len(out) > 0 {
			continue
		}
		out = append(out, model.AdvancePage{
			MarkerID:         m.ID,
			MarkerPosition:   m.Position,
			PlaybackPosition: position,
		})
	}
	return out
}

func (e *engine) State(id model.MarkerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, done := e.fired[id]
	return done
}

func (e *engine) Rearm(ctx context.Context, id model.MarkerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, done := e.fired[id]; done {
		delete(e.fired, id)
		e.count.Add(-1)
		e.log.Debug(ctx, "marker re-armed", logger.Uint64("marker", uint64(id)))
	}
}

func (e *engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.fired) == 0 {
		return
	}
	e.fired = make(map[model.MarkerID]struct{})
	e.count.Store(0)
	e.log.Debug(ctx, "trigger state reset")
}

func (e *engine) Fired() int64 {
	return e.count.Load()
}

func (e *engine) Policy() Policy {
	return e.policy
}
