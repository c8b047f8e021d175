// Package service is the presenter: it owns the document, the track, the
// markers and the rendered pages, and advances pages as playback crosses
// markers.
//
// Every operation runs under one mutex, so ticks, HTTP requests and file
// reloads are serialized. A tick's trigger evaluation and the page changes it
// causes, rendering included, finish before the next operation starts.
package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/okian/pagecue/internal/adapters/clock"
	"github.com/okian/pagecue/internal/adapters/mq/queue"
	"github.com/okian/pagecue/internal/adapters/pagecache"
	"github.com/okian/pagecue/internal/adapters/persistence"
	"github.com/okian/pagecue/internal/adapters/renderer/imagedir"
	"github.com/okian/pagecue/internal/adapters/scheduler"
	"github.com/okian/pagecue/internal/domain/document"
	"github.com/okian/pagecue/internal/domain/markers"
	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/internal/domain/raster"
	"github.com/okian/pagecue/internal/domain/trigger"
	"github.com/okian/pagecue/pkg/logger"
	"github.com/okian/pagecue/pkg/metrics"
)

const (
	systemMetricsInterval = 5 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// Page command results reported to metrics.
const (
	resultMoved      = "moved"
	resultNoop       = "noop"
	resultNoDocument = "no_document"
	resultError      = "error"
)

// Listener observes commands after they are applied. Listeners run while the
// service lock is held and must not call back into the Service.
type Listener func(ctx context.Context, cmd model.Command)

// Service implements the presenter.
type Service struct {
	mu sync.Mutex

	// Core components
	opener     document.Opener
	clock      clock.Adjustable
	rasterizer *raster.Rasterizer
	cache      *pagecache.Cache
	store      *markers.Store
	engine     trigger.Engine
	runner     *scheduler.Runner
	watcher    *persistence.Watcher
	feeds      map[*queue.InMemoryQueue]struct{}

	// Configuration
	tickInterval  time.Duration
	cacheCapacity int
	viewport      model.Size
	previewSize   model.Size
	baseDPI       float64
	policy        trigger.Policy
	markersPath   string
	feedCapacity  int
	listeners     []Listener

	// State
	doc         document.Document
	session     *model.DocumentSession
	trackName   string
	trackLoaded bool
	current     *image.NRGBA
	preview     *image.NRGBA
	status      string
	started     bool
	stopCh      chan struct{}

	// Logging
	logger logger.Logger
}

// New constructs a Service. Without options it renders image documents and
// uses a software transport as the clock.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		tickInterval: scheduler.DefaultInterval,
		viewport:     model.Size{Width: 1280, Height: 720},
		previewSize:  model.Size{Width: 320, Height: 180},
		baseDPI:      raster.DefaultBaseDPI,
		policy:       trigger.PolicyEmitEach,
		feedCapacity: queue.DefaultCapacity,
		feeds:        make(map[*queue.InMemoryQueue]struct{}),
		stopCh:       make(chan struct{}),
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.opener == nil {
		s.opener = imagedir.New(imagedir.WithLogger(s.logger.Named("renderer")))
	}
	if s.clock == nil {
		s.clock = clock.NewTransport()
	}

	cache, err := pagecache.New(
		pagecache.WithCapacity(s.cacheCapacity),
		pagecache.WithLogger(s.logger.Named("cache")),
	)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	s.rasterizer = raster.New(
		raster.WithBaseDPI(s.baseDPI),
		raster.WithLogger(s.logger.Named("raster")),
	)
	s.store = markers.NewStore()
	s.engine = trigger.New(
		trigger.WithPolicy(s.policy),
		trigger.WithLogger(s.logger.Named("trigger")),
	)
	s.runner = s.newRunner()
	return s, nil
}

func (s *Service) newRunner() *scheduler.Runner {
	return scheduler.New(s,
		scheduler.WithInterval(s.tickInterval),
		scheduler.WithName("ticker"),
		scheduler.WithLogger(s.logger),
	)
}

// Start begins ticking.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	go s.runner.Run(ctx)
	go s.systemMetrics(ctx, s.stopCh)

	s.started = true
	s.logger.Info(ctx, "presenter started",
		logger.Duration("tick", s.tickInterval),
		logger.Int("cacheCapacity", s.cache.Capacity()),
		logger.String("policy", s.policy.String()),
	)
	return nil
}

// Stop halts ticking, stops watching marker files and closes the document.
func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.mu.Lock()
	started := s.started
	s.started = false
	runner, stop := s.runner, s.stopCh
	if started {
		s.runner = s.newRunner()
		s.stopCh = make(chan struct{})
	}
	s.mu.Unlock()

	if started {
		close(stop)
		if err := runner.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "scheduler shutdown", logger.Error(err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
	s.closeFeedsLocked()
	if s.doc != nil {
		_ = s.doc.Close()
		s.doc, s.session = nil, nil
	}
	s.clock.Stop()
	s.logger.Info(ctx, "presenter stopped")
}

// Tick evaluates the markers against the clock once. Nothing happens while
// the clock is not playing.
func (s *Service) Tick(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.trackLoaded {
		return nil
	}
	playback := s.playbackLocked()
	metrics.UpdatePlaybackPosition(playback.Position)
	if !playback.Playing {
		return nil
	}

	var errs []error
	for _, cmd := range s.engine.Evaluate(ctx, playback.Position, s.store.List()) {
		if err := s.dispatchLocked(ctx, cmd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handle applies a page command.
func (s *Service) Handle(ctx context.Context, cmd model.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatchLocked(ctx, cmd)
}

// AdvancePage moves to the next page.
func (s *Service) AdvancePage(ctx context.Context) error {
	return s.Handle(ctx, model.AdvancePage{})
}

// RetreatPage moves to the previous page.
func (s *Service) RetreatPage(ctx context.Context) error {
	return s.Handle(ctx, model.RetreatPage{})
}

// GoToPage jumps to a zero-based page index.
func (s *Service) GoToPage(ctx context.Context, page int) error {
	return s.Handle(ctx, model.GoToPage{Page: page})
}

// Subscribe adds a command listener.
func (s *Service) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Service) dispatchLocked(ctx context.Context, cmd model.Command) error {
	if cmd == nil {
		return ErrUnknownCmd
	}
	if s.session == nil {
		metrics.RecordPageCommand(cmd.CommandName(), resultNoDocument)
		return s.failLocked(ctx, "navigation", ErrNoDocument)
	}

	target := s.session.CurrentPage
	switch c := cmd.(type) {
	case model.AdvancePage:
		target++
		if c.MarkerID != 0 {
			s.logger.Info(ctx, "marker crossed",
				logger.Uint64("marker", uint64(c.MarkerID)),
				logger.Float64("at", c.MarkerPosition),
				logger.Float64("position", c.PlaybackPosition))
		}
	case model.RetreatPage:
		target--
	case model.GoToPage:
		if c.Page < 0 || c.Page >= s.session.PageCount {
			metrics.RecordPageCommand(cmd.CommandName(), resultError)
			return s.failLocked(ctx, "navigation", fmt.Errorf("%w: %d of %d", document.ErrPageRange, c.Page, s.session.PageCount))
		}
		target = c.Page
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCmd, cmd.CommandName())
	}

	if target < 0 || target >= s.session.PageCount || target == s.session.CurrentPage {
		metrics.RecordPageCommand(cmd.CommandName(), resultNoop)
		s.notifyLocked(ctx, cmd, false)
		return nil
	}

	s.session.CurrentPage = target
	metrics.UpdateCurrentPage(target)
	err := s.renderLocked(ctx)
	if err != nil {
		metrics.RecordPageCommand(cmd.CommandName(), resultError)
	} else {
		metrics.RecordPageCommand(cmd.CommandName(), resultMoved)
	}
	s.notifyLocked(ctx, cmd, true)
	return err
}

func (s *Service) notifyLocked(ctx context.Context, cmd model.Command, moved bool) {
	for _, l := range s.listeners {
		l(ctx, cmd)
	}
	if len(s.feeds) == 0 {
		return
	}
	ev := model.PageEvent{
		Command:   cmd.CommandName(),
		Page:      s.session.CurrentPage,
		PageCount: s.session.PageCount,
		Moved:     moved,
		At:        time.Now(),
	}
	if adv, ok := cmd.(model.AdvancePage); ok {
		ev.MarkerID = adv.MarkerID
		ev.Position = adv.PlaybackPosition
	}
	for q := range s.feeds {
		if q.IsClosed() {
			s.closeFeedLocked(q)
			continue
		}
		q.Enqueue(ctx, ev)
	}
}

// renderLocked refreshes the current page and the next-page preview. A view
// whose render fails keeps its previous bitmap.
func (s *Service) renderLocked(ctx context.Context) error {
	if s.session == nil || s.doc == nil {
		return nil
	}
	page := s.session.CurrentPage

	var errs []error
	if img, err := s.pageImageLocked(ctx, page, s.viewport); err != nil {
		errs = append(errs, err)
	} else {
		s.current = img
	}

	if page+1 < s.session.PageCount {
		if img, err := s.pageImageLocked(ctx, page+1, s.previewSize); err != nil {
			errs = append(errs, err)
		} else {
			s.preview = img
		}
	} else {
		s.preview = nil
	}

	if err := errors.Join(errs...); err != nil {
		return s.failLocked(ctx, "render", err)
	}
	s.status = fmt.Sprintf("page %d of %d", page+1, s.session.PageCount)
	return nil
}

// pageImageLocked returns a cached bitmap for page at viewport or renders it.
func (s *Service) pageImageLocked(ctx context.Context, page int, viewport model.Size) (*image.NRGBA, error) {
	natural, err := s.doc.PageSize(page)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", raster.ErrRender, err)
	}
	size, err := raster.Fit(natural, viewport)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", raster.ErrRender, err)
	}
	key := pagecache.KeyFor(page, size)
	if img, ok := s.cache.Get(key); ok {
		return img, nil
	}
	img, err := s.rasterizer.Rasterize(ctx, s.doc, page, viewport)
	if err != nil {
		return nil, err
	}
	s.cache.Put(key, img)
	return img, nil
}

// failLocked records err as the user-visible status and returns it.
func (s *Service) failLocked(ctx context.Context, component string, err error) error {
	s.status = err.Error()
	metrics.RecordErrorByComponent(component, errorKind(err))
	s.logger.Warn(ctx, "operation failed", logger.String("component", component), logger.Error(err))
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, document.ErrLoad):
		return "load"
	case errors.Is(err, raster.ErrRender):
		return "render"
	case errors.Is(err, persistence.ErrPersistenceIO):
		return "persistence_io"
	case errors.Is(err, ErrMarkerRange), errors.Is(err, persistence.ErrMarkerRange):
		return "marker_range"
	case errors.Is(err, ErrNoDocument), errors.Is(err, ErrNoTrack):
		return "precondition"
	default:
		return "other"
	}
}

func (s *Service) systemMetrics(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	var mem runtime.MemStats
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			runtime.ReadMemStats(&mem)
			metrics.UpdateSystemMemoryUsage(mem.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}
