package service

import (
	"context"
	"fmt"

	"github.com/okian/pagecue/internal/adapters/persistence"
	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/internal/domain/types"
	"github.com/okian/pagecue/pkg/logger"
	"github.com/okian/pagecue/pkg/metrics"
)

// AddMarker places a marker. The position must lie within the track.
func (s *Service) AddMarker(ctx context.Context, position float64) (types.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.trackLoaded {
		return types.Marker{}, s.failLocked(ctx, "markers", ErrNoTrack)
	}
	if !s.store.InRange(position) {
		lo, hi := s.store.Range()
		return types.Marker{}, s.failLocked(ctx, "markers", fmt.Errorf("%w: %g not in [%g, %g]", ErrMarkerRange, position, lo, hi))
	}
	id := s.store.Add(position)
	metrics.UpdateMarkerCount(s.store.Len())
	m, _ := s.store.Get(id)
	return s.markerViewLocked(m), nil
}

// AddMarkerAtPosition places a marker at the current playback position.
func (s *Service) AddMarkerAtPosition(ctx context.Context) (types.Marker, error) {
	return s.AddMarker(ctx, s.clock.Position())
}

// ClearMarkers removes every marker and its trigger state.
func (s *Service) ClearMarkers(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Clear()
	s.engine.Reset(ctx)
	metrics.UpdateMarkerCount(0)
}

// DistributeMarkers replaces the markers with one per page break, evenly
// spaced over the track.
func (s *Service) DistributeMarkers(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return s.failLocked(ctx, "markers", ErrNoDocument)
	}
	if !s.trackLoaded {
		return s.failLocked(ctx, "markers", ErrNoTrack)
	}
	s.resetMarkersLocked(ctx)
	return nil
}

// BeginDrag marks a marker as being dragged.
func (s *Service) BeginDrag(ctx context.Context, id model.MarkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.BeginDrag(id); err != nil {
		return s.failLocked(ctx, "markers", err)
	}
	return nil
}

// DragMarker moves a marker, clamped to the track, and re-arms it.
func (s *Service) DragMarker(ctx context.Context, id model.MarkerID, position float64) (types.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.store.DragTo(id, position)
	if err != nil {
		return types.Marker{}, s.failLocked(ctx, "markers", err)
	}
	s.engine.Rearm(ctx, id)
	return s.markerViewLocked(m), nil
}

// EndDrag finishes a drag.
func (s *Service) EndDrag(ctx context.Context, id model.MarkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.EndDrag(id); err != nil {
		return s.failLocked(ctx, "markers", err)
	}
	return nil
}

// MoveMarker runs a whole drag: begin, move and end.
func (s *Service) MoveMarker(ctx context.Context, id model.MarkerID, position float64) (types.Marker, error) {
	if err := s.BeginDrag(ctx, id); err != nil {
		return types.Marker{}, err
	}
	m, err := s.DragMarker(ctx, id, position)
	if err != nil {
		return types.Marker{}, err
	}
	if err := s.EndDrag(ctx, id); err != nil {
		return types.Marker{}, err
	}
	m.Dragging = false
	return m, nil
}

// SaveMarkers writes the marker positions to path. An empty path falls back
// to the configured file, then to the file next to the document. It returns
// the path written.
func (s *Service) SaveMarkers(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.markersFileLocked(path)
	if err != nil {
		return "", s.failLocked(ctx, "persistence", err)
	}
	if err := persistence.Save(path, s.store.Positions()); err != nil {
		metrics.RecordPersistenceError("save")
		return "", s.failLocked(ctx, "persistence", err)
	}
	s.status = fmt.Sprintf("saved %d markers", s.store.Len())
	s.logger.Info(ctx, "markers saved", logger.String("path", path), logger.Int("count", s.store.Len()))
	return path, nil
}

// LoadMarkers replaces the markers with those read from path. A track must be
// loaded; lines outside the track are dropped. On failure the current
// markers are kept.
func (s *Service) LoadMarkers(ctx context.Context, path string) (persistence.LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadMarkersLocked(ctx, path)
}

func (s *Service) loadMarkersLocked(ctx context.Context, path string) (persistence.LoadResult, error) {
	if !s.trackLoaded {
		return persistence.LoadResult{}, s.failLocked(ctx, "persistence", ErrNoTrack)
	}
	path, err := s.markersFileLocked(path)
	if err != nil {
		return persistence.LoadResult{}, s.failLocked(ctx, "persistence", err)
	}

	lo, hi := s.store.Range()
	res, err := persistence.Load(path, lo, hi)
	if err != nil {
		metrics.RecordPersistenceError("load")
		return persistence.LoadResult{}, s.failLocked(ctx, "persistence", err)
	}

	s.store.Clear()
	for _, p := range res.Positions {
		s.store.Add(p)
	}
	s.engine.Reset(ctx)
	metrics.UpdateMarkerCount(s.store.Len())

	if len(res.Dropped) > 0 {
		metrics.RecordMarkerLinesDropped(len(res.Dropped))
		for _, d := range res.Dropped {
			s.logger.Warn(ctx, "marker dropped", logger.Int("line", d.Line), logger.String("text", d.Text))
		}
		s.status = fmt.Sprintf("loaded %d markers, dropped %d out of range", len(res.Positions), len(res.Dropped))
	} else {
		s.status = fmt.Sprintf("loaded %d markers", len(res.Positions))
	}
	s.logger.Info(ctx, "markers loaded", logger.String("path", path), logger.Int("count", len(res.Positions)))
	return res, nil
}

// WatchMarkers reloads markers from path whenever the file changes on disk.
// It replaces any previous watch.
func (s *Service) WatchMarkers(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.markersFileLocked(path)
	if err != nil {
		return s.failLocked(ctx, "persistence", err)
	}
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}

	w, err := persistence.Watch(ctx, path, func(ctx context.Context, p string) {
		if _, err := s.LoadMarkers(ctx, p); err != nil {
			s.logger.Warn(ctx, "marker reload failed", logger.String("path", p), logger.Error(err))
		}
	}, persistence.WithWatcherLogger(s.logger.Named("watcher")))
	if err != nil {
		metrics.RecordPersistenceError("watch")
		return s.failLocked(ctx, "persistence", err)
	}
	s.watcher = w
	s.logger.Info(ctx, "watching markers file", logger.String("path", w.Path()))
	return nil
}

func (s *Service) markersFileLocked(path string) (string, error) {
	switch {
	case path != "":
		return path, nil
	case s.markersPath != "":
		return s.markersPath, nil
	case s.session != nil:
		return persistence.DefaultPath(s.session.Path), nil
	default:
		return "", ErrNoMarkersPath
	}
}
