package service

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/okian/pagecue/internal/adapters/pagecache"
	"github.com/okian/pagecue/internal/domain/document"
	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/internal/domain/raster"
	"github.com/okian/pagecue/pkg/logger"
	"github.com/okian/pagecue/pkg/metrics"
)

// LoadDocument opens path and makes it the active document. On failure the
// previous document stays active.
func (s *Service) LoadDocument(ctx context.Context, path string) error {
	doc, err := s.opener.Open(ctx, path)
	if err == nil && doc.PageCount() <= 0 {
		_ = doc.Close()
		err = fmt.Errorf("%w: %s has no pages", document.ErrLoad, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		metrics.RecordDocumentLoad("error")
		return s.failLocked(ctx, "document", err)
	}

	if s.doc != nil {
		_ = s.doc.Close()
	}
	s.doc = doc
	s.session = &model.DocumentSession{
		ID:        uuid.NewString(),
		Filename:  filepath.Base(path),
		Path:      path,
		PageCount: doc.PageCount(),
	}
	s.current, s.preview = nil, nil
	s.cache.InvalidateAll(ctx, pagecache.ReasonDocument)
	s.resetMarkersLocked(ctx)

	metrics.RecordDocumentLoad("ok")
	metrics.UpdateCurrentPage(0)
	s.logger.Info(ctx, "document loaded",
		logger.String("id", s.session.ID),
		logger.String("file", s.session.Filename),
		logger.Int("pages", s.session.PageCount))

	return s.renderLocked(ctx)
}

// LoadTrack replaces the audio track. The clock rewinds and stops, the marker
// range becomes [0, length] and markers are redistributed over the document.
func (s *Service) LoadTrack(ctx context.Context, name string, length float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if length <= 0 {
		return s.failLocked(ctx, "track", fmt.Errorf("%w: %g", ErrInvalidTrack, length))
	}
	s.clock.SetLength(length)
	if err := s.store.SetRange(0, length); err != nil {
		return s.failLocked(ctx, "track", err)
	}
	s.trackName = name
	s.trackLoaded = true
	s.resetMarkersLocked(ctx)

	s.status = fmt.Sprintf("track %s loaded", name)
	s.logger.Info(ctx, "track loaded", logger.String("name", name), logger.Float64("length", length))
	return nil
}

// resetMarkersLocked applies the default marker layout: evenly spaced over
// the track when both a document and a track are loaded, otherwise none.
func (s *Service) resetMarkersLocked(ctx context.Context) {
	if s.session != nil && s.trackLoaded {
		lo, hi := s.store.Range()
		s.store.AutoDistribute(s.session.PageCount, lo, hi)
	} else {
		s.store.Clear()
	}
	s.engine.Reset(ctx)
	metrics.UpdateMarkerCount(s.store.Len())
}

// Play starts playback.
func (s *Service) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.trackLoaded {
		return s.failLocked(ctx, "transport", ErrNoTrack)
	}
	s.clock.Start()
	s.status = "playing"
	return nil
}

// Pause stops playback at the current position.
func (s *Service) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.trackLoaded {
		return s.failLocked(ctx, "transport", ErrNoTrack)
	}
	s.clock.Stop()
	s.status = "paused"
	return nil
}

// Seek moves the playback position. Marker states are not changed.
func (s *Service) Seek(ctx context.Context, seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.trackLoaded {
		return s.failLocked(ctx, "transport", ErrNoTrack)
	}
	s.clock.Seek(seconds)
	metrics.UpdatePlaybackPosition(s.clock.Position())
	return nil
}

// Resize changes the main viewport and re-renders the current page.
func (s *Service) Resize(ctx context.Context, size model.Size) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size.Empty() {
		return s.failLocked(ctx, "viewport", fmt.Errorf("%w: viewport %dx%d", raster.ErrInvalidSize, size.Width, size.Height))
	}
	s.viewport = size
	s.invalidateOnResizeLocked(ctx)
	return s.renderLocked(ctx)
}

// ResizePreview changes the preview viewport and re-renders the preview.
func (s *Service) ResizePreview(ctx context.Context, size model.Size) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size.Empty() {
		return s.failLocked(ctx, "viewport", fmt.Errorf("%w: preview %dx%d", raster.ErrInvalidSize, size.Width, size.Height))
	}
	s.previewSize = size
	s.invalidateOnResizeLocked(ctx)
	return s.renderLocked(ctx)
}

// invalidateOnResizeLocked drops the unbounded cache. A bounded cache keys by
// render size and lets bitmaps of old sizes age out.
func (s *Service) invalidateOnResizeLocked(ctx context.Context) {
	if !s.cache.Bounded() {
		s.cache.InvalidateAll(ctx, pagecache.ReasonResize)
	}
}
