package service

import (
	"image"

	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/internal/domain/types"
)

// Markers returns the markers in insertion order with their trigger state.
func (s *Service) Markers() []types.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markersLocked()
}

func (s *Service) markersLocked() []types.Marker {
	list := s.store.List()
	out := make([]types.Marker, len(list))
	for i, m := range list {
		out[i] = s.markerViewLocked(m)
	}
	return out
}

func (s *Service) markerViewLocked(m model.Marker) types.Marker {
	return types.NewMarker(model.MarkerState{Marker: m, Triggered: s.engine.State(m.ID)})
}

// playbackLocked reads the clock once. Position is read first since reaching
// the end of the track stops playback.
func (s *Service) playbackLocked() model.PlaybackState {
	position := s.clock.Position()
	return model.PlaybackState{
		Position: position,
		Length:   s.clock.Length(),
		Playing:  s.clock.IsPlaying(),
	}
}

// Page returns the bitmap of the current page, or nil before the first
// successful render.
func (s *Service) Page() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Preview returns the bitmap of the next page, or nil on the last page.
func (s *Service) Preview() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// CurrentPage returns the zero-based current page, or -1 without a document.
func (s *Service) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return -1
	}
	return s.session.CurrentPage
}

// PageCount returns the number of pages, or 0 without a document.
func (s *Service) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return 0
	}
	return s.session.PageCount
}

// Snapshot returns the presenter state.
func (s *Service) Snapshot() types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := types.Snapshot{
		Markers:      s.markersLocked(),
		Viewport:     [2]int{s.viewport.Width, s.viewport.Height},
		Preview:      [2]int{s.previewSize.Width, s.previewSize.Height},
		CacheEntries: s.cache.Len(),
		Running:      s.started,
		Status:       s.status,
	}
	if s.session != nil {
		snap.Document = &types.Document{
			ID:          s.session.ID,
			Filename:    s.session.Filename,
			PageCount:   s.session.PageCount,
			CurrentPage: s.session.CurrentPage,
			HasNext:     s.session.HasNext(),
			HasPrevious: s.session.HasPrevious(),
		}
	}
	if s.trackLoaded {
		snap.Track = types.NewTrack(s.trackName, s.playbackLocked())
	}
	return snap
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"tickInterval":  s.tickInterval.String(),
		"policy":        s.policy.String(),
		"cacheCapacity": s.cache.Capacity(),
		"cacheEntries":  s.cache.Len(),
		"markers":       s.store.Len(),
		"firedMarkers":  s.engine.Fired(),
		"trackLoaded":   s.trackLoaded,
	}
	if s.session != nil {
		stats["document"] = s.session.Filename
		stats["pageCount"] = s.session.PageCount
		stats["currentPage"] = s.session.CurrentPage
	}
	if s.watcher != nil {
		stats["watching"] = s.watcher.Path()
	}
	stats["feeds"] = len(s.feeds)
	return stats
}
