package service

import (
	"time"

	"github.com/okian/pagecue/internal/adapters/clock"
	"github.com/okian/pagecue/internal/domain/document"
	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/internal/domain/trigger"
	"github.com/okian/pagecue/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithOpener sets the document renderer.
func WithOpener(o document.Opener) Option {
	return func(s *Service) {
		if o != nil {
			s.opener = o
		}
	}
}

// WithClock sets the playback clock.
func WithClock(c clock.Adjustable) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithTickInterval sets how often the trigger engine is evaluated.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithCacheCapacity bounds the page cache. n <= 0 means unbounded.
func WithCacheCapacity(n int) Option {
	return func(s *Service) {
		s.cacheCapacity = n
	}
}

// WithViewport sets the main page viewport in pixels.
func WithViewport(size model.Size) Option {
	return func(s *Service) {
		if !size.Empty() {
			s.viewport = size
		}
	}
}

// WithPreviewSize sets the next-page preview viewport in pixels.
func WithPreviewSize(size model.Size) Option {
	return func(s *Service) {
		if !size.Empty() {
			s.previewSize = size
		}
	}
}

// WithBaseDPI sets the rasterizer's baseline DPI.
func WithBaseDPI(dpi float64) Option {
	return func(s *Service) {
		if dpi > 0 {
			s.baseDPI = dpi
		}
	}
}

// WithPolicy sets the simultaneous-trigger policy.
func WithPolicy(p trigger.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithMarkersPath sets the default markers file.
func WithMarkersPath(path string) Option {
	return func(s *Service) {
		s.markersPath = path
	}
}

// WithFeedCapacity sets how many page events each feed buffers before it
// starts dropping them.
func WithFeedCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.feedCapacity = n
		}
	}
}

// WithListener registers a listener for dispatched commands.
func WithListener(l Listener) Option {
	return func(s *Service) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
