// Package config defines presenter configuration and its loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers an optional YAML file and PAGECUE_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig; source failures wrap ErrLoadConfig.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// TickIntervalMS sets how often the trigger engine samples the clock.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// CacheCapacity bounds the page cache. Zero or less keeps it unbounded.
	CacheCapacity int `koanf:"cache_capacity"`

	// ViewportWidth and ViewportHeight size the main page view in pixels.
	ViewportWidth  int `koanf:"viewport_width"`
	ViewportHeight int `koanf:"viewport_height"`

	// PreviewWidth and PreviewHeight size the next-page preview in pixels.
	PreviewWidth  int `koanf:"preview_width"`
	PreviewHeight int `koanf:"preview_height"`

	// BaseDPI is the rasterizer baseline used to derive render scale.
	BaseDPI float64 `koanf:"base_dpi"`

	// SourceDPI is the resolution assumed for image documents.
	SourceDPI float64 `koanf:"source_dpi"`

	// SimultaneousPolicy is emit_each or emit_once.
	SimultaneousPolicy string `koanf:"simultaneous_policy"`

	// DocumentPath, when set, is opened at startup.
	DocumentPath string `koanf:"document_path"`

	// TrackName and TrackLength describe a track loaded at startup. A zero
	// length means no track.
	TrackName   string  `koanf:"track_name"`
	TrackLength float64 `koanf:"track_length"`

	// MarkersPath overrides the markers file next to the document.
	MarkersPath string `koanf:"markers_path"`

	// WatchMarkers reloads markers when the markers file changes.
	WatchMarkers bool `koanf:"watch_markers"`

	// FeedCapacity bounds each /events subscriber's buffer.
	FeedCapacity int `koanf:"feed_capacity"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		TickIntervalMS:     500,
		CacheCapacity:      0,
		ViewportWidth:      1280,
		ViewportHeight:     720,
		PreviewWidth:       320,
		PreviewHeight:      180,
		BaseDPI:            144,
		SourceDPI:          72,
		SimultaneousPolicy: "emit_each",
		TrackName:          "track",
		FeedCapacity:       64,
	}
}

// TickInterval returns TickIntervalMS as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}
