package raster

import "github.com/okian/pagecue/pkg/logger"

// Option applies a configuration option to the Rasterizer.
type Option func(*Rasterizer)

// WithBaseDPI sets the baseline DPI used to derive the render scale.
func WithBaseDPI(dpi float64) Option {
	return func(r *Rasterizer) {
		if dpi > 0 {
			r.baseDPI = dpi
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Rasterizer) {
		if l != nil {
			r.log = l
		}
	}
}
