package imagedir

import "github.com/okian/pagecue/pkg/logger"

// DefaultSourceDPI maps one image pixel to one point.
const DefaultSourceDPI = 72.0

// Option applies a configuration option to the Opener.
type Option func(*Opener)

// WithSourceDPI sets the resolution page images were produced at.
func WithSourceDPI(dpi float64) Option {
	return func(o *Opener) {
		if dpi > 0 {
			o.sourceDPI = dpi
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Opener) {
		if l != nil {
			o.log = l
		}
	}
}
