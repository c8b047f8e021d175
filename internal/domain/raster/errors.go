package raster

import "errors"

var (
	// ErrRender reports that a page could not be rasterized.
	ErrRender = errors.New("page render failed")
	// ErrInvalidSize reports a zero or negative page or viewport size.
	ErrInvalidSize = errors.New("invalid size")
	// ErrInvalidBuffer reports a renderer buffer whose stride or length does
	// not cover its declared dimensions.
	ErrInvalidBuffer = errors.New("invalid pixel buffer")
)
