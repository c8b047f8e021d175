// Package document defines the port to the external page renderer.
//
// The renderer decodes a document and rasterizes one page at a given scale.
// It returns pixels the way cairo image surfaces store them: 32-bit ARGB
// words, premultiplied alpha, little-endian, with a row stride.
package document

import (
	"context"
	"errors"
)

// Sentinel error kinds. Implementations wrap these so callers can use errors.Is.
var (
	// ErrLoad reports that a document could not be opened.
	ErrLoad = errors.New("document load failed")
	// ErrPageRange reports a page index outside [0, PageCount).
	ErrPageRange = errors.New("page index out of range")
)

// PageSize is the natural page size in points (1/72 inch).
type PageSize struct {
	Width  float64
	Height float64
}

// RawBuffer holds premultiplied ARGB32 pixels.
// Pixel (x, y) starts at Pix[y*Stride + x*4]; bytes are B, G, R, A.
type RawBuffer struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// Opener opens documents by path.
type Opener interface {
	Open(ctx context.Context, path string) (Document, error)
}

// Document is an open document handle.
type Document interface {
	PageCount() int
	PageSize(index int) (PageSize, error)
	// RenderPage rasterizes page index with user space scaled by scale,
	// i.e. one point becomes scale pixels.
	RenderPage(ctx context.Context, index int, scale float64) (RawBuffer, error)
	Close() error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, path string) (Document, error)

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, path string) (Document, error) {
	return f(ctx, path)
}
