// Package raster converts document pages into straight-alpha bitmaps sized to
// fit a viewport.
//
// The rasterizer never stretches: the output keeps the page aspect ratio and
// letterboxing is left to the caller's layout.
package raster

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/okian/pagecue/internal/domain/document"
	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/pkg/logger"
	"github.com/okian/pagecue/pkg/metrics"
)

// DefaultBaseDPI is the baseline resolution the scale factor is derived from.
const DefaultBaseDPI = 144.0

// Rasterizer renders pages through a document.Document.
type Rasterizer struct {
	baseDPI float64
	log     logger.Logger
}

// New creates a Rasterizer.
func New(opts ...Option) *Rasterizer {
	r := &Rasterizer{
		baseDPI: DefaultBaseDPI,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BaseDPI returns the configured baseline DPI.
func (r *Rasterizer) BaseDPI() float64 {
	return r.baseDPI
}

// Rasterize renders one page into a bitmap that fits viewport.
func (r *Rasterizer) Rasterize(ctx context.Context, doc document.Document, page int, viewport model.Size) (*image.NRGBA, error) {
	start := time.Now()
	img, err := r.rasterize(ctx, doc, page, viewport)
	if err != nil {
		metrics.RecordRenderError()
		r.log.Warn(ctx, "render failed", logger.Int("page", page), logger.Error(err))
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.RecordRenderLatency(float64(elapsed.Microseconds()) / 1000.0)
	r.log.Debug(ctx, "page rendered",
		logger.Int("page", page),
		logger.Int("width", img.Rect.Dx()),
		logger.Int("height", img.Rect.Dy()),
		logger.Duration("took", elapsed))
	return img, nil
}

func (r *Rasterizer) rasterize(ctx context.Context, doc document.Document, page int, viewport model.Size) (*image.NRGBA, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no document", ErrRender)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	natural, err := doc.PageSize(page)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d size: %w", ErrRender, page, err)
	}
	size, err := Fit(natural, viewport)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrRender, page, err)
	}
	_, scale := Scale(size, natural, r.baseDPI)

	buf, err := doc.RenderPage(ctx, page, scale)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrRender, page, err)
	}
	img, err := Unpremultiply(buf, size)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %w", ErrRender, page, err)
	}
	return img, nil
}

// Fit returns the largest size with the page's aspect ratio that fits
// viewport. A page wider than the viewport (by aspect) takes the full width,
// otherwise the full height. The other side is rounded and never below 1.
func Fit(page document.PageSize, viewport model.Size) (model.Size, error) {
	if page.Width <= 0 || page.Height <= 0 {
		return model.Size{}, fmt.Errorf("%w: page %gx%g", ErrInvalidSize, page.Width, page.Height)
	}
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return model.Size{}, fmt.Errorf("%w: viewport %dx%d", ErrInvalidSize, viewport.Width, viewport.Height)
	}

	pageAspect := page.Width / page.Height
	viewAspect := float64(viewport.Width) / float64(viewport.Height)

	var out model.Size
	if pageAspect > viewAspect {
		out.Width = viewport.Width
		out.Height = int(math.Round(float64(viewport.Width) / pageAspect))
	} else {
		out.Height = viewport.Height
		out.Width = int(math.Round(float64(viewport.Height) * pageAspect))
	}
	out.Width = max(out.Width, 1)
	out.Height = max(out.Height, 1)
	return out, nil
}

// Scale derives the effective DPI for rendering page at render size and the
// scale factor relative to baseDPI. The renderer maps one point to scale pixels.
func Scale(render model.Size, page document.PageSize, baseDPI float64) (dpi, scale float64) {
	if page.Width <= 0 || baseDPI <= 0 {
		return 0, 0
	}
	dpi = float64(render.Width) * baseDPI / page.Width
	return dpi, dpi / baseDPI
}

// Unpremultiply converts a premultiplied ARGB32 buffer into a straight-alpha
// NRGBA image of exactly size. Channels of pixels with zero alpha are copied
// unchanged. Pixels the buffer does not cover stay transparent.
func Unpremultiply(buf document.RawBuffer, size model.Size) (*image.NRGBA, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("%w: output %dx%d", ErrInvalidSize, size.Width, size.Height)
	}
	if buf.Width < 0 || buf.Height < 0 || buf.Stride < buf.Width*4 {
		return nil, fmt.Errorf("%w: %dx%d stride %d", ErrInvalidBuffer, buf.Width, buf.Height, buf.Stride)
	}
	if buf.Height > 0 && len(buf.Pix) < (buf.Height-1)*buf.Stride+buf.Width*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d stride %d", ErrInvalidBuffer, len(buf.Pix), buf.Width, buf.Height, buf.Stride)
	}

	out := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	w := min(size.Width, buf.Width)
	h := min(size.Height, buf.Height)
	for y := 0; y < h; y++ {
		src := buf.Pix[y*buf.Stride : y*buf.Stride+w*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			b, g, r, a := src[i], src[i+1], src[i+2], src[i+3]
			if a != 0 {
				r = straight(r, a)
				g = straight(g, a)
				b = straight(b, a)
			}
			dst[i], dst[i+1], dst[i+2], dst[i+3] = r, g, b, a
		}
	}
	return out, nil
}

func straight(c, a uint8) uint8 {
	v := uint32(c) * 255 / uint32(a)
	if v > 255 {
		return 255
	}
	return uint8(v)
}
