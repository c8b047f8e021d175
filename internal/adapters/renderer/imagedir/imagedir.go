// Package imagedir renders documents made of page images.
//
// A document is either a single image file (one page) or a directory whose
// image files, sorted by name, are the pages. Pages are scaled with a
// Catmull-Rom filter and handed back premultiplied in the ARGB32 layout the
// rasterizer expects.
package imagedir

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/okian/pagecue/internal/domain/document"
	"github.com/okian/pagecue/pkg/logger"
)

var extensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp"}

// Opener opens image documents.
type Opener struct {
	sourceDPI float64
	log       logger.Logger
}

var _ document.Opener = (*Opener)(nil)

// New creates an Opener.
func New(opts ...Option) *Opener {
	o := &Opener{
		sourceDPI: DefaultSourceDPI,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Supported reports whether path has an image extension this package decodes.
func Supported(path string) bool {
	return slices.Contains(extensions, strings.ToLower(filepath.Ext(path)))
}

type page struct {
	path   string
	width  int
	height int
}

type imageDoc struct {
	pages     []page
	sourceDPI float64
}

// Open reads page dimensions without decoding pixel data.
func (o *Opener) Open(ctx context.Context, path string) (document.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", document.ErrLoad, err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", document.ErrLoad, err)
		}
		for _, e := range entries {
			if !e.IsDir() && Supported(e.Name()) {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		slices.Sort(files)
	} else {
		if !Supported(path) {
			return nil, fmt.Errorf("%w: unsupported file type %q", document.ErrLoad, filepath.Ext(path))
		}
		files = []string{path}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no page images in %s", document.ErrLoad, path)
	}

	doc := &imageDoc{sourceDPI: o.sourceDPI, pages: make([]page, 0, len(files))}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", document.ErrLoad, err)
		}
		cfg, err := decodeConfig(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", document.ErrLoad, filepath.Base(f), err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 {
			return nil, fmt.Errorf("%w: %s: empty image", document.ErrLoad, filepath.Base(f))
		}
		doc.pages = append(doc.pages, page{path: f, width: cfg.Width, height: cfg.Height})
	}
	o.log.Info(ctx, "document opened", logger.String("path", path), logger.Int("pages", len(doc.pages)))
	return doc, nil
}

func decodeConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	return cfg, err
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func (d *imageDoc) PageCount() int {
	return len(d.pages)
}

func (d *imageDoc) PageSize(index int) (document.PageSize, error) {
	if index < 0 || index >= len(d.pages) {
		return document.PageSize{}, fmt.Errorf("%w: %d of %d", document.ErrPageRange, index, len(d.pages))
	}
	p := d.pages[index]
	return document.PageSize{
		Width:  float64(p.width) * 72 / d.sourceDPI,
		Height: float64(p.height) * 72 / d.sourceDPI,
	}, nil
}

func (d *imageDoc) RenderPage(ctx context.Context, index int, scale float64) (document.RawBuffer, error) {
	size, err := d.PageSize(index)
	if err != nil {
		return document.RawBuffer{}, err
	}
	if scale <= 0 {
		return document.RawBuffer{}, fmt.Errorf("invalid scale %g", scale)
	}
	if err := ctx.Err(); err != nil {
		return document.RawBuffer{}, err
	}

	src, err := decodeImage(d.pages[index].path)
	if err != nil {
		return document.RawBuffer{}, fmt.Errorf("decode %s: %w", filepath.Base(d.pages[index].path), err)
	}

	w := max(int(math.Round(size.Width*scale)), 1)
	h := max(int(math.Round(size.Height*scale)), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return toARGB32(dst), nil
}

func (d *imageDoc) Close() error {
	d.pages = nil
	return nil
}

// toARGB32 reorders premultiplied RGBA bytes into little-endian ARGB words.
func toARGB32(img *image.RGBA) document.RawBuffer {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	stride := w * 4
	pix := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+stride]
		dst := pix[y*stride : (y+1)*stride]
		for i := 0; i < stride; i += 4 {
			dst[i] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i]
			dst[i+3] = src[i+3]
		}
	}
	return document.RawBuffer{Width: w, Height: h, Stride: stride, Pix: pix}
}
