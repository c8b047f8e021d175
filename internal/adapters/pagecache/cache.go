// Package pagecache memoizes rendered page bitmaps.
//
// Entries are keyed by page index and render size, so a bitmap rendered for
// one viewport is never served for another. A positive capacity bounds the
// cache with LRU eviction; otherwise it grows until InvalidateAll.
package pagecache

import (
	"context"
	"fmt"
	"image"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/pagecue/internal/domain/model"
	"github.com/okian/pagecue/pkg/logger"
	"github.com/okian/pagecue/pkg/metrics"
)

// Invalidation reasons reported to metrics.
const (
	ReasonDocument = "document"
	ReasonResize   = "resize"
	ReasonManual   = "manual"
)

// Key identifies one rendered bitmap.
type Key struct {
	Page   int
	Width  int
	Height int
}

// KeyFor builds the key for page rendered at size.
func KeyFor(page int, size model.Size) Key {
	return Key{Page: page, Width: size.Width, Height: size.Height}
}

func (k Key) String() string {
	return fmt.Sprintf("%d@%dx%d", k.Page, k.Width, k.Height)
}

// Cache stores straight-alpha bitmaps. Stored images must not be mutated by
// callers.
type Cache struct {
	mu       sync.Mutex
	capacity int
	bounded  *lru.Cache[Key, *image.NRGBA]
	entries  map[Key]*image.NRGBA
	purging  bool
	log      logger.Logger
}

// New creates a cache. It fails only if the LRU cannot be built.
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.capacity > 0 {
		bounded, err := lru.NewWithEvict[Key, *image.NRGBA](c.capacity, c.onEvict)
		if err != nil {
			return nil, fmt.Errorf("page cache: %w", err)
		}
		c.bounded = bounded
	} else {
		c.capacity = 0
		c.entries = make(map[Key]*image.NRGBA)
	}
	return c, nil
}

// onEvict runs synchronously inside lru calls made under c.mu.
func (c *Cache) onEvict(key Key, _ *image.NRGBA) {
	if c.purging {
		return
	}
	metrics.RecordCacheEviction()
	c.log.Debug(context.Background(), "page bitmap evicted", logger.String("key", key.String()))
}

// Get returns the bitmap stored under key.
func (c *Cache) Get(key Key) (*image.NRGBA, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		img *image.NRGBA
		ok  bool
	)
	if c.bounded != nil {
		img, ok = c.bounded.Get(key)
	} else {
		img, ok = c.entries[key]
	}
	if ok {
		metrics.RecordCacheHit()
	} else {
		metrics.RecordCacheMiss()
	}
	return img, ok
}

// Put stores or overwrites the bitmap for key. Nil images are ignored.
func (c *Cache) Put(key Key, img *image.NRGBA) {
	if img == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bounded != nil {
		c.bounded.Add(key, img)
	} else {
		c.entries[key] = img
	}
	metrics.UpdateCacheEntries(c.lenLocked())
}

// InvalidateAll drops every entry and returns how many were removed.
func (c *Cache) InvalidateAll(ctx context.Context, reason string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.lenLocked()
	if c.bounded != nil {
		c.purging = true
		c.bounded.Purge()
		c.purging = false
	} else {
		clear(c.entries)
	}
	metrics.RecordCacheInvalidation(reason)
	metrics.UpdateCacheEntries(0)
	c.log.Debug(ctx, "page cache invalidated", logger.String("reason", reason), logger.Int("dropped", n))
	return n
}

// Len returns the number of stored bitmaps.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lenLocked()
}

// Capacity returns the bound, or 0 when unbounded.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Bounded reports whether entries are evicted by capacity.
func (c *Cache) Bounded() bool {
	return c.bounded != nil
}

func (c *Cache) lenLocked() int {
	if c.bounded != nil {
		return c.bounded.Len()
	}
	return len(c.entries)
}
