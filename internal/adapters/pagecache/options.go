package pagecache

import "github.com/okian/pagecue/pkg/logger"

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithCapacity bounds the cache to n bitmaps with least-recently-used
// eviction. n <= 0 keeps every bitmap until InvalidateAll.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		c.capacity = n
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}
