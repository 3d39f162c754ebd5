package assets

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache remembers which assets have been loaded and deduplicates concurrent
// loads of the same URL. One Cache is shared by every tracker in the process;
// an entry lives while at least one tracker holds its URL.
type Cache struct {
	loader Loader
	group  singleflight.Group

	mu     sync.Mutex
	loaded map[string]struct{}
	refs   map[string]int
}

// NewCache creates a new asset cache
func NewCache(loader Loader) *Cache {
	return &Cache{
		loader: loader,
		loaded: make(map[string]struct{}),
		refs:   make(map[string]int),
	}
}

// Has reports whether url has already been loaded
func (c *Cache) Has(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.loaded[url]
	return ok
}

// Load loads url unless it is cached. Concurrent callers for the same URL share one load.
func (c *Cache) Load(ctx context.Context, url string) error {
	if c.Has(url) {
		return nil
	}

	_, err, _ := c.group.Do(url, func() (any, error) {
		if err := c.loader.Load(ctx, url); err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.refs[url] > 0 {
			c.loaded[url] = struct{}{}
		}
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// Acquire marks urls as wanted by one holder. Only acquired URLs are remembered after loading.
func (c *Cache) Acquire(urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range urls {
		c.refs[u]++
	}
}

// Release drops one hold on each of urls, evicting entries nobody holds
func (c *Cache) Release(urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range urls {
		if c.refs[u] <= 1 {
			delete(c.refs, u)
			delete(c.loaded, u)
			continue
		}
		c.refs[u]--
	}
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.loaded)
}
