// Package cache provides a small bounded LRU cache for global-ID lookups:
// an LRU wrapping hashicorp/golang-lru with hit/miss counters. The plan
// executor resolves the same handful of object IDs repeatedly while
// running a multi-step plan; caching Graph.FindByGlobalID's walk result
// avoids re-walking the whole graph for every step that touches an
// already-seen object.
package cache

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// NodeCache is a thread-safe, size-bounded cache from global ID to an
// arbitrary graph node value, with hit/miss tracking.
type NodeCache[V any] struct {
	cache *lru.Cache[string, V]
	mu    sync.RWMutex

	hits   uint64
	misses uint64
}

// New creates a NodeCache holding at most size entries.
func New[V any](size int) (*NodeCache[V], error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[string, V](size)
	if err != nil {
		return nil, err
	}
	return &NodeCache[V]{cache: c}, nil
}

// Get returns the cached value for key, tracking the hit or miss.
func (c *NodeCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.cache.Get(key)
	if ok {
		atomic.AddUint64(&c.hits, 1)
	} else {
		atomic.AddUint64(&c.misses, 1)
	}
	return v, ok
}

// Set stores value under key, evicting the least recently used entry if
// the cache is at capacity.
func (c *NodeCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, value)
}

// Invalidate purges every cached entry. Call this whenever the underlying
// graph a cache was built over is replaced (a new scan cycle, a new plan).
func (c *NodeCache[V]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}

// Stats reports cumulative hit/miss counts and current occupancy.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

func (c *NodeCache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:    atomic.LoadUint64(&c.hits),
		Misses:  atomic.LoadUint64(&c.misses),
		Entries: c.cache.Len(),
	}
}
