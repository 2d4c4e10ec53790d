package store

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DocumentCache keeps at most one live Pattern instance per id. A hit always
// returns the same object reference for the lifetime of the entry, so every
// holder of an id observes the same in-memory document. Entries are removed
// only by explicit invalidation or deletion; this is a correctness cache, not
// a memory-bounded one.
type DocumentCache struct {
	mu       sync.RWMutex
	patterns map[string]*Pattern

	// group coalesces concurrent fetches for the same uncached id into a
	// single in-flight request; the pending entry is cleared once it settles.
	group singleflight.Group
}

// NewDocumentCache creates an empty document cache.
func NewDocumentCache() *DocumentCache {
	return &DocumentCache{
		patterns: make(map[string]*Pattern),
	}
}

// Get returns the cached instance for id, or runs load exactly once to
// hydrate it. Concurrent calls for the same uncached id share one load and
// receive the identical instance. A failed load caches nothing.
func (c *DocumentCache) Get(ctx context.Context, id string, load func(ctx context.Context) (*Pattern, error)) (*Pattern, error) {
	c.mu.RLock()
	pattern, ok := c.patterns[id]
	c.mu.RUnlock()
	if ok {
		return pattern, nil
	}

	value, err, _ := c.group.Do(id, func() (any, error) {
		// A concurrent caller may have populated the entry between the
		// cache miss and this flight starting.
		c.mu.RLock()
		pattern, ok := c.patterns[id]
		c.mu.RUnlock()
		if ok {
			return pattern, nil
		}

		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.patterns[id] = loaded
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Pattern), nil
}

// Put registers pattern under its id, replacing any existing entry.
func (c *DocumentCache) Put(pattern *Pattern) {
	c.mu.Lock()
	c.patterns[pattern.ID] = pattern
	c.mu.Unlock()
}

// Invalidate removes the entry for id; the next Get re-fetches.
func (c *DocumentCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.patterns, id)
	c.mu.Unlock()
}

// Delete removes the entry for id after the underlying document has been
// deleted from the store.
func (c *DocumentCache) Delete(id string) {
	c.Invalidate(id)
}

// Len returns the number of cached instances.
func (c *DocumentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.patterns)
}
