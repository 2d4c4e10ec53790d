package store

import (
	"context"
	"sort"
	"sync"
)

// ProjectionCache caches lightweight pattern projections fetched in bulk.
// One shared fetch serves the id, title and field list views; the cache is
// replaced wholesale on refresh. The requested field set accumulates between
// refreshes so a refresh fetches the union of everything asked for so far,
// and the title attribute is always included.
type ProjectionCache struct {
	mu      sync.Mutex
	entries []*Projection
	fields  map[string]struct{}
	loaded  bool
}

// NewProjectionCache creates an empty projection cache.
func NewProjectionCache() *ProjectionCache {
	return &ProjectionCache{
		fields: map[string]struct{}{AttrTitle: {}},
	}
}

// Entries returns the cached projections, fetching them when the cache is
// cold or forceRefresh is set. Absent refreshes, repeated calls cost at most
// one fetch regardless of which accessor triggered it.
func (c *ProjectionCache) Entries(ctx context.Context, fields []string, forceRefresh bool, fetch func(ctx context.Context, fields []string) ([]*Projection, error)) ([]*Projection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, field := range fields {
		c.fields[field] = struct{}{}
	}

	if !c.loaded || forceRefresh {
		entries, err := fetch(ctx, c.fieldList())
		if err != nil {
			return nil, err
		}
		c.entries = entries
		c.loaded = true
	}

	result := make([]*Projection, len(c.entries))
	copy(result, c.entries)
	return result, nil
}

// Remove drops the projection for id without invalidating the rest of the
// cache. Used after the underlying document is deleted.
func (c *ProjectionCache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return
	}
	entries := c.entries[:0]
	for _, entry := range c.entries {
		if entry.ID != id {
			entries = append(entries, entry)
		}
	}
	c.entries = entries
}

// Reset clears the cache entirely; the next access re-fetches.
func (c *ProjectionCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = nil
	c.loaded = false
	c.fields = map[string]struct{}{AttrTitle: {}}
}

// fieldList renders the accumulated field set in stable order.
func (c *ProjectionCache) fieldList() []string {
	fields := make([]string, 0, len(c.fields))
	for field := range c.fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
