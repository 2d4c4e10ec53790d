package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwork/patternstore/store"
)

func TestDocumentCache_CoalescesConcurrentLoads(t *testing.T) {
	cache := store.NewDocumentCache()
	ctx := context.Background()

	var loads atomic.Int32
	load := func(_ context.Context) (*store.Pattern, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &store.Pattern{ID: "logs-*", Version: "v1", Title: "logs-*"}, nil
	}

	const callers = 16
	results := make([]*store.Pattern, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Get(ctx, "logs-*", load)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 1, cache.Len())
}

func TestDocumentCache_FailedLoadCachesNothing(t *testing.T) {
	cache := store.NewDocumentCache()
	ctx := context.Background()

	var loads atomic.Int32
	failing := func(_ context.Context) (*store.Pattern, error) {
		loads.Add(1)
		return nil, errors.New("store unreachable")
	}

	_, err := cache.Get(ctx, "logs-*", failing)
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	// The pending flight settled and was cleared, so the next call loads
	// again rather than observing the failed result.
	succeeding := func(_ context.Context) (*store.Pattern, error) {
		loads.Add(1)
		return &store.Pattern{ID: "logs-*", Version: "v1"}, nil
	}
	pattern, err := cache.Get(ctx, "logs-*", succeeding)
	require.NoError(t, err)
	assert.Equal(t, "v1", pattern.Version)
	assert.Equal(t, int32(2), loads.Load())
}

func TestDocumentCache_InvalidateForcesReload(t *testing.T) {
	cache := store.NewDocumentCache()
	ctx := context.Background()

	generation := 0
	load := func(_ context.Context) (*store.Pattern, error) {
		generation++
		return &store.Pattern{ID: "logs-*", Version: "v1"}, nil
	}

	first, err := cache.Get(ctx, "logs-*", load)
	require.NoError(t, err)

	again, err := cache.Get(ctx, "logs-*", load)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, generation)

	cache.Invalidate("logs-*")

	reloaded, err := cache.Get(ctx, "logs-*", load)
	require.NoError(t, err)
	assert.NotSame(t, first, reloaded)
	assert.Equal(t, 2, generation)
}

func TestDocumentCache_PutReplacesEntry(t *testing.T) {
	cache := store.NewDocumentCache()
	ctx := context.Background()

	original := &store.Pattern{ID: "logs-*", Version: "v1"}
	cache.Put(original)

	replacement := &store.Pattern{ID: "logs-*", Version: "v2"}
	cache.Put(replacement)

	got, err := cache.Get(ctx, "logs-*", func(_ context.Context) (*store.Pattern, error) {
		t.Fatal("load must not be called for a cached id")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Same(t, replacement, got)
}

func TestDocumentCache_DeleteRemovesEntry(t *testing.T) {
	cache := store.NewDocumentCache()

	cache.Put(&store.Pattern{ID: "logs-*", Version: "v1"})
	require.Equal(t, 1, cache.Len())

	cache.Delete("logs-*")
	assert.Equal(t, 0, cache.Len())
}
