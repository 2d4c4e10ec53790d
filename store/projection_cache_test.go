package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwork/patternstore/store"
)

func projectionFetcher(calls *int, lastFields *[]string, entries []*store.Projection) func(context.Context, []string) ([]*store.Projection, error) {
	return func(_ context.Context, fields []string) ([]*store.Projection, error) {
		*calls++
		*lastFields = fields
		return entries, nil
	}
}

func TestProjectionCache_SingleFetchAcrossAccessors(t *testing.T) {
	cache := store.NewProjectionCache()
	ctx := context.Background()

	var calls int
	var lastFields []string
	fetch := projectionFetcher(&calls, &lastFields, []*store.Projection{
		{ID: "logs-*", Attributes: map[string]string{store.AttrTitle: "logs-*"}},
		{ID: "metrics-*", Attributes: map[string]string{store.AttrTitle: "metrics-*"}},
	})

	for i := 0; i < 3; i++ {
		entries, err := cache.Entries(ctx, nil, false, fetch)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	}

	assert.Equal(t, 1, calls)
	assert.Contains(t, lastFields, store.AttrTitle)
}

func TestProjectionCache_ForceRefreshReplacesWholesale(t *testing.T) {
	cache := store.NewProjectionCache()
	ctx := context.Background()

	var calls int
	var lastFields []string
	fetch := projectionFetcher(&calls, &lastFields, []*store.Projection{
		{ID: "logs-*", Attributes: map[string]string{store.AttrTitle: "logs-*"}},
	})

	_, err := cache.Entries(ctx, nil, false, fetch)
	require.NoError(t, err)

	refreshed := projectionFetcher(&calls, &lastFields, []*store.Projection{
		{ID: "metrics-*", Attributes: map[string]string{store.AttrTitle: "metrics-*"}},
	})
	entries, err := cache.Entries(ctx, nil, true, refreshed)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	require.Len(t, entries, 1)
	assert.Equal(t, "metrics-*", entries[0].ID)
}

func TestProjectionCache_FieldUnionAccumulates(t *testing.T) {
	cache := store.NewProjectionCache()
	ctx := context.Background()

	var calls int
	var lastFields []string
	fetch := projectionFetcher(&calls, &lastFields, nil)

	_, err := cache.Entries(ctx, []string{"timeFieldName"}, false, fetch)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"timeFieldName", store.AttrTitle}, lastFields)

	// A later caller's field names join the union used by the next refresh.
	_, err = cache.Entries(ctx, []string{"fields"}, true, fetch)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fields", "timeFieldName", store.AttrTitle}, lastFields)
	assert.Equal(t, 2, calls)
}

func TestProjectionCache_RemoveDropsSingleEntry(t *testing.T) {
	cache := store.NewProjectionCache()
	ctx := context.Background()

	var calls int
	var lastFields []string
	fetch := projectionFetcher(&calls, &lastFields, []*store.Projection{
		{ID: "logs-*", Attributes: map[string]string{store.AttrTitle: "logs-*"}},
		{ID: "metrics-*", Attributes: map[string]string{store.AttrTitle: "metrics-*"}},
	})

	_, err := cache.Entries(ctx, nil, false, fetch)
	require.NoError(t, err)

	cache.Remove("logs-*")

	entries, err := cache.Entries(ctx, nil, false, fetch)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "metrics-*", entries[0].ID)
	assert.Equal(t, 1, calls)
}

func TestProjectionCache_ResetForcesRefetch(t *testing.T) {
	cache := store.NewProjectionCache()
	ctx := context.Background()

	var calls int
	var lastFields []string
	fetch := projectionFetcher(&calls, &lastFields, nil)

	_, err := cache.Entries(ctx, nil, false, fetch)
	require.NoError(t, err)

	cache.Reset()

	_, err = cache.Entries(ctx, nil, false, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
