package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldwork/patternstore/internal/profile"
	"github.com/fieldwork/patternstore/store"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	driver, err := NewDB(&profile.Profile{Mode: "dev", Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	db := driver.(*DB)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestPatternCRUD(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	created, err := db.CreatePattern(ctx, &store.CreatePattern{
		Kind: store.PatternKind,
		ID:   "logs-*",
		Attributes: map[string]string{
			store.AttrTitle:         "logs-*",
			store.AttrTimeFieldName: "@timestamp",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "logs-*", created.ID)
	require.NotEmpty(t, created.Version)

	got, err := db.GetPattern(ctx, "logs-*")
	require.NoError(t, err)
	assert.Equal(t, created.Version, got.Version)
	assert.Equal(t, "logs-*", got.Attributes[store.AttrTitle])
	assert.Equal(t, "@timestamp", got.Attributes[store.AttrTimeFieldName])

	updated, err := db.UpdatePattern(ctx, &store.UpdatePattern{
		Kind:       store.PatternKind,
		ID:         "logs-*",
		Attributes: map[string]string{store.AttrTitle: "logs-renamed-*"},
		Version:    created.Version,
	})
	require.NoError(t, err)
	assert.NotEqual(t, created.Version, updated.Version)

	require.NoError(t, db.DeletePattern(ctx, "logs-*"))

	_, err = db.GetPattern(ctx, "logs-*")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestGetPattern_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetPattern(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestUpdatePattern_StaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	created, err := db.CreatePattern(ctx, &store.CreatePattern{
		ID:         "logs-*",
		Attributes: map[string]string{store.AttrTitle: "logs-*"},
	})
	require.NoError(t, err)

	fresh, err := db.UpdatePattern(ctx, &store.UpdatePattern{
		ID:         "logs-*",
		Attributes: map[string]string{store.AttrTitle: "logs-*"},
		Version:    created.Version,
	})
	require.NoError(t, err)

	// A second write presenting the original token must be rejected.
	_, err = db.UpdatePattern(ctx, &store.UpdatePattern{
		ID:         "logs-*",
		Attributes: map[string]string{store.AttrTitle: "logs-hijacked-*"},
		Version:    created.Version,
	})
	require.Error(t, err)
	assert.True(t, store.IsConflict(err))

	storeErr, ok := store.AsStoreError(err)
	require.True(t, ok)
	assert.Equal(t, 409, storeErr.Status)

	// The stored document is untouched by the rejected write.
	got, err := db.GetPattern(ctx, "logs-*")
	require.NoError(t, err)
	assert.Equal(t, fresh.Version, got.Version)
	assert.Equal(t, "logs-*", got.Attributes[store.AttrTitle])
}

func TestUpdatePattern_MissingDocumentIsNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.UpdatePattern(context.Background(), &store.UpdatePattern{
		ID:         "missing",
		Attributes: map[string]string{},
		Version:    "whatever",
	})
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func TestFindPatterns_ProjectsRequestedFields(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for _, title := range []string{"logs-*", "metrics-*"} {
		_, err := db.CreatePattern(ctx, &store.CreatePattern{
			ID: title,
			Attributes: map[string]string{
				store.AttrTitle:         title,
				store.AttrTimeFieldName: "@timestamp",
			},
		})
		require.NoError(t, err)
	}

	projections, err := db.FindPatterns(ctx, &store.FindPattern{
		Fields: []string{store.AttrTitle},
		Limit:  store.DefaultListLimit,
	})
	require.NoError(t, err)
	require.Len(t, projections, 2)
	for _, projection := range projections {
		assert.Equal(t, projection.ID, projection.Attributes[store.AttrTitle])
		assert.NotContains(t, projection.Attributes, store.AttrTimeFieldName)
	}
}

func TestFieldCatalog(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.UpsertFields(ctx, "logs-2026.08.22", []*store.Field{
		{Name: "message", Type: "string", Searchable: true},
		{Name: "level", Type: "string", Searchable: true, Aggregatable: true},
	}))
	require.NoError(t, db.UpsertFields(ctx, "logs-2026.08.23", []*store.Field{
		{Name: "message", Type: "string", Searchable: true},
		{Name: "trace_id", Type: "string", Searchable: true},
	}))
	require.NoError(t, db.UpsertFields(ctx, "metrics-2026.08.23", []*store.Field{
		{Name: "value", Type: "number", Aggregatable: true},
	}))

	fields, err := db.GetFieldsForWildcard(ctx, "logs-*")
	require.NoError(t, err)

	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.Name)
	}
	assert.ElementsMatch(t, []string{"message", "level", "trace_id"}, names)

	// Upsert replaces a source's descriptors wholesale.
	require.NoError(t, db.UpsertFields(ctx, "logs-2026.08.23", []*store.Field{
		{Name: "message", Type: "string", Searchable: true},
	}))
	fields, err = db.GetFieldsForWildcard(ctx, "logs-*")
	require.NoError(t, err)
	assert.Len(t, fields, 2)

	// No matching source yields an empty result, not an error.
	fields, err = db.GetFieldsForWildcard(ctx, "traces-*")
	require.NoError(t, err)
	assert.Empty(t, fields)
}
