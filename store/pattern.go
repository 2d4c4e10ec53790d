package store

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

// Attribute names persisted on a pattern document.
const (
	AttrTitle         = "title"
	AttrTimeFieldName = "timeFieldName"
	AttrFields        = "fields"
)

// Pattern is the object representing a named, versioned pattern document.
//
// Instances returned by Store.GetPattern are shared: the document cache owns
// the canonical in-memory representation and every caller holding the same id
// holds the same pointer. Mutating Title, TimeFieldName or Fields in place
// and then calling SavePattern is the supported write path. Version is
// mutated only by the store layer after a successful persisted write.
type Pattern struct {
	ID            string
	Version       string
	Title         string
	TimeFieldName string
	Fields        []*Field
}

// Projection is a reduced-attribute representation of a pattern used for
// list views, fetched in bulk without hydrating full documents.
type Projection struct {
	ID         string
	Attributes map[string]string
}

// Title returns the projection's title attribute.
func (p *Projection) Title() string {
	return p.Attributes[AttrTitle]
}

// PatternTitle pairs a pattern id with its title.
type PatternTitle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MakePattern is the construction request for a pattern. Title doubles as
// the wildcard expression handed to field discovery, and as the derived
// document key when ID is empty.
type MakePattern struct {
	ID            string
	Title         string
	TimeFieldName string
}

// attributes renders the pattern's persisted attribute map.
func (p *Pattern) attributes() (map[string]string, error) {
	encoded, err := encodeFields(p.Fields)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		AttrTitle:         p.Title,
		AttrTimeFieldName: p.TimeFieldName,
		AttrFields:        encoded,
	}, nil
}

// hydratePattern materializes a full pattern from its store record.
func hydratePattern(record *PatternRecord) (*Pattern, error) {
	fields, err := decodeFields(record.Attributes[AttrFields])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to hydrate pattern %s", record.ID)
	}
	return &Pattern{
		ID:            record.ID,
		Version:       record.Version,
		Title:         record.Attributes[AttrTitle],
		TimeFieldName: record.Attributes[AttrTimeFieldName],
		Fields:        fields,
	}, nil
}

// GetPattern returns the pattern for id. Repeated and concurrent calls for
// the same id resolve to the identical cached instance, with at most one
// store fetch per cache entry.
func (s *Store) GetPattern(ctx context.Context, id string) (*Pattern, error) {
	return s.documents.Get(ctx, id, func(ctx context.Context) (*Pattern, error) {
		record, err := s.driver.GetPattern(ctx, id)
		if err != nil {
			return nil, err
		}
		return hydratePattern(record)
	})
}

// MakePattern constructs a new pattern or reloads an existing one under the
// derived document key, discovers its fields, persists it, and registers the
// instance in the document cache. Every call performs its own
// discovery-and-save sequence; calling it twice with the same key yields two
// writes and two distinct version tokens.
func (s *Store) MakePattern(ctx context.Context, create *MakePattern) (*Pattern, error) {
	if create.Title == "" {
		return nil, errors.New("pattern title is required")
	}
	id := create.ID
	if id == "" {
		id = create.Title
	}

	fields, err := s.fieldSource.GetFieldsForWildcard(ctx, create.Title)
	if err != nil {
		if _, ok := AsStoreError(err); ok {
			return nil, err
		}
		return nil, NewDiscoveryFailed(create.Title, err)
	}

	pattern := &Pattern{
		ID:            id,
		Title:         create.Title,
		TimeFieldName: create.TimeFieldName,
		Fields:        fields,
	}
	attributes, err := pattern.attributes()
	if err != nil {
		return nil, err
	}

	var record *PatternRecord
	existing, err := s.driver.GetPattern(ctx, id)
	switch {
	case err == nil:
		record, err = s.driver.UpdatePattern(ctx, &UpdatePattern{
			Kind:       PatternKind,
			ID:         id,
			Attributes: attributes,
			Version:    existing.Version,
		})
	case IsNotFound(err):
		record, err = s.driver.CreatePattern(ctx, &CreatePattern{
			Kind:       PatternKind,
			ID:         id,
			Attributes: attributes,
		})
	}
	if err != nil {
		return nil, err
	}

	pattern.ID = record.ID
	pattern.Version = record.Version
	s.documents.Put(pattern)

	s.logger.Debug("pattern registered",
		slog.String("id", pattern.ID),
		slog.String("title", pattern.Title),
		slog.Int("fields", len(pattern.Fields)))
	return pattern, nil
}

// SavePattern persists the pattern's current attribute values under its held
// version token. On success the store-issued token is applied to the
// instance in place. On conflict the error is propagated without retry or
// merge and the in-memory token is left untouched, so the caller can decide
// to re-fetch and re-apply.
func (s *Store) SavePattern(ctx context.Context, pattern *Pattern) (*Pattern, error) {
	if pattern.ID == "" {
		return nil, errors.New("cannot save a pattern without an id")
	}
	attributes, err := pattern.attributes()
	if err != nil {
		return nil, err
	}

	record, err := s.driver.UpdatePattern(ctx, &UpdatePattern{
		Kind:       PatternKind,
		ID:         pattern.ID,
		Attributes: attributes,
		Version:    pattern.Version,
	})
	if err != nil {
		if IsConflict(err) {
			s.logger.Warn("pattern save rejected",
				slog.String("id", pattern.ID),
				slog.String("version", pattern.Version))
		}
		return nil, err
	}

	pattern.Version = record.Version
	return pattern, nil
}

// DeletePattern deletes the pattern from the store and drops it from both
// caches. A subsequent GetPattern re-fetches and yields a new instance.
func (s *Store) DeletePattern(ctx context.Context, id string) error {
	if err := s.driver.DeletePattern(ctx, id); err != nil {
		return err
	}
	s.documents.Delete(id)
	s.projections.Remove(id)
	return nil
}

// InvalidatePattern drops the cached instance for id so the next GetPattern
// re-fetches from the store.
func (s *Store) InvalidatePattern(id string) {
	s.documents.Invalidate(id)
}

// ListPatternIDs returns the ids of all patterns in the store.
func (s *Store) ListPatternIDs(ctx context.Context, forceRefresh bool) ([]string, error) {
	entries, err := s.projections.Entries(ctx, nil, forceRefresh, s.fetchProjections)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids, nil
}

// ListPatternTitles returns id/title pairs for all patterns in the store.
func (s *Store) ListPatternTitles(ctx context.Context, forceRefresh bool) ([]*PatternTitle, error) {
	entries, err := s.projections.Entries(ctx, nil, forceRefresh, s.fetchProjections)
	if err != nil {
		return nil, err
	}
	titles := make([]*PatternTitle, 0, len(entries))
	for _, entry := range entries {
		titles = append(titles, &PatternTitle{ID: entry.ID, Title: entry.Title()})
	}
	return titles, nil
}

// ListPatternFields returns projections restricted to the requested
// attribute subset. Attributes not present in the shared cache since the
// last refresh are simply absent; pass forceRefresh to fetch them.
func (s *Store) ListPatternFields(ctx context.Context, fields []string, forceRefresh bool) ([]*Projection, error) {
	entries, err := s.projections.Entries(ctx, fields, forceRefresh, s.fetchProjections)
	if err != nil {
		return nil, err
	}
	result := make([]*Projection, 0, len(entries))
	for _, entry := range entries {
		picked := make(map[string]string, len(fields))
		for _, field := range fields {
			if value, ok := entry.Attributes[field]; ok {
				picked[field] = value
			}
		}
		result = append(result, &Projection{ID: entry.ID, Attributes: picked})
	}
	return result, nil
}

// fetchProjections is the single bulk fetch shared by all list views.
func (s *Store) fetchProjections(ctx context.Context, fields []string) ([]*Projection, error) {
	return s.driver.FindPatterns(ctx, &FindPattern{
		Kind:   PatternKind,
		Fields: fields,
		Limit:  DefaultListLimit,
	})
}
