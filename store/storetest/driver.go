// Package storetest provides an in-memory driver implementing the versioned
// store contract, with call accounting for cache and service tests.
package storetest

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/fieldwork/patternstore/store"
)

type record struct {
	version    string
	attributes map[string]string
}

// Driver is an in-memory store.Driver and store.FieldCatalog. Version tokens
// are deterministic: every successful write appends "a" to the previous
// token, so a document seeded at "foo" moves to "fooa", then "fooaa".
type Driver struct {
	mu      sync.Mutex
	records map[string]*record
	fields  map[string][]*store.Field

	// GetDelay stalls every GetPattern call, widening the window in which
	// concurrent fetches for the same id must coalesce.
	GetDelay time.Duration

	// FieldErr, when set, fails every GetFieldsForWildcard call.
	FieldErr error
	// UpdateErr, when set, fails every UpdatePattern call.
	UpdateErr error

	findCalls   int
	getCalls    map[string]int
	createCalls int
	updateCalls int
	deleteCalls int
	fieldCalls  int
	lastFind    *store.FindPattern
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		records:  make(map[string]*record),
		fields:   make(map[string][]*store.Field),
		getCalls: make(map[string]int),
	}
}

// Seed inserts a record directly, bypassing call accounting.
func (d *Driver) Seed(id, version string, attributes map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if attributes == nil {
		attributes = map[string]string{}
	}
	d.records[id] = &record{version: version, attributes: attributes}
}

// Version returns the current version token stored for id.
func (d *Driver) Version(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rec, ok := d.records[id]; ok {
		return rec.version
	}
	return ""
}

func (d *Driver) Close() error { return nil }

func (d *Driver) Migrate(_ context.Context) error { return nil }

func (d *Driver) FindPatterns(_ context.Context, find *store.FindPattern) ([]*store.Projection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.findCalls++
	d.lastFind = find

	projections := make([]*store.Projection, 0, len(d.records))
	for id, rec := range d.records {
		if find.Limit > 0 && len(projections) >= find.Limit {
			break
		}
		picked := make(map[string]string, len(find.Fields))
		for _, field := range find.Fields {
			if value, ok := rec.attributes[field]; ok {
				picked[field] = value
			}
		}
		projections = append(projections, &store.Projection{ID: id, Attributes: picked})
	}
	return projections, nil
}

func (d *Driver) GetPattern(_ context.Context, id string) (*store.PatternRecord, error) {
	d.mu.Lock()
	d.getCalls[id]++
	rec, ok := d.records[id]
	var snapshot *store.PatternRecord
	if ok {
		snapshot = &store.PatternRecord{ID: id, Version: rec.version, Attributes: cloneAttributes(rec.attributes)}
	}
	delay := d.GetDelay
	d.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return nil, store.NewNotFound(id)
	}
	return snapshot, nil
}

func (d *Driver) CreatePattern(_ context.Context, create *store.CreatePattern) (*store.PatternRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.createCalls++
	id := create.ID
	if id == "" {
		id = create.Attributes[store.AttrTitle]
	}
	rec := &record{version: "a", attributes: cloneAttributes(create.Attributes)}
	d.records[id] = rec
	return &store.PatternRecord{ID: id, Version: rec.version, Attributes: cloneAttributes(rec.attributes)}, nil
}

func (d *Driver) UpdatePattern(_ context.Context, update *store.UpdatePattern) (*store.PatternRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.updateCalls++
	if d.UpdateErr != nil {
		return nil, d.UpdateErr
	}
	rec, ok := d.records[update.ID]
	if !ok {
		return nil, store.NewNotFound(update.ID)
	}
	if rec.version != update.Version {
		return nil, store.NewConflict(update.ID, update.Version)
	}
	rec.version += "a"
	rec.attributes = cloneAttributes(update.Attributes)
	return &store.PatternRecord{ID: update.ID, Version: rec.version, Attributes: cloneAttributes(rec.attributes)}, nil
}

func (d *Driver) DeletePattern(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deleteCalls++
	if _, ok := d.records[id]; !ok {
		return store.NewNotFound(id)
	}
	delete(d.records, id)
	return nil
}

// GetFieldsForWildcard returns the seeded fields of every source matching
// the wildcard expression.
func (d *Driver) GetFieldsForWildcard(_ context.Context, expression string) ([]*store.Field, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fieldCalls++
	if d.FieldErr != nil {
		return nil, d.FieldErr
	}

	seen := make(map[string]bool)
	var fields []*store.Field
	for source, sourceFields := range d.fields {
		matched, err := path.Match(expression, source)
		if err != nil || !matched {
			continue
		}
		for _, field := range sourceFields {
			if !seen[field.Name] {
				seen[field.Name] = true
				fields = append(fields, field)
			}
		}
	}
	return fields, nil
}

// UpsertFields seeds the field catalog for a concrete source.
func (d *Driver) UpsertFields(_ context.Context, source string, fields []*store.Field) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fields[source] = fields
	return nil
}

// FindCalls returns the number of bulk projection fetches issued.
func (d *Driver) FindCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.findCalls
}

// GetCalls returns the number of single-document fetches issued for id.
func (d *Driver) GetCalls(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getCalls[id]
}

// UpdateCalls returns the number of update writes issued.
func (d *Driver) UpdateCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateCalls
}

// CreateCalls returns the number of create writes issued.
func (d *Driver) CreateCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createCalls
}

// FieldCalls returns the number of discovery calls issued.
func (d *Driver) FieldCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fieldCalls
}

// LastFind returns the selector of the most recent bulk fetch.
func (d *Driver) LastFind() *store.FindPattern {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastFind
}

func cloneAttributes(attributes map[string]string) map[string]string {
	cloned := make(map[string]string, len(attributes))
	for key, value := range attributes {
		cloned[key] = value
	}
	return cloned
}

var (
	_ store.Driver       = (*Driver)(nil)
	_ store.FieldCatalog = (*Driver)(nil)
)
