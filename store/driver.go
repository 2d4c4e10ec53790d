package store

import (
	"context"
)

// PatternKind is the document type tag presented to the store on writes.
const PatternKind = "pattern"

// DefaultListLimit bounds every bulk projection fetch issued by the
// projection cache.
const DefaultListLimit = 10000

// PatternRecord is the raw store representation of a pattern document.
type PatternRecord struct {
	ID         string
	Version    string
	Attributes map[string]string
}

// FindPattern is the selector for bulk projection fetches. Fields names the
// attribute subset to materialize; Limit caps the page size.
type FindPattern struct {
	Kind   string
	Fields []string
	Limit  int
}

// CreatePattern is the create request for a pattern document.
type CreatePattern struct {
	Kind string
	// ID is optional; the driver assigns one when empty.
	ID         string
	Attributes map[string]string
}

// UpdatePattern is the update request for a pattern document. Version is the
// token the caller last observed; the driver rejects the write with a
// conflict when it no longer matches.
type UpdatePattern struct {
	Kind       string
	ID         string
	Attributes map[string]string
	Version    string
}

// Driver is the versioned object store consumed by the pattern store. Every
// successful write issues a fresh version token; tokens are opaque and
// comparable only for equality.
type Driver interface {
	Close() error

	// Migrate brings the underlying schema up to date.
	Migrate(ctx context.Context) error

	// FindPatterns performs a bulk projection fetch.
	FindPatterns(ctx context.Context, find *FindPattern) ([]*Projection, error)

	// GetPattern fetches a single record, failing with a not-found error
	// when the id is absent.
	GetPattern(ctx context.Context, id string) (*PatternRecord, error)

	// CreatePattern persists a new record and returns it with its assigned
	// id and initial version token.
	CreatePattern(ctx context.Context, create *CreatePattern) (*PatternRecord, error)

	// UpdatePattern persists new attribute values, failing with a conflict
	// error when the presented version token is stale.
	UpdatePattern(ctx context.Context, update *UpdatePattern) (*PatternRecord, error)

	// DeletePattern removes a record, failing with a not-found error when
	// the id is absent.
	DeletePattern(ctx context.Context, id string) error
}
