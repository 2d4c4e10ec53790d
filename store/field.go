package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Field describes a single typed attribute of the data a pattern matches.
type Field struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Searchable   bool   `json:"searchable"`
	Aggregatable bool   `json:"aggregatable"`
}

// FieldSource discovers the fields available for a wildcard expression.
// Discovery may legitimately return an empty list.
type FieldSource interface {
	GetFieldsForWildcard(ctx context.Context, expression string) ([]*Field, error)
}

// FieldCatalog is a FieldSource whose field descriptors can be seeded per
// concrete source stream.
type FieldCatalog interface {
	FieldSource

	UpsertFields(ctx context.Context, source string, fields []*Field) error
}

// encodeFields serializes a field list into the pattern's fields attribute.
func encodeFields(fields []*Field) (string, error) {
	if len(fields) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode fields")
	}
	return string(raw), nil
}

// decodeFields parses the fields attribute back into a field list.
func decodeFields(raw string) ([]*Field, error) {
	if raw == "" {
		return nil, nil
	}
	var fields []*Field
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, errors.Wrap(err, "failed to decode fields")
	}
	return fields, nil
}
