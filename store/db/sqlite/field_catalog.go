package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/fieldwork/patternstore/store"
)

// GetFieldsForWildcard merges the catalogued fields of every source matching
// the wildcard expression. The first source to define a field name wins.
func (d *DB) GetFieldsForWildcard(ctx context.Context, expression string) ([]*store.Field, error) {
	query := `SELECT name, type, searchable, aggregatable FROM field_catalog WHERE source LIKE ` + placeholder(1) + ` ESCAPE '\' ORDER BY source, name`
	rows, err := d.db.QueryContext(ctx, query, wildcardToLike(expression))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to discover fields for %q", expression)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var fields []*store.Field
	for rows.Next() {
		field := &store.Field{}
		if err := rows.Scan(&field.Name, &field.Type, &field.Searchable, &field.Aggregatable); err != nil {
			return nil, errors.Wrap(err, "failed to scan field descriptor")
		}
		if seen[field.Name] {
			continue
		}
		seen[field.Name] = true
		fields = append(fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate field descriptors")
	}

	return fields, nil
}

// UpsertFields replaces the catalogued field descriptors of a source.
func (d *DB) UpsertFields(ctx context.Context, source string, fields []*store.Field) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM field_catalog WHERE source = `+placeholder(1), source); err != nil {
		return errors.Wrapf(err, "failed to clear field catalog for %s", source)
	}

	stmt := `INSERT INTO field_catalog (source, name, type, searchable, aggregatable) VALUES (` + placeholders(5) + `)`
	for _, field := range fields {
		if _, err := tx.ExecContext(ctx, stmt, source, field.Name, field.Type, field.Searchable, field.Aggregatable); err != nil {
			return errors.Wrapf(err, "failed to upsert field %s for %s", field.Name, source)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit field catalog")
	}
	return nil
}
