package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/fieldwork/patternstore/store"
)

func (d *DB) FindPatterns(ctx context.Context, find *store.FindPattern) ([]*store.Projection, error) {
	kind := find.Kind
	if kind == "" {
		kind = store.PatternKind
	}
	limit := find.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	query := `SELECT id, attributes FROM pattern WHERE kind = ` + placeholder(1) + ` ORDER BY id LIMIT ` + placeholder(2)
	rows, err := d.db.QueryContext(ctx, query, kind, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find patterns")
	}
	defer rows.Close()

	projections := make([]*store.Projection, 0)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to scan pattern projection")
		}
		attributes, err := unmarshalAttributes(raw)
		if err != nil {
			return nil, err
		}
		picked := make(map[string]string, len(find.Fields))
		for _, field := range find.Fields {
			if value, ok := attributes[field]; ok {
				picked[field] = value
			}
		}
		projections = append(projections, &store.Projection{ID: id, Attributes: picked})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate pattern projections")
	}

	return projections, nil
}

func (d *DB) GetPattern(ctx context.Context, id string) (*store.PatternRecord, error) {
	var version, raw string
	err := d.db.QueryRowContext(ctx, `SELECT version, attributes FROM pattern WHERE id = `+placeholder(1), id).Scan(&version, &raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.NewNotFound(id)
		}
		return nil, errors.Wrapf(err, "failed to get pattern %s", id)
	}

	attributes, err := unmarshalAttributes(raw)
	if err != nil {
		return nil, err
	}
	return &store.PatternRecord{ID: id, Version: version, Attributes: attributes}, nil
}

func (d *DB) CreatePattern(ctx context.Context, create *store.CreatePattern) (*store.PatternRecord, error) {
	id := create.ID
	if id == "" {
		id = uuid.NewString()
	}
	kind := create.Kind
	if kind == "" {
		kind = store.PatternKind
	}

	raw, err := marshalAttributes(create.Attributes)
	if err != nil {
		return nil, err
	}

	version := shortuuid.New()
	now := time.Now().Unix()
	stmt := `INSERT INTO pattern (id, kind, version, attributes, created_ts, updated_ts) VALUES (` + placeholders(6) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, id, kind, version, raw, now, now); err != nil {
		return nil, errors.Wrapf(err, "failed to create pattern %s", id)
	}

	return &store.PatternRecord{ID: id, Version: version, Attributes: create.Attributes}, nil
}

func (d *DB) UpdatePattern(ctx context.Context, update *store.UpdatePattern) (*store.PatternRecord, error) {
	raw, err := marshalAttributes(update.Attributes)
	if err != nil {
		return nil, err
	}

	// Compare-and-swap on the version column: the write lands only when the
	// presented token still matches the stored one.
	version := shortuuid.New()
	stmt := `UPDATE pattern SET attributes = ` + placeholder(1) + `, version = ` + placeholder(2) + `, updated_ts = ` + placeholder(3) +
		` WHERE id = ` + placeholder(4) + ` AND version = ` + placeholder(5)
	result, err := d.db.ExecContext(ctx, stmt, raw, version, time.Now().Unix(), update.ID, update.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to update pattern %s", update.ID)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		var current string
		err := d.db.QueryRowContext(ctx, `SELECT version FROM pattern WHERE id = `+placeholder(1), update.ID).Scan(&current)
		if err == sql.ErrNoRows {
			return nil, store.NewNotFound(update.ID)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to check pattern %s after rejected update", update.ID)
		}
		return nil, store.NewConflict(update.ID, update.Version)
	}

	return &store.PatternRecord{ID: update.ID, Version: version, Attributes: update.Attributes}, nil
}

func (d *DB) DeletePattern(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM pattern WHERE id = `+placeholder(1), id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete pattern %s", id)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return store.NewNotFound(id)
	}
	return nil
}
