package sqlite

import (
	"context"
	"database/sql"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"
	"github.com/pkg/errors"

	"github.com/fieldwork/patternstore/internal/profile"
	"github.com/fieldwork/patternstore/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

var (
	_ store.Driver       = (*DB)(nil)
	_ store.FieldCatalog = (*DB)(nil)
)

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("sqlite", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// SQLite serializes writers; a single connection also keeps in-memory
	// DSNs on one database instead of one per pooled connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{
		db:      db,
		profile: profile,
	}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const latestSchema = `
CREATE TABLE IF NOT EXISTS pattern (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL DEFAULT 'pattern',
	version TEXT NOT NULL,
	attributes TEXT NOT NULL DEFAULT '{}',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS field_catalog (
	source TEXT NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	searchable INTEGER NOT NULL DEFAULT 0,
	aggregatable INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (source, name)
);
`

// Migrate creates the schema when it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to migrate schema")
	}
	return nil
}
