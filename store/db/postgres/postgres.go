package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
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

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

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
	attributes JSONB NOT NULL DEFAULT '{}',
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS field_catalog (
	source TEXT NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	searchable BOOLEAN NOT NULL DEFAULT FALSE,
	aggregatable BOOLEAN NOT NULL DEFAULT FALSE,
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
