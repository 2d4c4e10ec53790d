package db

import (
	"github.com/pkg/errors"

	"github.com/fieldwork/patternstore/internal/profile"
	"github.com/fieldwork/patternstore/store"
	"github.com/fieldwork/patternstore/store/db/postgres"
	"github.com/fieldwork/patternstore/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// SQLite backs single-node and development setups; PostgreSQL backs shared
// deployments where several processes race on the same documents and the
// version compare-and-swap actually earns its keep.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
