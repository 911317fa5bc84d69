package db

import (
	"github.com/pkg/errors"

	"github.com/hanroad/hanroad/internal/profile"
	"github.com/hanroad/hanroad/store"
	"github.com/hanroad/hanroad/store/db/postgres"
	"github.com/hanroad/hanroad/store/db/sqlite"
)

// Two drivers are supported.
//
// PostgreSQL: production. Requires the pgvector extension; similarity search
// runs inside the database with an approximate index.
// SQLite: development and demos. Embeddings live in JSON columns and
// similarity search is an exact in-process scan.

// NewDBDriver creates a db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
