package store

import (
	"log/slog"

	"github.com/fieldwork/patternstore/internal/profile"
)

// Store provides cached access to pattern documents backed by a versioned
// driver. Reads go through the document cache, list views go through the
// projection cache, and writes carry the version token the caller last
// observed so the driver can reject lost updates.
type Store struct {
	profile     *profile.Profile
	driver      Driver
	fieldSource FieldSource
	logger      *slog.Logger

	// Caches
	documents   *DocumentCache
	projections *ProjectionCache
}

// New creates a new instance of Store.
func New(driver Driver, fieldSource FieldSource, profile *profile.Profile) *Store {
	return &Store{
		profile:     profile,
		driver:      driver,
		fieldSource: fieldSource,
		logger:      slog.Default(),
		documents:   NewDocumentCache(),
		projections: NewProjectionCache(),
	}
}

// WithLogger replaces the store's logger.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	s.logger = logger
	return s
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}
