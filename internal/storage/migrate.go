package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"splitbill/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateSchema brings db up to the newest embedded splitbill schema and
// returns the resulting version. It runs on the repository's own
// connection, which it leaves open.
func migrateSchema(db *sql.DB, logger *log.Logger) (uint, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("load splitbill migrations: %w", err)
	}
	defer src.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("prepare splitbill schema driver: %w", err)
	}

	// Closing the migrator would close db as well, so only the source is
	// released.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("prepare splitbill migrator: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("Schema already current")
	case err != nil:
		return 0, fmt.Errorf("migrate splitbill schema: %w", err)
	default:
		logger.Info("Schema migrated")
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read splitbill schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("splitbill schema version %d is dirty", version)
	}
	return version, nil
}
