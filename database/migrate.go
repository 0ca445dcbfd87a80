package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate brings the plants schema up to date for the store's driver
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations/"+s.driver)
	if err != nil {
		return fmt.Errorf("cannot open migrations for %s: %w", s.driver, err)
	}

	var driver migratedb.Driver
	switch s.driver {
	case "postgres":
		driver, err = migratepg.WithInstance(s.db.DB, &migratepg.Config{})
	case "sqlite3":
		driver, err = migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("no migrations for driver %q", s.driver)
	}
	if err != nil {
		return fmt.Errorf("couldn't get database instance for running migrations: %w", err)
	}

	// The migrate instance is not closed: closing it would close the shared pool.
	m, err := migrate.NewWithInstance("iofs", src, s.driver, driver)
	if err != nil {
		return fmt.Errorf("couldn't create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't run database migration: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		s.logger.Warn("Database migration ran but no version is recorded")
	case err != nil:
		return fmt.Errorf("couldn't read migration version: %w", err)
	default:
		s.logger.Info("Database migration was run successfully",
			zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}
