package storage

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending up migrations for the given driver. It opens its
// own connection so the caller's pool is left untouched.
func Migrate(driver, url string) error {
	var dir, dbURL string
	switch driver {
	case "sqlite", "":
		dir, dbURL = "migrations/sqlite", "sqlite3://"+url
	case "postgres":
		dir, dbURL = "migrations/postgres", url
	default:
		return fmt.Errorf("unknown driver %q", driver)
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
