package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending migrations for the database behind url.
func Migrate(url string) error {
	dir, err := migrationsDir(url)
	if err != nil {
		return err
	}
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func migrationsDir(url string) (string, error) {
	switch {
	case config.IsPostgresURL(url):
		return "migrations/postgres", nil
	case config.IsSQLiteURL(url):
		return "migrations/sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database URL: %s", config.MaskURL(url))
	}
}
