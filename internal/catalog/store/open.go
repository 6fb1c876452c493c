package store

import (
	"context"
	"fmt"

	"github.com/abgdnv/productcatalog/pkg/bootstrap"
	"github.com/abgdnv/productcatalog/pkg/config"
)

// Open connects to the database named by cfg.URL, running migrations first when cfg.Migrate is set.
// postgres:// and postgresql:// URLs select PgStore, sqlite:// selects SQLiteStore.
func Open(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	if config.IsSQLiteURL(cfg.URL) {
		if _, err := ensureSQLiteDir(cfg.URL); err != nil {
			return nil, err
		}
	}
	if cfg.Migrate {
		if err := Migrate(cfg.URL); err != nil {
			return nil, err
		}
	}
	switch {
	case config.IsPostgresURL(cfg.URL):
		pool, err := bootstrap.NewDbPool(ctx, cfg.URL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return NewPgStore(pool), nil
	case config.IsSQLiteURL(cfg.URL):
		return OpenSQLite(ctx, cfg.URL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported database URL: %s", config.MaskURL(cfg.URL))
	}
}
