package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/carveworks/fabline/internal/store"
)

// applyDirOverrides lets each stage point at its own working directories,
// independent of the config file.
func applyDirOverrides(dataDir, warehouseDir string) {
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if warehouseDir != "" {
		cfg.Warehouse.Dir = warehouseDir
		cfg.Warehouse.Path = filepath.Join(warehouseDir, "fabline.db")
	}
}

// openWarehouse builds the configured warehouse backend and runs its
// migration so every command can assume the schema exists.
func openWarehouse(ctx context.Context) (store.Warehouse, error) {
	var (
		wh  store.Warehouse
		err error
	)
	switch cfg.Warehouse.Driver {
	case "", "sqlite":
		wh, err = store.NewSQLite(cfg.Warehouse.Path)
	case "postgres":
		wh, err = store.NewPostgres(ctx, cfg.Warehouse.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown warehouse driver %q", cfg.Warehouse.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := wh.Migrate(ctx); err != nil {
		wh.Close()
		return nil, err
	}
	return wh, nil
}
