package main

import (
	"context"

	"github.com/karuna-health/assess-portal/internal/catalog"
	"github.com/karuna-health/assess-portal/internal/store"
)

// loadCatalog picks the configured catalog file, falling back to the
// built-in PMTCT catalog.
func loadCatalog() (*catalog.Catalog, error) {
	if cfg.Catalog.Path != "" {
		return catalog.Load(cfg.Catalog.Path)
	}
	return catalog.Default()
}

// openStore opens the configured backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
