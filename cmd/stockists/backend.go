package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/FranksOps/stockists/internal/config"
	"github.com/FranksOps/stockists/internal/storage"
	"github.com/FranksOps/stockists/internal/storage/csvbackend"
	"github.com/FranksOps/stockists/internal/storage/jsonbackend"
	"github.com/FranksOps/stockists/internal/storage/postgres"
	"github.com/FranksOps/stockists/internal/storage/sqlite"
)

// openBackend returns the configured backend and a description of where it
// writes. File backends resolve their path inside the base directory.
func openBackend(ctx context.Context, fsys afero.Fs, cfg *config.Config) (storage.Backend, string, error) {
	output := filepath.Join(cfg.BaseDir, cfg.OutputFile)

	switch cfg.Backend {
	case config.BackendCSV, "":
		return csvbackend.New(fsys, output), output, nil
	case config.BackendJSON:
		output = strings.TrimSuffix(output, filepath.Ext(output)) + ".ndjson"
		return jsonbackend.New(fsys, output), output, nil
	case config.BackendSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.BaseDir, "stockists.db")
		}
		b, err := sqlite.New(dsn)
		return b, dsn, err
	case config.BackendPostgres:
		b, err := postgres.New(ctx, cfg.DSN)
		return b, "postgres", err
	default:
		return nil, "", fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
