// Package bootstrap wires the configured store, import sources, report
// archive and budget service together for the command-line binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dvloznov/household-budget/internal/budget"
	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/gcsuploader"
	"github.com/dvloznov/household-budget/internal/importer"
	"github.com/dvloznov/household-budget/internal/infra"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/store"
	"github.com/rs/zerolog"
)

// App is a loaded budget service and the resources behind it.
type App struct {
	Config  config.Config
	Service *budget.Service

	store   store.Store
	storage *gcsuploader.GCSStorageService
}

// Logger builds the process logger from cfg.
func Logger(cfg config.LogConfig) zerolog.Logger {
	return logger.NewWithConfig(logger.Config{Level: cfg.Level, Pretty: cfg.Pretty})
}

// Open opens the store, builds the service and loads it. A GCS client is
// created only when an archive bucket is configured; it serves both report
// archiving and gs:// imports.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.FromContext(ctx)

	st, err := infra.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	app := &App{Config: cfg, store: st}

	opts := budget.OptionsFromConfig(&cfg)
	src := importer.MultiSource{Local: importer.FileSource{}}
	if cfg.API.ArchiveBucket != "" {
		svc, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		app.storage = svc
		src.GCS = importer.GCSSource{Storage: svc}
		opts.Archive = svc
	} else {
		log.Debug().Msg("No archive bucket configured, reports will not be archived")
	}
	opts.Importer = importer.New(src)

	app.Service = budget.New(st, opts)
	if err := app.Service.Load(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}
	return app, nil
}

// Close releases the store and the storage client.
func (a *App) Close() error {
	var firstErr error
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			firstErr = err
		}
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
