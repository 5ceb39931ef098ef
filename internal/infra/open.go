// Package infra picks and opens the configured store backend.
package infra

import (
	"context"
	"fmt"

	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/gcsuploader"
	"github.com/dvloznov/household-budget/internal/infra/bigquery"
	"github.com/dvloznov/household-budget/internal/infra/boltstore"
	"github.com/dvloznov/household-budget/internal/infra/flatfile"
	"github.com/dvloznov/household-budget/internal/infra/inmemory"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/store"
)

// Open returns the backend named by cfg.Backend. The caller must Close it.
func Open(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	log := logger.FromContext(ctx)

	switch cfg.Backend {
	case config.BackendBigQuery:
		log.Info().Str("project", cfg.ProjectID).Str("dataset", cfg.Dataset).Msg("Opening BigQuery store")
		return bigquery.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)

	case config.BackendFlatFile:
		if gcsuploader.IsGCSURI(cfg.DataDir) {
			bucket, prefix, err := gcsuploader.ParsePrefix(cfg.DataDir)
			if err != nil {
				return nil, fmt.Errorf("Open: %w", err)
			}
			svc, err := gcsuploader.NewGCSStorageService(ctx)
			if err != nil {
				return nil, fmt.Errorf("Open: %w", err)
			}
			log.Info().Str("location", cfg.DataDir).Msg("Opening flat-file store on GCS")
			return flatfile.New(flatfile.GCSBlob{Storage: svc, Bucket: bucket, Prefix: prefix}, svc.Close), nil
		}
		log.Info().Str("location", cfg.DataDir).Msg("Opening flat-file store")
		return flatfile.NewDir(cfg.DataDir), nil

	case config.BackendBolt:
		log.Info().Str("path", cfg.BoltPath).Msg("Opening bolt store")
		return boltstore.Open(cfg.BoltPath)

	case config.BackendMemory:
		log.Warn().Msg("Using in-memory store, data will not survive restart")
		return inmemory.NewStore(), nil
	}

	return nil, fmt.Errorf("Open: unknown store backend %q", cfg.Backend)
}
