package services

import (
	"context"
	"fmt"

	"airquality-platform/internal/config"
	"airquality-platform/internal/repository"
	"airquality-platform/pkg/database"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// Backend is the batch source selected by configuration together with the
// store behind it. Store is nil for the files source.
type Backend struct {
	Source BatchSource
	Store  repository.ObservationRepository
	db     *database.PostgresDB
}

// OpenBackend connects the configured data source
func OpenBackend(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*Backend, error) {
	switch cfg.Data.Source {
	case config.SourceFiles:
		logger.Info(ctx, "[BACKEND] Reading batches from files", logging.Fields{
			"dir":     cfg.Data.Dir,
			"pattern": cfg.Data.Pattern,
		})
		return &Backend{Source: NewFileSource(cfg.Data.Dir, cfg.Data.Pattern, logger)}, nil

	case config.SourcePostgres:
		db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := repository.NewObservationRepository(db, logger, metricsCollector)
		logger.Info(ctx, "[BACKEND] Reading batches from postgres", logging.Fields{
			"db_host": cfg.Database.Host,
			"db_name": cfg.Database.Database,
		})
		return &Backend{Source: NewPostgresSource(repo, logger), Store: repo, db: db}, nil

	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

// Close releases the database connection, if any
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
