package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"airquality-platform/internal/models"
	"airquality-platform/internal/repository"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// Progress receives one tick per processed file
type Progress interface {
	Add(n int) error
}

type noProgress struct{}

func (noProgress) Add(int) error { return nil }

// IngestionService stores raw station files in Postgres
type IngestionService struct {
	repo    repository.ObservationRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles        int
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	Duration          time.Duration
	Errors            []string
}

// FileIngestionResult contains per-file ingestion statistics
type FileIngestionResult struct {
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.ObservationRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestDirectory loads every matching file of source into the store. Each file
// atomically replaces the rows previously ingested under its name. A failing file is
// recorded in the result and the remaining files are still processed.
func (s *IngestionService) IngestDirectory(ctx context.Context, source *FileSource, batchSize int, progress Progress) (*IngestionResult, error) {
	if progress == nil {
		progress = noProgress{}
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	startTime := time.Now()

	files, err := source.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no data files found in %s", source.dir)
	}

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"data_dir":   source.dir,
		"file_count": len(files),
		"batch_size": batchSize,
		"stage":      "FILE_DISCOVERY",
	})

	result := &IngestionResult{
		TotalFiles: len(files),
		Errors:     make([]string, 0),
	}

	for _, filePath := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileResult, err := s.ingestFile(ctx, filePath, batchSize)
		_ = progress.Add(1)
		if fileResult != nil {
			result.TotalRecords += fileResult.TotalRecords
			result.SuccessfulRecords += fileResult.SuccessfulRecords
			result.FailedRecords += fileResult.FailedRecords
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", filePath, err))
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_PROCESSING",
			}, err)
			s.metrics.RecordIngestionError("file_error")
			continue
		}

		s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested successfully", logging.Fields{
			"file_path":          filePath,
			"total_records":      fileResult.TotalRecords,
			"successful_records": fileResult.SuccessfulRecords,
			"stage":              "FILE_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})

	return result, nil
}

func (s *IngestionService) ingestFile(ctx context.Context, filePath string, batchSize int) (*FileIngestionResult, error) {
	sourceFile := filepath.Base(filePath)

	d, err := ReadStationFile(filePath)
	if err != nil {
		s.metrics.RecordIngestionError("parse_error")
		return nil, err
	}
	if column, same := d.Schema().Diff(models.StationSchema()); !same {
		s.metrics.RecordIngestionError("schema_error")
		return nil, &models.SchemaMismatchError{Column: column, Message: "file layout differs from the station schema"}
	}

	// a rejected file counts all of its rows as failed; stored rows are left untouched
	rejected := &FileIngestionResult{TotalRecords: d.Len(), FailedRecords: d.Len()}

	observations, err := s.convert(sourceFile, d)
	if err != nil {
		return rejected, err
	}

	removed, err := s.repo.ReplaceSource(ctx, sourceFile, observations, batchSize)
	if err != nil {
		return rejected, fmt.Errorf("failed to store %s: %w", sourceFile, err)
	}
	if removed > 0 {
		s.logger.Debug(ctx, "[INGEST_REPLACED] Previous rows replaced", logging.Fields{
			"source_file": sourceFile,
			"removed":     removed,
		})
	}

	return &FileIngestionResult{
		TotalRecords:      d.Len(),
		SuccessfulRecords: len(observations),
	}, nil
}

// convert maps dataset rows to storage rows. A row that cannot be stored fails
// the whole file, the same way the file source rejects it at analysis time.
func (s *IngestionService) convert(sourceFile string, d *models.Dataset) ([]*models.Observation, error) {
	observations := make([]*models.Observation, 0, d.Len())
	for i := 0; i < d.Len(); i++ {
		obs, err := models.ObservationFromRecord(sourceFile, i, d.Record(i))
		if err != nil {
			s.metrics.RecordIngestionError("conversion_error")
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, nil
}
