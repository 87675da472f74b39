package repository

import (
	"context"
	"fmt"
	"time"

	"airquality-platform/internal/models"
	"airquality-platform/pkg/database"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// ObservationRepository stores raw station rows, one logical batch per source file
type ObservationRepository interface {
	// ReplaceSource swaps every stored row of sourceFile for observations in one
	// transaction; on failure the previous rows stay in place
	ReplaceSource(ctx context.Context, sourceFile string, observations []*models.Observation, batchSize int) (int64, error)

	ListSources(ctx context.Context) ([]SourceSummary, error)
	GetObservationsBySource(ctx context.Context, sourceFile string) ([]*models.Observation, error)

	HealthCheck(ctx context.Context) error
}

// SourceSummary describes one ingested file
type SourceSummary struct {
	SourceFile string    `json:"source_file" db:"source_file"`
	Rows       int       `json:"rows" db:"row_count"`
	IngestedAt time.Time `json:"ingested_at" db:"ingested_at"`
}

// Postgres caps a statement at 65535 bind parameters
const maxRowsPerStatement = 2000

const insertObservationSQL = `
	INSERT INTO air_quality_observations (
		source_file, row_number, year, month, day, no, hour,
		pm25, pm10, so2, no2, co, o3, temp, pres, dewp, rain, wd, wspm, station,
		created_at
	)
	VALUES (
		:source_file, :row_number, :year, :month, :day, :no, :hour,
		:pm25, :pm10, :so2, :no2, :co, :o3, :temp, :pres, :dewp, :rain, :wd, :wspm, :station,
		:created_at
	)
`

const selectObservationsSQL = `
	SELECT id, source_file, row_number, year, month, day, no, hour,
	       pm25, pm10, so2, no2, co, o3, temp, pres, dewp, rain, wd, wspm, station,
	       created_at
	FROM air_quality_observations
	WHERE source_file = $1
	ORDER BY row_number
`

type observationRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ObservationRepository {
	return &observationRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// chunk splits rows into statement-sized slices
func chunk(observations []*models.Observation, size int) [][]*models.Observation {
	var out [][]*models.Observation
	for start := 0; start < len(observations); start += size {
		end := start + size
		if end > len(observations) {
			end = len(observations)
		}
		out = append(out, observations[start:end])
	}
	return out
}

// ReplaceSource deletes the rows of sourceFile and inserts observations in
// statements of at most batchSize rows, all inside a single transaction.
// It returns the number of rows removed.
func (r *observationRepository) ReplaceSource(ctx context.Context, sourceFile string, observations []*models.Observation, batchSize int) (int64, error) {
	for _, o := range observations {
		if o.SourceFile != sourceFile {
			return 0, fmt.Errorf("observation from %q cannot replace rows of %q", o.SourceFile, sourceFile)
		}
	}
	if batchSize < 1 || batchSize > maxRowsPerStatement {
		batchSize = maxRowsPerStatement
	}

	timer := time.Now()
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := r.db.ExecTx(ctx, tx, "delete_source",
		`DELETE FROM air_quality_observations WHERE source_file = $1`, sourceFile)
	if err != nil {
		return 0, fmt.Errorf("failed to delete previous rows: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	for _, part := range chunk(observations, batchSize) {
		if _, err := r.db.NamedExecTx(ctx, tx, "insert_observations", insertObservationSQL, part); err != nil {
			return 0, fmt.Errorf("failed to insert observations: %w", err)
		}
		r.metrics.IngestionBatchSize.Observe(float64(len(part)))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(observations)))
	r.logger.Debug(ctx, "[REPO_REPLACE_SOURCE] Source rows replaced", logging.Fields{
		"source_file": sourceFile,
		"removed":     removed,
		"inserted":    len(observations),
		"duration_ms": time.Since(timer).Milliseconds(),
	})
	return removed, nil
}

// ListSources returns every ingested file ordered by name
func (r *observationRepository) ListSources(ctx context.Context) ([]SourceSummary, error) {
	query := `
		SELECT source_file, COUNT(*) AS row_count, MAX(created_at) AS ingested_at
		FROM air_quality_observations
		GROUP BY source_file
		ORDER BY source_file
	`

	var sources []SourceSummary
	if err := r.db.SelectContext(ctx, "list_sources", &sources, query); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// GetObservationsBySource returns the rows of one file in their original order
func (r *observationRepository) GetObservationsBySource(ctx context.Context, sourceFile string) ([]*models.Observation, error) {
	var observations []*models.Observation
	if err := r.db.SelectContext(ctx, "get_observations_by_source", &observations, selectObservationsSQL, sourceFile); err != nil {
		return nil, fmt.Errorf("failed to get observations: %w", err)
	}

	if len(observations) == 0 {
		return nil, &NotFoundError{Resource: "source_file", ID: sourceFile}
	}
	return observations, nil
}

func (r *observationRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsTransient returns false: a missing source stays missing until it is ingested
func (e *NotFoundError) IsTransient() bool {
	return false
}
