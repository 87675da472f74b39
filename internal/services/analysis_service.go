package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"airquality-platform/internal/analysis"
	"airquality-platform/internal/models"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

// ErrNoResult is returned when no run has completed yet
var ErrNoResult = errors.New("no analysis result available")

// AnalysisService runs the pipeline over a batch source and keeps the latest
// successful result in memory
type AnalysisService struct {
	source  BatchSource
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	runMu sync.Mutex

	mu     sync.RWMutex
	latest *models.Result
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(source BatchSource, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalysisService {
	return &AnalysisService{
		source:  source,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Run loads the batches, executes the pipeline and publishes the result.
// Runs are serialized; a failed run leaves the previous result in place.
func (s *AnalysisService) Run(ctx context.Context) (*models.Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	source := s.source.Name()
	start := time.Now()
	log := s.logger.WithFields(logging.Fields{"source": source})

	log.Info(ctx, "[PIPELINE_START] Starting analysis run", logging.Fields{})

	batches, err := s.source.Load(ctx)
	if err != nil {
		s.fail(ctx, log, source, "load", err)
		return nil, err
	}

	result, err := analysis.Run(ctx, batches, s.observeStage(ctx, log))
	if err != nil {
		kind := models.ErrorKind(err)
		if kind == "" {
			kind = "internal"
		}
		s.fail(ctx, log, source, kind, err)
		return nil, err
	}

	result.RunID = runID
	result.Source = source

	missing := make(map[string]int, len(result.Missing))
	for _, m := range result.Missing {
		missing[m.Column] = m.Missing
	}
	s.metrics.RecordRunSuccess(source, result.Rows, missing, result.CompletedAt)

	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	log.Info(ctx, "[PIPELINE_COMPLETE] Analysis run completed", logging.Fields{
		"batches":         result.Batches,
		"rows":            result.Rows,
		"missing_columns": len(result.Missing),
		"weeks":           len(result.Aggregates.Weekly),
		"temp_o3_corr":    result.Summary.TempO3Correlation,
		"duration_ms":     time.Since(start).Milliseconds(),
	})

	return result, nil
}

func (s *AnalysisService) observeStage(ctx context.Context, log *logging.ContextLogger) analysis.StageObserver {
	return func(stage analysis.Stage, elapsed time.Duration, err error) {
		s.metrics.RecordStage(string(stage), elapsed)
		fields := logging.Fields{
			"stage":       string(stage),
			"duration_ms": elapsed.Milliseconds(),
		}
		if err != nil {
			fields["error_kind"] = models.ErrorKind(err)
			log.Warn(ctx, "[PIPELINE_STAGE_FAILED] Stage failed", fields)
			return
		}
		log.Debug(ctx, "[PIPELINE_STAGE] Stage completed", fields)
	}
}

func (s *AnalysisService) fail(ctx context.Context, log *logging.ContextLogger, source, kind string, err error) {
	s.metrics.RecordRunFailure(source, kind)
	log.Error(ctx, "[PIPELINE_ERROR] Analysis run failed", logging.Fields{
		"kind":   kind,
		"column": models.ErrorColumn(err),
	}, err)
}

// Latest returns the most recent successful result
func (s *AnalysisService) Latest() (*models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoResult
	}
	return s.latest, nil
}

// SourceName names the configured batch source
func (s *AnalysisService) SourceName() string {
	return s.source.Name()
}
