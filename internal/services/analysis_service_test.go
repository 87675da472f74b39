package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airquality-platform/internal/models"
)

func stationBatch(t *testing.T, lines ...string) *models.Dataset {
	t.Helper()
	d, err := ReadStationCSV(strings.NewReader(csvRows(lines...)))
	require.NoError(t, err)
	return d
}

func TestAnalysisServiceRun(t *testing.T) {
	batch := stationBatch(t,
		"1,2013,3,1,0,4,5,4,7,300,10,2,1023,-18.8,0,NNW,4.4,Tiantan",
		"2,2013,3,2,0,8,9,5,8,400,20,4,1022,-18.2,0.1,NA,4.7,Tiantan",
	)
	collector := testMetrics()
	svc := NewAnalysisService(staticSource{batches: []*models.Dataset{batch}}, testLogger(), collector)

	_, err := svc.Latest()
	assert.ErrorIs(t, err, ErrNoResult)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "static", result.Source)
	assert.InDelta(t, 1.0, result.Summary.TempO3Correlation, 1e-12)
	assert.InDelta(t, 5.0, result.Summary.Regression.Slope, 1e-12)

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Same(t, result, latest)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.PipelineRunsTotal.WithLabelValues("static", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.PipelineRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.PipelineMissingValues.WithLabelValues(models.ColumnWind)))
	assert.Equal(t, 4, testutil.CollectAndCount(collector.PipelineStageDuration))
}

func TestAnalysisServiceFailureKeepsPreviousResult(t *testing.T) {
	good := stationBatch(t,
		"1,2013,3,1,0,4,5,4,7,300,10,2,1023,-18.8,0,NNW,4.4,Tiantan",
		"2,2013,3,2,0,8,9,5,8,400,20,4,1022,-18.2,0.1,N,4.7,Tiantan",
	)
	source := &switchSource{batches: []*models.Dataset{good}}
	collector := testMetrics()
	svc := NewAnalysisService(source, testLogger(), collector)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)

	source.set(nil, nil)
	_, err = svc.Run(context.Background())
	var insufficient *models.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))

	source.set(nil, errors.New("disk gone"))
	_, err = svc.Run(context.Background())
	assert.ErrorContains(t, err, "disk gone")

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Same(t, first, latest)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.PipelineRunsTotal.WithLabelValues("switch", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.PipelineErrorsTotal.WithLabelValues(models.KindInsufficientData)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.PipelineErrorsTotal.WithLabelValues("load")))
}

func TestAnalysisServiceConcurrentRuns(t *testing.T) {
	batch := stationBatch(t,
		"1,2013,3,1,0,4,5,4,7,300,10,2,1023,-18.8,0,NNW,4.4,Tiantan",
		"2,2013,3,2,0,8,9,5,8,400,20,4,1022,-18.2,0.1,N,4.7,Tiantan",
	)
	svc := NewAnalysisService(staticSource{batches: []*models.Dataset{batch}}, testLogger(), testMetrics())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Run(context.Background())
			assert.NoError(t, err)
			_, err = svc.Latest()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

type switchSource struct {
	mu      sync.Mutex
	batches []*models.Dataset
	err     error
}

func (s *switchSource) Name() string { return "switch" }

func (s *switchSource) Load(context.Context) ([]*models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches, s.err
}

func (s *switchSource) set(batches []*models.Dataset, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches, s.err = batches, err
}
