package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"airquality-platform/internal/models"
	"airquality-platform/internal/repository"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

const stationHeader = "No,year,month,day,hour,PM2.5,PM10,SO2,NO2,CO,O3,TEMP,PRES,DEWP,RAIN,wd,WSPM,station"

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("airquality-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func testMetrics() *metrics.Collector {
	return metrics.NewCollector("airquality_test", prometheus.NewRegistry())
}

// csvRows joins data lines under the station header
func csvRows(lines ...string) string {
	return stationHeader + "\n" + strings.Join(lines, "\n") + "\n"
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// memoryRepository is an in-memory ObservationRepository. failOn makes every
// replace of that file fail; failAtBatch fails the n-th insert statement (1-based)
// of a replace, after the earlier statements were staged.
type memoryRepository struct {
	mu          sync.Mutex
	rows        map[string][]*models.Observation
	batches     int
	failOn      string
	failAtBatch int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{rows: make(map[string][]*models.Observation)}
}

func (m *memoryRepository) ReplaceSource(_ context.Context, sourceFile string, observations []*models.Observation, batchSize int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sourceFile == m.failOn {
		return 0, io.ErrUnexpectedEOF
	}

	var staged []*models.Observation
	for start, n := 0, 1; start < len(observations); start, n = start+batchSize, n+1 {
		if n == m.failAtBatch {
			return 0, io.ErrUnexpectedEOF
		}
		end := min(start+batchSize, len(observations))
		staged = append(staged, observations[start:end]...)
		m.batches++
	}

	removed := int64(len(m.rows[sourceFile]))
	if len(staged) == 0 {
		delete(m.rows, sourceFile)
	} else {
		m.rows[sourceFile] = staged
	}
	return removed, nil
}

func (m *memoryRepository) ListSources(context.Context) ([]repository.SourceSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.SourceSummary
	for name, rows := range m.rows {
		out = append(out, repository.SourceSummary{SourceFile: name, Rows: len(rows)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceFile < out[j].SourceFile })
	return out, nil
}

func (m *memoryRepository) GetObservationsBySource(_ context.Context, sourceFile string) ([]*models.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[sourceFile]
	if len(rows) == 0 {
		return nil, &repository.NotFoundError{Resource: "source_file", ID: sourceFile}
	}
	out := append([]*models.Observation(nil), rows...)
	sort.Slice(out, func(i, j int) bool { return out[i].RowNumber < out[j].RowNumber })
	return out, nil
}

func (m *memoryRepository) HealthCheck(context.Context) error { return nil }

// staticSource serves fixed batches
type staticSource struct {
	batches []*models.Dataset
	err     error
}

func (s staticSource) Name() string { return "static" }

func (s staticSource) Load(context.Context) ([]*models.Dataset, error) {
	return s.batches, s.err
}

type countingProgress struct{ n int }

func (p *countingProgress) Add(n int) error {
	p.n += n
	return nil
}
