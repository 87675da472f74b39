package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRunMetrics(t *testing.T) {
	c := NewCollector("airquality_test", prometheus.NewRegistry())

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.RecordRunSuccess("files", 35064, map[string]int{"TEMP": 20, "wd": 81}, at)
	c.RecordRunFailure("postgres", "schema_mismatch")
	c.RecordRunFailure("postgres", "schema_mismatch")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.PipelineRunsTotal.WithLabelValues("files", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.PipelineRunsTotal.WithLabelValues("postgres", "failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.PipelineErrorsTotal.WithLabelValues("schema_mismatch")))
	assert.Equal(t, 35064.0, testutil.ToFloat64(c.PipelineRows))
	assert.Equal(t, 81.0, testutil.ToFloat64(c.PipelineMissingValues.WithLabelValues("wd")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(c.PipelineLastSuccess))
}

func TestMissingGaugeResetsBetweenRuns(t *testing.T) {
	c := NewCollector("airquality_test", prometheus.NewRegistry())

	c.RecordRunSuccess("files", 10, map[string]int{"TEMP": 2}, time.Now())
	c.RecordRunSuccess("files", 10, map[string]int{"O3": 1}, time.Now())

	assert.Equal(t, 1, testutil.CollectAndCount(c.PipelineMissingValues))
}

func TestSeparateRegistries(t *testing.T) {
	// two collectors with the same namespace must not collide
	a := NewCollector("airquality_test", prometheus.NewRegistry())
	b := NewCollector("airquality_test", prometheus.NewRegistry())

	a.RecordAPIRequest("/api/analysis", "GET", "200")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.APIRequestsTotal.WithLabelValues("/api/analysis", "GET", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.APIRequestsTotal.WithLabelValues("/api/analysis", "GET", "200")))
}

func TestTimer(t *testing.T) {
	c := NewCollector("airquality_test", prometheus.NewRegistry())

	timer := c.NewTimer(c.PipelineStageDuration.WithLabelValues("merge"))
	d := timer.ObserveDuration()
	assert.GreaterOrEqual(t, d, time.Duration(0))
	assert.Equal(t, 1, testutil.CollectAndCount(c.PipelineStageDuration))
}
