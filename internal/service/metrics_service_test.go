package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/reportcard/internal/models"
)

func TestMetricsServiceObserveRecompute(t *testing.T) {
	m := NewMetricsService()
	m.ObserveRecompute(2*time.Millisecond, models.ClassStatistics{Total: 5, Pending: 2, Failing: 1, PassRate: 67, ClassAverage: 61})
	m.ObserveRecompute(time.Millisecond, models.ClassStatistics{Total: 4, Pending: 1, PassRate: 100, ClassAverage: 70})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.recomputeTotal))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.rosterSize))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.passRate))

	expected := `
# HELP reportcard_class_average Mean average score of completed students
# TYPE reportcard_class_average gauge
reportcard_class_average 70
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "reportcard_class_average"))
}

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()
	m.ObserveExport("csv")
	m.ObserveExport("csv")
	m.ObserveExport("pdf")
	m.ObservePINFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.exportsTotal.WithLabelValues("csv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportsTotal.WithLabelValues("pdf")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pinFailures))
}

func TestMetricsServiceFlush(t *testing.T) {
	m := NewMetricsService()
	m.ObserveExport("csv")

	path := filepath.Join(t.TempDir(), "reportcard.prom")
	require.NoError(t, m.Flush(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `reportcard_exports_total{format="csv"} 1`)

	assert.NoError(t, m.Flush(""))
	var nilMetrics *MetricsService
	assert.NoError(t, nilMetrics.Flush(path))
	nilMetrics.ObserveExport("csv")
}
