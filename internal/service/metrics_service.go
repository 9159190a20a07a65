package service

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/reportcard/internal/models"
)

// MetricsService keeps Prometheus collectors for the grading pipeline and
// dumps them in the node-exporter textfile format, since the tool has no
// long-running process to scrape.
type MetricsService struct {
	registry          *prometheus.Registry
	recomputeDuration prometheus.Histogram
	recomputeTotal    prometheus.Counter
	rosterSize        prometheus.Gauge
	pendingStudents   prometheus.Gauge
	failingStudents   prometheus.Gauge
	passRate          prometheus.Gauge
	classAverage      prometheus.Gauge
	exportsTotal      *prometheus.CounterVec
	pinFailures       prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	recomputeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reportcard_recompute_duration_seconds",
		Help:    "Time spent scoring, ranking and aggregating a roster",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	})
	recomputeTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reportcard_recomputes_total",
		Help: "Number of roster recomputations",
	})
	rosterSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reportcard_roster_students",
		Help: "Students in the last computed roster",
	})
	pendingStudents := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reportcard_pending_students",
		Help: "Students with incomplete results in the last computed roster",
	})
	failingStudents := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reportcard_failing_students",
		Help: "Completed students below the pass mark",
	})
	passRate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reportcard_pass_rate_percent",
		Help: "Pass rate of completed students",
	})
	classAverage := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reportcard_class_average",
		Help: "Mean average score of completed students",
	})
	exportsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reportcard_exports_total",
		Help: "Generated export files by format",
	}, []string{"format"})
	pinFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reportcard_pin_failures_total",
		Help: "Rejected PIN attempts",
	})

	registry.MustRegister(recomputeDuration, recomputeTotal, rosterSize, pendingStudents, failingStudents, passRate, classAverage, exportsTotal, pinFailures)

	return &MetricsService{
		registry:          registry,
		recomputeDuration: recomputeDuration,
		recomputeTotal:    recomputeTotal,
		rosterSize:        rosterSize,
		pendingStudents:   pendingStudents,
		failingStudents:   failingStudents,
		passRate:          passRate,
		classAverage:      classAverage,
		exportsTotal:      exportsTotal,
		pinFailures:       pinFailures,
	}
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRecompute records one pipeline run and the resulting class snapshot.
func (m *MetricsService) ObserveRecompute(elapsed time.Duration, stats models.ClassStatistics) {
	if m == nil {
		return
	}
	m.recomputeDuration.Observe(elapsed.Seconds())
	m.recomputeTotal.Inc()
	m.rosterSize.Set(float64(stats.Total))
	m.pendingStudents.Set(float64(stats.Pending))
	m.failingStudents.Set(float64(stats.Failing))
	m.passRate.Set(float64(stats.PassRate))
	m.classAverage.Set(float64(stats.ClassAverage))
}

// ObserveExport counts a generated export file.
func (m *MetricsService) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(format).Inc()
}

// ObservePINFailure counts a rejected PIN.
func (m *MetricsService) ObservePINFailure() {
	if m == nil {
		return
	}
	m.pinFailures.Inc()
}

// Flush writes every collector to path. An empty path disables the dump.
func (m *MetricsService) Flush(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
