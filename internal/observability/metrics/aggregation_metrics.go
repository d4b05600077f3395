package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	AggregationErrorTypeDeadlineExceeded = "deadline_exceeded"
	AggregationErrorTypeDB               = "db"
	AggregationErrorTypeIsolation        = "tenant_isolation"
	AggregationErrorTypeUnknown          = "unknown"
)

// AggregationMetrics captures KPI aggregation health signals.
type AggregationMetrics struct {
	runs             prometheus.Counter
	runDuration      prometheus.Histogram
	runSkips         prometheus.Counter
	orgsProcessed    prometheus.Counter
	orgFailures      *prometheus.CounterVec
	metricErrors     *prometheus.CounterVec
	snapshotsWritten prometheus.Counter
}

var (
	aggregationMetricsOnce sync.Once
	aggregationMetrics     *AggregationMetrics
)

// Aggregation returns the singleton aggregation metrics registry.
func Aggregation() *AggregationMetrics {
	aggregationMetricsOnce.Do(func() {
		aggregationMetrics = newAggregationMetrics(prometheus.DefaultRegisterer)
	})
	return aggregationMetrics
}

func newAggregationMetrics(reg prometheus.Registerer) *AggregationMetrics {
	m := &AggregationMetrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kpi_aggregation_runs_total",
			Help: "Number of aggregation runs started.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kpi_aggregation_run_duration_seconds",
			Help:    "Wall time of a full aggregation run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		runSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kpi_aggregation_run_skips_total",
			Help: "Runs skipped because another run held the lock.",
		}),
		orgsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kpi_aggregation_orgs_processed_total",
			Help: "Organizations processed across all runs.",
		}),
		orgFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_aggregation_org_failures_total",
			Help: "Organization-level aggregation failures by error type.",
		}, []string{"error_type"}),
		metricErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_aggregation_metric_errors_total",
			Help: "Per-metric computation errors by metric key.",
		}, []string{"metric_key"}),
		snapshotsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kpi_snapshots_written_total",
			Help: "Snapshot rows persisted.",
		}),
	}

	collectors := []prometheus.Collector{
		m.runs, m.runDuration, m.runSkips, m.orgsProcessed,
		m.orgFailures, m.metricErrors, m.snapshotsWritten,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}
	return m
}

func (m *AggregationMetrics) IncRun() {
	if m == nil {
		return
	}
	m.runs.Inc()
}

func (m *AggregationMetrics) ObserveRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

func (m *AggregationMetrics) IncRunSkip() {
	if m == nil {
		return
	}
	m.runSkips.Inc()
}

func (m *AggregationMetrics) IncOrgProcessed() {
	if m == nil {
		return
	}
	m.orgsProcessed.Inc()
}

func (m *AggregationMetrics) IncOrgFailure(err error) {
	if m == nil {
		return
	}
	m.orgFailures.WithLabelValues(ClassifyAggregationErrorType(err)).Inc()
}

func (m *AggregationMetrics) IncMetricError(metricKey string) {
	if m == nil {
		return
	}
	m.metricErrors.WithLabelValues(metricKey).Inc()
}

func (m *AggregationMetrics) AddSnapshotsWritten(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.snapshotsWritten.Add(float64(count))
}

// ClassifyAggregationErrorType buckets an error for the failure counters.
func ClassifyAggregationErrorType(err error) string {
	switch {
	case err == nil:
		return AggregationErrorTypeUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return AggregationErrorTypeDeadlineExceeded
	case strings.Contains(err.Error(), "tenant_isolation"):
		return AggregationErrorTypeIsolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) || errors.Is(err, gorm.ErrInvalidDB) || errors.Is(err, gorm.ErrInvalidTransaction) {
		return AggregationErrorTypeDB
	}
	return AggregationErrorTypeUnknown
}
