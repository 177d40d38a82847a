// Package metrics provides custom Prometheus metrics for various components of the speechcoach application.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AnalysisMetrics contains all Prometheus metrics related to the analysis pipeline.
type AnalysisMetrics struct {
	AnalysesCompleted prometheus.Counter
	AnalysesFailed    prometheus.Counter
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	SchemaViolations  prometheus.Counter
	AnalysisDuration  prometheus.Histogram
	registry          *prometheus.Registry
}

// NewAnalysisMetrics creates a new instance of AnalysisMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewAnalysisMetrics(registry *prometheus.Registry) (*AnalysisMetrics, error) {
	m := &AnalysisMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize analysis metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register analysis metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for AnalysisMetrics.
func (m *AnalysisMetrics) initMetrics() error {
	m.AnalysesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_completed_total",
		Help: "Total number of analyses completed and persisted",
	})

	m.AnalysesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_failed_total",
		Help: "Total number of analysis attempts that ended in an error",
	})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_cache_hits_total",
		Help: "Total number of analysis requests served from cache or the database",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_cache_misses_total",
		Help: "Total number of analysis requests that required a new oracle run",
	})

	m.SchemaViolations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_schema_violations_total",
		Help: "Total number of oracle responses rejected by schema validation",
	})

	m.AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_seconds",
		Help:    "End-to-end duration of a full analysis run in seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	return nil
}

// RecordAnalysisDuration records the duration of a complete analysis run.
func (m *AnalysisMetrics) RecordAnalysisDuration(seconds float64) {
	m.AnalysisDuration.Observe(seconds)
}

// Collect implements the prometheus.Collector interface.
func (m *AnalysisMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.AnalysesCompleted
	ch <- m.AnalysesFailed
	ch <- m.CacheHits
	ch <- m.CacheMisses
	ch <- m.SchemaViolations
	ch <- m.AnalysisDuration
}

// Describe implements the prometheus.Collector interface.
func (m *AnalysisMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.AnalysesCompleted.Desc()
	ch <- m.AnalysesFailed.Desc()
	ch <- m.CacheHits.Desc()
	ch <- m.CacheMisses.Desc()
	ch <- m.SchemaViolations.Desc()
	ch <- m.AnalysisDuration.Desc()
}
