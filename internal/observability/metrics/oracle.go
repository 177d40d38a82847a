package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// OracleMetrics contains all Prometheus metrics related to the oracle client.
type OracleMetrics struct {
	RequestsTotal   prometheus.Counter
	RequestErrors   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	ResponseSize    prometheus.Histogram
	registry        *prometheus.Registry
}

// NewOracleMetrics creates a new instance of OracleMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewOracleMetrics(registry *prometheus.Registry) (*OracleMetrics, error) {
	m := &OracleMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize oracle metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register oracle metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for OracleMetrics.
func (m *OracleMetrics) initMetrics() error {
	m.RequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_requests_total",
		Help: "Total number of requests sent to the oracle",
	})

	m.RequestErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_request_errors_total",
		Help: "Total number of oracle request errors by kind",
	}, []string{"kind"})

	m.RequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "oracle_request_duration_seconds",
		Help:    "Duration of oracle requests in seconds",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	m.ResponseSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "oracle_response_size_bytes",
		Help:    "Size of oracle response payloads in bytes",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	})

	return nil
}

// RecordRequest records a completed oracle request with its duration.
func (m *OracleMetrics) RecordRequest(seconds float64) {
	m.RequestsTotal.Inc()
	m.RequestDuration.Observe(seconds)
}

// RecordError records an oracle request error of the given kind.
func (m *OracleMetrics) RecordError(kind string) {
	m.RequestErrors.WithLabelValues(kind).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *OracleMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.RequestsTotal
	m.RequestErrors.Collect(ch)
	ch <- m.RequestDuration
	ch <- m.ResponseSize
}

// Describe implements the prometheus.Collector interface.
func (m *OracleMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.RequestsTotal.Desc()
	m.RequestErrors.Describe(ch)
	ch <- m.RequestDuration.Desc()
	ch <- m.ResponseSize.Desc()
}
