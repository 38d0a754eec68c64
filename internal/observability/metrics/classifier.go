// Package metrics provides content classifier metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ClassifierMetrics contains Prometheus metrics for content classification
// service operations
type ClassifierMetrics struct {
	registry *prometheus.Registry

	// Service request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram

	// Connectivity probe metrics
	probesTotal *prometheus.CounterVec

	// Description cache metrics
	cacheLookupsTotal *prometheus.CounterVec
}

// NewClassifierMetrics creates and registers new classifier metrics
func NewClassifierMetrics(registry *prometheus.Registry) (*ClassifierMetrics, error) {
	m := &ClassifierMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *ClassifierMetrics) initMetrics() error {
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_requests_total",
			Help: "Total number of classification service requests",
		},
		[]string{"status"}, // status: success, error
	)

	m.requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "classifier_request_duration_seconds",
		Help: "Time taken for classification service requests",
		// Buckets cover typical vision model response times: 100ms to ~100s
		Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
	})

	m.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_probes_total",
			Help: "Total number of service connectivity probes",
		},
		[]string{"status"},
	)

	m.cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_cache_lookups_total",
			Help: "Total number of description cache lookups",
		},
		[]string{"result"}, // result: hit, miss
	)

	return nil
}

// Describe implements the Collector interface
func (m *ClassifierMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.probesTotal.Describe(ch)
	m.cacheLookupsTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *ClassifierMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.probesTotal.Collect(ch)
	m.cacheLookupsTotal.Collect(ch)
}

// RecordRequest records a classification service request and its status
func (m *ClassifierMetrics) RecordRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// RecordRequestDuration records the duration of a classification service request
func (m *ClassifierMetrics) RecordRequestDuration(seconds float64) {
	m.requestDuration.Observe(seconds)
}

// RecordProbe records a connectivity probe and its status
func (m *ClassifierMetrics) RecordProbe(status string) {
	m.probesTotal.WithLabelValues(status).Inc()
}

// RecordCacheLookup records a description cache lookup and its result
func (m *ClassifierMetrics) RecordCacheLookup(result string) {
	m.cacheLookupsTotal.WithLabelValues(result).Inc()
}
