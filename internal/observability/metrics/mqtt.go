// Package metrics provides outcome event publisher metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics contains Prometheus metrics for the MQTT outcome event
// publisher
type MQTTMetrics struct {
	registry *prometheus.Registry

	// Broker connection state
	connected       prometheus.Gauge
	lastConnectTime prometheus.Gauge
	reconnectsTotal prometheus.Counter

	// Publish metrics
	publishesTotal  *prometheus.CounterVec
	publishDuration prometheus.Histogram

	// Errors outside the publish path
	errorsTotal *prometheus.CounterVec
}

// NewMQTTMetrics creates and registers new publisher metrics
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *MQTTMetrics) initMetrics() error {
	m.connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mqtt_connected",
		Help: "Whether the broker connection is up (1) or down (0)",
	})

	m.lastConnectTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mqtt_last_connect_time_seconds",
		Help: "Timestamp of the last successful broker connection",
	})

	m.reconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mqtt_reconnect_attempts_total",
		Help: "Total number of broker reconnection attempts",
	})

	m.publishesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_publishes_total",
			Help: "Total number of outcome event publishes",
		},
		[]string{"status"}, // status: success, error
	)

	m.publishDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "mqtt_publish_duration_seconds",
		Help: "Time taken to publish one outcome event",
		// Buckets cover local broker round trips: 1ms to ~1s
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
	})

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqtt_errors_total",
			Help: "Total number of MQTT errors outside the publish path",
		},
		[]string{"operation"}, // operation: connect, connection, reconnect
	)

	return nil
}

// Describe implements the Collector interface
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.connected.Desc()
	ch <- m.lastConnectTime.Desc()
	ch <- m.reconnectsTotal.Desc()
	m.publishesTotal.Describe(ch)
	ch <- m.publishDuration.Desc()
	m.errorsTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.connected
	ch <- m.lastConnectTime
	ch <- m.reconnectsTotal
	m.publishesTotal.Collect(ch)
	ch <- m.publishDuration
	m.errorsTotal.Collect(ch)
}

// RecordConnectionChange tracks broker connection state transitions
func (m *MQTTMetrics) RecordConnectionChange(connected bool) {
	if connected {
		m.connected.Set(1)
		m.lastConnectTime.SetToCurrentTime()
	} else {
		m.connected.Set(0)
	}
}

// RecordReconnectAttempt counts one broker reconnection attempt
func (m *MQTTMetrics) RecordReconnectAttempt() {
	m.reconnectsTotal.Inc()
}

// RecordPublish records an outcome event publish and its status
func (m *MQTTMetrics) RecordPublish(status string) {
	m.publishesTotal.WithLabelValues(status).Inc()
}

// RecordPublishDuration records the duration of one publish in seconds
func (m *MQTTMetrics) RecordPublishDuration(seconds float64) {
	m.publishDuration.Observe(seconds)
}

// RecordError records a failure in the given connection-level operation
func (m *MQTTMetrics) RecordError(operation string) {
	m.errorsTotal.WithLabelValues(operation).Inc()
}
