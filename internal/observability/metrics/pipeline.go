// Package metrics provides rename pipeline metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains Prometheus metrics for rename pipeline operations
type PipelineMetrics struct {
	registry *prometheus.Registry

	// Task lifecycle metrics
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	retriesTotal prometheus.Counter

	// Stage failure metrics
	stageErrorsTotal *prometheus.CounterVec

	// Worker pool metrics
	activeWorkers prometheus.Gauge

	// Discovery metrics
	filesScannedTotal *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers new pipeline metrics
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *PipelineMetrics) initMetrics() error {
	m.tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_tasks_total",
			Help: "Total number of rename tasks by terminal outcome",
		},
		[]string{"outcome"}, // outcome: renamed, planned, skipped, failed
	)

	m.taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_task_duration_seconds",
			Help: "Time taken for a task from dispatch to terminal state",
			// Buckets cover sampling plus up to three classifier calls
			// with backoff: 1s to ~17min
			Buckets: prometheus.ExponentialBuckets(BucketStart1s, BucketFactor2, BucketCount10),
		},
		[]string{"outcome"},
	)

	m.retriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_retries_total",
		Help: "Total number of task retries after transient failures",
	})

	m.stageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_errors_total",
			Help: "Total number of stage failures by stage and error category",
		},
		[]string{"stage", "category"},
	)

	m.activeWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_active_workers",
		Help: "Number of workers currently processing a task",
	})

	m.filesScannedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_files_scanned_total",
			Help: "Total number of candidate files by detection verdict",
		},
		[]string{"verdict"}, // verdict: opaque, readable
	)

	return nil
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.tasksTotal.Describe(ch)
	m.taskDuration.Describe(ch)
	m.retriesTotal.Describe(ch)
	m.stageErrorsTotal.Describe(ch)
	m.activeWorkers.Describe(ch)
	m.filesScannedTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.tasksTotal.Collect(ch)
	m.taskDuration.Collect(ch)
	m.retriesTotal.Collect(ch)
	m.stageErrorsTotal.Collect(ch)
	m.activeWorkers.Collect(ch)
	m.filesScannedTotal.Collect(ch)
}

// RecordTaskOutcome records a task reaching a terminal state
func (m *PipelineMetrics) RecordTaskOutcome(outcome string) {
	m.tasksTotal.WithLabelValues(outcome).Inc()
}

// RecordTaskDuration records how long a task took to reach a terminal state
func (m *PipelineMetrics) RecordTaskDuration(outcome string, seconds float64) {
	m.taskDuration.WithLabelValues(outcome).Observe(seconds)
}

// RecordRetry records a task re-entering the pipeline after a transient failure
func (m *PipelineMetrics) RecordRetry() {
	m.retriesTotal.Inc()
}

// RecordStageError records a stage failure
func (m *PipelineMetrics) RecordStageError(stage, category string) {
	m.stageErrorsTotal.WithLabelValues(stage, category).Inc()
}

// IncActiveWorkers marks a worker as busy
func (m *PipelineMetrics) IncActiveWorkers() {
	m.activeWorkers.Inc()
}

// DecActiveWorkers marks a worker as idle
func (m *PipelineMetrics) DecActiveWorkers() {
	m.activeWorkers.Dec()
}

// RecordFileScanned records a discovered candidate file and its detection verdict
func (m *PipelineMetrics) RecordFileScanned(verdict string) {
	m.filesScannedTotal.WithLabelValues(verdict).Inc()
}
