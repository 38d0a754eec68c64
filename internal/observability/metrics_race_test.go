package observability

import (
	"sync"
	"testing"
)

// TestNewMetricsConcurrency verifies that NewMetrics can be called concurrently
// without causing race conditions
func TestNewMetricsConcurrency(t *testing.T) {
	// Number of concurrent goroutines to test with
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Start multiple goroutines that all try to create metrics concurrently
	for range numGoroutines {
		go func() {
			defer wg.Done()

			// Call NewMetrics - this should not cause a race condition
			metrics, err := NewMetrics()
			if err != nil {
				t.Errorf("NewMetrics failed: %v", err)
				return
			}

			// Verify metrics is not nil
			if metrics == nil {
				t.Error("NewMetrics returned nil")
				return
			}

			// Verify all metric fields are initialized
			if metrics.registry == nil {
				t.Error("metrics.registry is nil")
			}
			if metrics.Pipeline == nil {
				t.Error("metrics.Pipeline is nil")
			}
			if metrics.Classifier == nil {
				t.Error("metrics.Classifier is nil")
			}
			if metrics.MQTT == nil {
				t.Error("metrics.MQTT is nil")
			}
		}()
	}

	// Wait for all goroutines to complete
	wg.Wait()
}

// TestNewMetricsInstancesAreIndependent verifies that each NewMetrics call
// gets its own registry, so recording on one instance never shows up in another
func TestNewMetricsInstancesAreIndependent(t *testing.T) {
	firstMetrics, err := NewMetrics()
	if err != nil {
		t.Fatalf("Failed to create first metrics: %v", err)
	}

	secondMetrics, err := NewMetrics()
	if err != nil {
		t.Fatalf("Failed to create second metrics: %v", err)
	}

	if firstMetrics == secondMetrics {
		t.Error("Expected different metrics instances")
	}
	if firstMetrics.Registry() == secondMetrics.Registry() {
		t.Error("Expected each instance to own its registry")
	}

	// Record on the first instance only
	firstMetrics.Pipeline.RecordRetry()

	families, err := secondMetrics.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "pipeline_retries_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if m.GetCounter().GetValue() != 0 {
				t.Error("Recording on one instance leaked into another registry")
			}
		}
	}
}

// TestConcurrentRecording verifies that recording on a shared instance from
// many goroutines is safe
func TestConcurrentRecording(t *testing.T) {
	metrics, err := NewMetrics()
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	var wg sync.WaitGroup
	const numGoroutines = 20

	wg.Add(numGoroutines)
	for range numGoroutines {
		go func() {
			defer wg.Done()
			metrics.Pipeline.RecordRetry()
			metrics.Pipeline.IncActiveWorkers()
			metrics.Pipeline.DecActiveWorkers()
			metrics.Classifier.RecordRequest("success")
			metrics.MQTT.RecordPublish("success")
		}()
	}
	wg.Wait()

	if _, err := metrics.Registry().Gather(); err != nil {
		t.Errorf("Gather after concurrent recording failed: %v", err)
	}
}
