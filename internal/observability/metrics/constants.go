// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Stage label values for pipeline metrics.
const (
	// StageSampling represents frame sampling operations.
	StageSampling = "sampling"
	// StageClassifying represents content classification operations.
	StageClassifying = "classifying"
	// StageNaming represents name synthesis operations.
	StageNaming = "naming"
	// StageResolving represents conflict resolution operations.
	StageResolving = "resolving"
	// StageRenaming represents rename commit operations.
	StageRenaming = "renaming"
)

// Outcome label values for terminal task states.
const (
	// OutcomeRenamed is the label for committed renames.
	OutcomeRenamed = "renamed"
	// OutcomePlanned is the label for dry-run renames that were not committed.
	OutcomePlanned = "planned"
	// OutcomeSkipped is the label for files that needed no processing.
	OutcomeSkipped = "skipped"
	// OutcomeFailed is the label for tasks that ended in an error.
	OutcomeFailed = "failed"
)

// Status label values shared by request-style metrics.
const (
	// StatusSuccess is the label for successful operations.
	StatusSuccess = "success"
	// StatusError is the label for failed operations.
	StatusError = "error"
)

// Cache result label values.
const (
	// CacheHit is the label for cache lookups that found a live entry.
	CacheHit = "hit"
	// CacheMiss is the label for cache lookups that found nothing.
	CacheMiss = "miss"
)

// Verdict label values for scanner metrics.
const (
	// VerdictOpaque is the label for files with machine-generated names.
	VerdictOpaque = "opaque"
	// VerdictReadable is the label for files with human-readable names.
	VerdictReadable = "readable"
)

// Histogram bucket configuration constants.
// These define the base values and factors for exponential bucket generation.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1
	// BucketStart1s is the starting bucket for 1s histograms (1s to ~17min range).
	BucketStart1s = 1.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// ShutdownTimeout is the timeout for graceful shutdown operations.
const ShutdownTimeout = 5 * time.Second
