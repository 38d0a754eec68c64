// Package pipeline drives a batch rename run: candidate discovery, a
// bounded worker pool walking each file through sampling, classification,
// name synthesis, conflict resolution and the rename itself, with every
// terminal outcome journaled.
package pipeline

import (
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
)

// getLogger returns the logger for the pipeline package. Batch progress
// belongs on the main application log, not a service file.
func getLogger() *slog.Logger {
	return slog.Default().With("service", "pipeline")
}

// Status tracks a task through the pipeline stages.
type Status int

const (
	StatusPending Status = iota
	StatusSampling
	StatusClassifying
	StatusNaming
	StatusResolving
	StatusRenaming
	StatusDone
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSampling:
		return "sampling"
	case StatusClassifying:
		return "classifying"
	case StatusNaming:
		return "naming"
	case StatusResolving:
		return "resolving"
	case StatusRenaming:
		return "renaming"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is absorbing.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusSkipped
}

// Task carries one candidate file through the pipeline. A task is owned by
// a single worker goroutine from dispatch to terminal state; its fields are
// not synchronized.
type Task struct {
	ID         string // carried in logs, journal records and outcome events
	SourcePath string // absolute, immutable once created
	Dir        string
	Name       string // original base name
	Size       int64

	Status   Status
	Attempts int // classification attempts, including the first

	Description   string // set when classification succeeds
	CandidateName string
	FinalName     string // set at most once, reserved exclusively

	Err error // set when Status is StatusFailed
}

// newID mints the identifiers that tie journal records, log lines and
// events for one task or batch together.
func newID() string {
	return uuid.New().String()
}

func newTask(e Entry) *Task {
	return &Task{
		ID:         newID(),
		SourcePath: e.Path,
		Dir:        filepath.Dir(e.Path),
		Name:       e.Name,
		Size:       e.Size,
		Status:     StatusPending,
	}
}

// fail moves the task to its failed terminal state.
func (t *Task) fail(err error) {
	t.Err = err
	t.Status = StatusFailed
}
