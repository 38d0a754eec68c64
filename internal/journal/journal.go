// Package journal persists one JSON line per processed file so a batch
// leaves an auditable trail that later runs and the undo command can
// consume. Every append is synced to stable storage, so an interrupted
// batch still leaves a readable journal.
package journal

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

// Outcome labels what happened to a file by the time its record was written.
type Outcome string

const (
	OutcomeRenamed Outcome = "renamed" // rename committed on disk
	OutcomePlanned Outcome = "planned" // dry run, rename withheld
	OutcomeSkipped Outcome = "skipped" // filename already readable
	OutcomeFailed  Outcome = "failed"  // terminal error in some stage
)

// Record is a single journal line.
type Record struct {
	Timestamp     time.Time `json:"timestamp"`
	TaskID        string    `json:"task_id,omitempty"`
	OriginalPath  string    `json:"original_path"`
	OriginalName  string    `json:"original_name"`
	NewPath       string    `json:"new_path,omitempty"`
	NewName       string    `json:"new_name,omitempty"`
	Outcome       Outcome   `json:"outcome"`
	DryRun        bool      `json:"dry_run"`
	Attempts      int       `json:"attempts,omitempty"`
	Error         string    `json:"error,omitempty"`
	ErrorCategory string    `json:"error_category,omitempty"`
}

func getLogger() *slog.Logger {
	return slog.Default().With("service", "journal")
}

// DefaultPath returns the journal filename for a batch started at now,
// placed in the working directory.
func DefaultPath(now time.Time) string {
	return "rename_log_" + now.Format("20060102_150405") + ".jsonl"
}

// Writer appends records to a JSONL file. Safe for concurrent use; each
// append is written and synced under one lock so records never interleave.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	path string
}

// NewWriter opens path for appending, creating it and its parent
// directory as needed. An empty path selects DefaultPath in the working
// directory.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		path = DefaultPath(time.Now())
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryJournal).
				Context("operation", "create-journal-directory").
				Context("directory", dir).
				Build()
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryJournal).
			Context("operation", "open-journal").
			FileContext(path, 0).
			Build()
	}

	return &Writer{
		file: file,
		enc:  json.NewEncoder(file),
		path: path,
	}, nil
}

// Append writes one record and syncs it to disk. A zero Timestamp is
// filled with the current time.
func (w *Writer) Append(rec *Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	if err := w.enc.Encode(rec); err != nil {
		return errors.New(err).
			Category(errors.CategoryJournal).
			Context("operation", "append-record").
			FileContext(w.path, 0).
			Build()
	}
	if err := w.file.Sync(); err != nil {
		return errors.New(err).
			Category(errors.CategoryJournal).
			Context("operation", "sync-journal").
			FileContext(w.path, 0).
			Build()
	}
	return nil
}

// Path returns the journal file location for the batch summary.
func (w *Writer) Path() string {
	return w.path
}

// Close closes the underlying file. Records are already synced, so Close
// carries no flush obligation.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
