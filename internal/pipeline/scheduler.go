package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zhu-jl18/vidrename-go/internal/classify"
	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/detect"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
	"github.com/zhu-jl18/vidrename-go/internal/journal"
	"github.com/zhu-jl18/vidrename-go/internal/media"
	"github.com/zhu-jl18/vidrename-go/internal/mqtt"
	"github.com/zhu-jl18/vidrename-go/internal/naming"
	"github.com/zhu-jl18/vidrename-go/internal/notify"
	"github.com/zhu-jl18/vidrename-go/internal/observability"
)

const (
	// probeTimeout bounds the pre-batch service reachability check.
	probeTimeout = 10 * time.Second

	// notifyTimeout bounds the end-of-batch summary push. The push uses its
	// own context so an interrupt still delivers the summary.
	notifyTimeout = 15 * time.Second

	defaultMaxWorkers  = 2
	defaultMaxRetries  = 3
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 10 * time.Second
)

// RunStats summarizes one batch run.
type RunStats struct {
	BatchID     string
	Root        string
	Candidates  int // tasks created for the worker pool
	Renamed     int
	Planned     int // dry run renames that were withheld
	Skipped     int // readable filenames, journaled but never dispatched
	TooSmall    int // below the size floor, ignored entirely
	Failed      int
	Interrupted int // tasks without a terminal outcome after cancellation
	JournalPath string
	Elapsed     time.Duration
}

// Runner wires the pipeline stages together for batch runs.
type Runner struct {
	settings    *conf.Settings
	detector    *detect.Detector
	sampler     *media.Sampler
	classifier  *classify.Classifier
	synthesizer *naming.Synthesizer
	publisher   mqtt.Client // nil when event publishing is disabled
	notifier    *notify.Notifier
	metrics     *observability.Metrics
}

// New builds a Runner from settings. The classifier is required; publisher,
// notifier and metrics are optional integrations and may be nil.
func New(settings *conf.Settings, classifier *classify.Classifier, publisher mqtt.Client, notifier *notify.Notifier, obs *observability.Metrics) (*Runner, error) {
	if settings == nil {
		return nil, errors.Newf("settings are required").
			Category(errors.CategoryValidation).
			Component("pipeline").
			Build()
	}
	if classifier == nil {
		return nil, errors.Newf("classifier is required").
			Category(errors.CategoryValidation).
			Component("pipeline").
			Build()
	}

	return &Runner{
		settings:    settings,
		detector:    detect.New(settings.Scanner.MinHexLength),
		sampler:     media.NewSampler(&settings.Sampler),
		classifier:  classifier,
		synthesizer: naming.NewSynthesizer(&settings.Naming),
		publisher:   publisher,
		notifier:    notifier,
		metrics:     obs,
	}, nil
}

// Run executes one batch over root. Per-file failures are recorded and
// never returned; the error return is reserved for fatal preconditions
// (bad root, unreachable service, unusable journal).
func (r *Runner) Run(ctx context.Context, root string) (*RunStats, error) {
	start := time.Now()
	batchID := newID()
	log := getLogger().With("batch_id", batchID)
	dryRun := r.settings.Input.DryRun

	disc, err := Discover(root, &r.settings.Scanner, r.settings.Input.Recursive, r.detector)
	if err != nil {
		return nil, err
	}

	if r.metrics != nil {
		for range disc.Candidates {
			r.metrics.Pipeline.RecordFileScanned("opaque")
		}
		for range disc.Skipped {
			r.metrics.Pipeline.RecordFileScanned("readable")
		}
	}

	stats := &RunStats{
		BatchID:    batchID,
		Root:       disc.Root,
		Candidates: len(disc.Candidates),
		TooSmall:   len(disc.TooSmall),
	}

	log.Info("Discovery complete",
		"root", disc.Root,
		"candidates", len(disc.Candidates),
		"skipped", len(disc.Skipped),
		"below_size_floor", len(disc.TooSmall),
		"dry_run", dryRun)

	// A dead service fails the batch here, before anything is dispatched,
	// instead of file by file.
	if len(disc.Candidates) > 0 {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := r.classifier.Probe(probeCtx)
		cancel()
		if err != nil {
			return nil, err
		}
	}

	var jw *journal.Writer
	if r.settings.Journal.Enabled {
		jw, err = journal.NewWriter(r.settings.Journal.Path)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := jw.Close(); err != nil {
				log.Warn("Failed to close journal", "error", err)
			}
		}()
		stats.JournalPath = jw.Path()
	}

	// Readable filenames are recorded up front; they never enter the pool.
	for _, e := range disc.Skipped {
		stats.Skipped++
		r.appendRecord(log, jw, &journal.Record{
			TaskID:       newID(),
			OriginalPath: e.Path,
			OriginalName: e.Name,
			Outcome:      journal.OutcomeSkipped,
			DryRun:       dryRun,
		})
		if r.metrics != nil {
			r.metrics.Pipeline.RecordTaskOutcome(string(journal.OutcomeSkipped))
		}
	}

	if len(disc.Candidates) == 0 {
		log.Info("No opaque filenames found, nothing to rename")
		stats.Elapsed = time.Since(start)
		r.notifySummary(log, stats, dryRun)
		return stats, nil
	}

	registry := naming.NewRegistry()
	for _, dir := range disc.CandidateDirs() {
		// Arbitration is only sound against a complete snapshot.
		if err := registry.SnapshotDir(dir); err != nil {
			return nil, err
		}
	}

	publisher := r.publisher
	if publisher != nil {
		if err := publisher.Connect(ctx); err != nil {
			log.Warn("Event publishing disabled for this run", "error", err)
			publisher = nil
		} else {
			defer publisher.Disconnect()
		}
	}

	workers := r.settings.Scheduler.MaxWorkers
	if workers <= 0 {
		workers = defaultMaxWorkers
	}

	tasks := make([]*Task, 0, len(disc.Candidates))
	for _, e := range disc.Candidates {
		tasks = append(tasks, newTask(e))
	}

	log.Info("Dispatching tasks", "tasks", len(tasks), "workers", workers)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, task := range tasks {
		// Cancellation stops dispatch immediately. Tasks never dispatched
		// get no journal record.
		if gctx.Err() != nil {
			mu.Lock()
			stats.Interrupted += len(tasks) - i
			mu.Unlock()
			break
		}

		t := task
		g.Go(func() error {
			if gctx.Err() != nil {
				mu.Lock()
				stats.Interrupted++
				mu.Unlock()
				return nil
			}

			taskStart := time.Now()
			r.runTask(gctx, t, registry, dryRun)

			mu.Lock()
			switch {
			case t.Status == StatusDone && dryRun:
				stats.Planned++
			case t.Status == StatusDone:
				stats.Renamed++
			case t.Status == StatusFailed:
				stats.Failed++
			default:
				stats.Interrupted++
			}
			mu.Unlock()

			if t.Status.Terminal() {
				r.finishTask(gctx, log, jw, publisher, t, dryRun, time.Since(taskStart))
			} else {
				log.Info("Task interrupted before completion",
					"task_id", t.ID,
					"file", t.Name,
					"stage", t.Status.String())
			}
			return nil
		})
	}

	_ = g.Wait()

	stats.Elapsed = time.Since(start)

	log.Info("Batch complete",
		"renamed", stats.Renamed,
		"planned", stats.Planned,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"interrupted", stats.Interrupted,
		"elapsed", stats.Elapsed.Round(time.Millisecond),
		"journal", stats.JournalPath)

	r.notifySummary(log, stats, dryRun)

	return stats, nil
}

// runTask walks one task from Pending to a terminal state. On cancellation
// the task is left at its current stage without an outcome.
func (r *Runner) runTask(ctx context.Context, t *Task, registry *naming.Registry, dryRun bool) {
	log := getLogger().With("task_id", t.ID, "file", t.Name)

	if r.metrics != nil {
		r.metrics.Pipeline.IncActiveWorkers()
		defer r.metrics.Pipeline.DecActiveWorkers()
	}

	maxAttempts := r.settings.Scheduler.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxRetries
	}

	t.Status = StatusSampling
	fp, err := classify.FingerprintFor(t.SourcePath)
	if err != nil {
		t.fail(err)
		return
	}

	if desc, ok := r.classifier.CachedDescription(fp); ok {
		log.Debug("Using cached description", "description", desc)
		t.Description = desc
	} else if !r.classifyWithRetry(ctx, log, t, fp, maxAttempts) {
		return
	}

	t.Status = StatusNaming
	t.CandidateName = r.synthesizer.Synthesize(t.Description, filepath.Ext(t.Name))

	t.Status = StatusResolving
	finalName, err := registry.Reserve(t.Dir, t.CandidateName)
	if err != nil {
		r.recordStageError(t, err)
		t.fail(err)
		return
	}
	t.FinalName = finalName

	t.Status = StatusRenaming
	if dryRun {
		// The reservation is kept so later tasks in this run see the same
		// collisions a real run would.
		log.Info("Rename planned", "from", t.Name, "to", finalName)
		t.Status = StatusDone
		return
	}

	targetPath := filepath.Join(t.Dir, finalName)
	if _, err := os.Lstat(targetPath); err == nil {
		registry.Release(t.Dir, finalName)
		err := errors.Newf("target name %q appeared on disk after reservation", finalName).
			Category(errors.CategoryConflict).
			Context("operation", "rename-postcheck").
			Build()
		r.recordStageError(t, err)
		t.fail(err)
		return
	}

	if err := os.Rename(t.SourcePath, targetPath); err != nil {
		// Rename failures are terminal. The name goes back to the pool.
		registry.Release(t.Dir, finalName)
		werr := errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "rename").
			FileContext(t.SourcePath, t.Size).
			Build()
		r.recordStageError(t, werr)
		t.fail(werr)
		return
	}

	log.Info("File renamed", "from", t.Name, "to", finalName)
	t.Status = StatusDone
}

// classifyWithRetry owns the retry schedule: sampling and classification
// are retried as a whole with fresh frames, bounded by maxAttempts, with
// capped exponential backoff between attempts. Returns false when the task
// failed or was interrupted.
func (r *Runner) classifyWithRetry(ctx context.Context, log *slog.Logger, t *Task, fp classify.Fingerprint, maxAttempts int) bool {
	for {
		t.Attempts++

		desc, err := r.attemptOnce(ctx, t, fp)
		if err == nil {
			t.Description = desc
			return true
		}

		if ctx.Err() != nil {
			// Shutting down. The attempt's error is kept for diagnostics
			// but the task has no outcome.
			t.Err = err
			return false
		}

		r.recordStageError(t, err)

		if !errors.IsTransient(err) {
			t.fail(err)
			return false
		}
		if t.Attempts >= maxAttempts {
			t.fail(r.exhaustedError(t, err))
			return false
		}

		delay := backoffDelay(t.Attempts, r.settings.Scheduler.BackoffBase, r.settings.Scheduler.BackoffMax)
		log.Warn("Transient failure, retrying",
			"stage", t.Status.String(),
			"attempt", t.Attempts,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err)
		if r.metrics != nil {
			r.metrics.Pipeline.RecordRetry()
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.Err = err
			return false
		case <-timer.C:
		}
	}
}

// attemptOnce runs one sampling plus classification pass. Frames are local
// to the attempt: the task never holds them past classification.
func (r *Runner) attemptOnce(ctx context.Context, t *Task, fp classify.Fingerprint) (string, error) {
	t.Status = StatusSampling
	src, err := r.sampler.Frames(ctx, t.SourcePath)
	if err != nil {
		return "", err
	}
	frames, err := media.CollectFrames(ctx, src)
	if err != nil {
		return "", err
	}

	t.Status = StatusClassifying
	return r.classifier.Describe(ctx, fp, frames)
}

// exhaustedError wraps the last transient error in the failing stage's own
// category, so the journal shows a classification failure rather than the
// final network blip.
func (r *Runner) exhaustedError(t *Task, last error) error {
	category := errors.CategoryClassification
	operation := "classify"
	if t.Status == StatusSampling {
		category = errors.CategoryMedia
		operation = "sample"
	}
	return errors.Newf("%s failed after %d attempts: %w", operation, t.Attempts, last).
		Category(category).
		Context("operation", operation+"-retries-exhausted").
		Context("attempts", t.Attempts).
		Build()
}

// finishTask writes the journal record for a terminal task, publishes the
// outcome event, and records metrics. The journal comes first: it is the
// source of truth, everything else is best effort.
func (r *Runner) finishTask(ctx context.Context, log *slog.Logger, jw *journal.Writer, publisher mqtt.Client, t *Task, dryRun bool, elapsed time.Duration) {
	rec := &journal.Record{
		TaskID:       t.ID,
		OriginalPath: t.SourcePath,
		OriginalName: t.Name,
		DryRun:       dryRun,
		Attempts:     t.Attempts,
	}

	switch t.Status {
	case StatusDone:
		rec.NewName = t.FinalName
		rec.NewPath = filepath.Join(t.Dir, t.FinalName)
		if dryRun {
			rec.Outcome = journal.OutcomePlanned
		} else {
			rec.Outcome = journal.OutcomeRenamed
		}
	case StatusFailed:
		rec.Outcome = journal.OutcomeFailed
		rec.Error = t.Err.Error()
		rec.ErrorCategory = categoryLabel(t.Err)
		log.Error("Task failed",
			"task_id", t.ID,
			"file", t.Name,
			"attempts", t.Attempts,
			"error", t.Err)
	default:
		return
	}

	r.appendRecord(log, jw, rec)

	if publisher != nil && publisher.IsConnected() {
		if payload, err := json.Marshal(rec); err == nil {
			if err := publisher.Publish(ctx, r.settings.Output.MQTT.Topic, string(payload)); err != nil {
				log.Warn("Failed to publish outcome event", "task_id", t.ID, "error", err)
			}
		}
	}

	if r.metrics != nil {
		r.metrics.Pipeline.RecordTaskOutcome(string(rec.Outcome))
		r.metrics.Pipeline.RecordTaskDuration(string(rec.Outcome), elapsed.Seconds())
	}
}

// appendRecord writes one journal record, tolerating a nil writer.
// A journal write failure must not fail the task whose rename already
// committed, so it is logged and swallowed.
func (r *Runner) appendRecord(log *slog.Logger, jw *journal.Writer, rec *journal.Record) {
	if jw == nil {
		return
	}
	if err := jw.Append(rec); err != nil {
		log.Error("Failed to append journal record",
			"path", rec.OriginalPath,
			"outcome", rec.Outcome,
			"error", err)
	}
}

// recordStageError feeds the stage failure metric.
func (r *Runner) recordStageError(t *Task, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.Pipeline.RecordStageError(t.Status.String(), categoryLabel(err))
}

// notifySummary pushes the batch summary when notifications are configured.
// A fresh context is used so a canceled batch still reports.
func (r *Runner) notifySummary(log *slog.Logger, stats *RunStats, dryRun bool) {
	if !r.notifier.Enabled() {
		return
	}

	var msg string
	if dryRun {
		msg = fmt.Sprintf("Dry run over %s: %d renames planned, %d skipped, %d failed.",
			stats.Root, stats.Planned, stats.Skipped, stats.Failed)
	} else {
		msg = fmt.Sprintf("Processed %s: %d renamed, %d skipped, %d failed.",
			stats.Root, stats.Renamed, stats.Skipped, stats.Failed)
	}
	if stats.Interrupted > 0 {
		msg += fmt.Sprintf(" Interrupted before %d task(s) finished.", stats.Interrupted)
	}
	if stats.JournalPath != "" {
		msg += " Journal: " + stats.JournalPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := r.notifier.Send(ctx, "vidrename finished", msg); err != nil {
		log.Warn("Failed to send batch summary notification", "error", err)
	}
}

// backoffDelay returns the pause before the next attempt: the base delay
// doubled per completed attempt, capped.
func backoffDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		base = defaultBackoffBase
	}
	if maxDelay <= 0 {
		maxDelay = defaultBackoffMax
	}
	if attempt < 1 {
		attempt = 1
	}
	// The shift saturates long before it could overflow.
	if attempt > 20 {
		return maxDelay
	}
	delay := base << (attempt - 1)
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// categoryLabel extracts the error category for journal records and metric
// labels.
func categoryLabel(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return string(ee.Category)
	}
	return ""
}
