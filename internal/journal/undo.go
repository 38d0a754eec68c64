package journal

import (
	"os"

	"github.com/google/uuid"

	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

// UndoResult summarizes a reversal run.
type UndoResult struct {
	Reverted    int    // renames put back
	Planned     int    // reversals withheld by dry run
	Skipped     int    // eligible records blocked by a safety check
	Failed      int    // reversal rename attempts that errored
	JournalPath string // where the reversal journal was written
}

// Undo replays a journal in reverse, renaming each recorded destination
// back to its source. Only records with a committed rename participate;
// dry-run and non-rename records are ignored. A record is skipped when
// the renamed file is gone or the original name is occupied again, so
// undo never overwrites anything. Reversals are themselves journaled,
// which makes an undo undoable. An empty reversalPath selects the
// default timestamped location in the working directory.
func Undo(journalPath, reversalPath string, dryRun bool) (*UndoResult, error) {
	log := getLogger()

	records, err := ReadFile(journalPath)
	if err != nil {
		return nil, err
	}

	reversal, err := NewWriter(reversalPath)
	if err != nil {
		return nil, err
	}
	defer reversal.Close()

	result := &UndoResult{JournalPath: reversal.Path()}

	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec.Outcome != OutcomeRenamed || rec.DryRun {
			continue
		}

		if _, err := os.Lstat(rec.NewPath); err != nil {
			log.Warn("Skipping reversal, renamed file not found",
				"path", rec.NewPath)
			result.Skipped++
			continue
		}
		if _, err := os.Lstat(rec.OriginalPath); err == nil {
			log.Warn("Skipping reversal, original name occupied",
				"path", rec.OriginalPath)
			result.Skipped++
			continue
		}

		out := &Record{
			TaskID:       uuid.New().String(),
			OriginalPath: rec.NewPath,
			OriginalName: rec.NewName,
			NewPath:      rec.OriginalPath,
			NewName:      rec.OriginalName,
			DryRun:       dryRun,
		}

		if dryRun {
			out.Outcome = OutcomePlanned
			result.Planned++
			log.Info("Would revert rename",
				"from", rec.NewPath,
				"to", rec.OriginalPath)
		} else if err := os.Rename(rec.NewPath, rec.OriginalPath); err != nil {
			ee := errors.New(err).
				Category(errors.CategoryFileIO).
				Context("operation", "undo-rename").
				FileContext(rec.NewPath, 0).
				Build()
			out.Outcome = OutcomeFailed
			out.Error = ee.Error()
			out.ErrorCategory = string(errors.CategoryFileIO)
			result.Failed++
			log.Error("Reversal rename failed",
				"from", rec.NewPath,
				"to", rec.OriginalPath,
				"error", err)
		} else {
			out.Outcome = OutcomeRenamed
			result.Reverted++
			log.Info("Reverted rename",
				"from", rec.NewPath,
				"to", rec.OriginalPath)
		}

		if err := reversal.Append(out); err != nil {
			return nil, err
		}
	}

	log.Info("Undo complete",
		"source_journal", journalPath,
		"reversal_journal", reversal.Path(),
		"reverted", result.Reverted,
		"planned", result.Planned,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result, nil
}
