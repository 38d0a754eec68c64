package journal

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

func TestDefaultPath(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 8, 22, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, "rename_log_20260822_143005.jsonl", DefaultPath(at))
}

func TestWriterAppendAndReadBack(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch.jsonl")
	w, err := NewWriter(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	records := []*Record{
		{
			TaskID:       "task-1",
			OriginalPath: "/videos/a1b2c3d4e5f6a7b8c9d0.mp4",
			OriginalName: "a1b2c3d4e5f6a7b8c9d0.mp4",
			NewPath:      "/videos/一只猫在玩球.mp4",
			NewName:      "一只猫在玩球.mp4",
			Outcome:      OutcomeRenamed,
			Attempts:     1,
		},
		{
			TaskID:       "task-2",
			OriginalPath: "/videos/holiday.mp4",
			OriginalName: "holiday.mp4",
			Outcome:      OutcomeSkipped,
		},
		{
			TaskID:        "task-3",
			OriginalPath:  "/videos/deadbeefdeadbeefdead.mkv",
			OriginalName:  "deadbeefdeadbeefdead.mkv",
			Outcome:       OutcomeFailed,
			Attempts:      3,
			Error:         "vision service error (status 500)",
			ErrorCategory: "classification",
		},
	}
	for _, rec := range records {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, OutcomeRenamed, got[0].Outcome)
	assert.Equal(t, "/videos/一只猫在玩球.mp4", got[0].NewPath)
	assert.Equal(t, "一只猫在玩球.mp4", got[0].NewName)
	assert.Equal(t, 1, got[0].Attempts)
	assert.False(t, got[0].DryRun)

	assert.Equal(t, OutcomeSkipped, got[1].Outcome)
	assert.Empty(t, got[1].NewPath)

	assert.Equal(t, OutcomeFailed, got[2].Outcome)
	assert.Equal(t, 3, got[2].Attempts)
	assert.Equal(t, "classification", got[2].ErrorCategory)
}

func TestWriterFillsZeroTimestamp(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch.jsonl")
	w, err := NewWriter(path)
	require.NoError(t, err)

	before := time.Now()
	require.NoError(t, w.Append(&Record{
		OriginalPath: "/videos/x.mp4",
		OriginalName: "x.mp4",
		Outcome:      OutcomeSkipped,
	}))
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.WithinDuration(t, before, got[0].Timestamp, time.Minute)
}

func TestWriterAppendsAcrossInstances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch.jsonl")

	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(&Record{OriginalPath: "/videos/a.mp4", Outcome: OutcomeRenamed}))
	require.NoError(t, w.Close())

	w, err = NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(&Record{OriginalPath: "/videos/b.mp4", Outcome: OutcomeSkipped}))
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/videos/a.mp4", got[0].OriginalPath)
	assert.Equal(t, "/videos/b.mp4", got[1].OriginalPath)
}

func TestWriterCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "journals", "batch.jsonl")
	w, err := NewWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(&Record{OriginalPath: "/videos/a.mp4", Outcome: OutcomeSkipped}))
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriterConcurrentAppends(t *testing.T) {
	t.Parallel()

	const writers = 10
	const perWriter = 20

	path := filepath.Join(t.TempDir(), "batch.jsonl")
	w, err := NewWriter(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range perWriter {
				assert.NoError(t, w.Append(&Record{
					TaskID:       "task",
					OriginalPath: "/videos/clip.mp4",
					Outcome:      OutcomeRenamed,
					Attempts:     i*perWriter + j,
				}))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	// Every line parses, so appends never interleaved.
	require.Len(t, got, writers*perWriter)

	seen := make(map[int]struct{}, len(got))
	for _, rec := range got {
		seen[rec.Attempts] = struct{}{}
	}
	assert.Len(t, seen, writers*perWriter)
}

func TestReadFileToleratesTruncatedFinalLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch.jsonl")
	content := `{"timestamp":"2026-08-22T14:30:05Z","original_path":"/videos/a.mp4","original_name":"a.mp4","outcome":"renamed","dry_run":false}
{"timestamp":"2026-08-22T14:30:06Z","original_path":"/videos/b.mp4","outco`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/videos/a.mp4", got[0].OriginalPath)
}

func TestReadFileSkipsBlankLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch.jsonl")
	content := "\n" + `{"original_path":"/videos/a.mp4","outcome":"skipped","dry_run":false}` + "\n\n" +
		`{"original_path":"/videos/b.mp4","outcome":"renamed","dry_run":true}` + "\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].DryRun)
}

func TestReadFileMissing(t *testing.T) {
	t.Parallel()

	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryJournal))
}
