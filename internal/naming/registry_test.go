package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

// populateDir creates empty files so SnapshotDir has something to record.
func populateDir(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
}

func TestReserveUncontestedName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	got, err := r.Reserve("/videos", "一只猫在玩球.mp4")
	require.NoError(t, err)
	assert.Equal(t, "一只猫在玩球.mp4", got)
}

func TestReserveDisambiguatesAgainstSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	populateDir(t, dir, "clip.mp4", "clip_2.mp4")

	r := NewRegistry()
	require.NoError(t, r.SnapshotDir(dir))

	got, err := r.Reserve(dir, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "clip_3.mp4", got)
}

func TestReserveIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	populateDir(t, dir, "Video.mp4")

	r := NewRegistry()
	require.NoError(t, r.SnapshotDir(dir))

	got, err := r.Reserve(dir, "video.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video_2.mp4", got)
}

func TestReserveScopedPerDirectory(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	first, err := r.Reserve("/videos/a", "clip.mp4")
	require.NoError(t, err)
	second, err := r.Reserve("/videos/b", "clip.mp4")
	require.NoError(t, err)

	// The same name is free in a different directory.
	assert.Equal(t, "clip.mp4", first)
	assert.Equal(t, "clip.mp4", second)
}

func TestReserveSequentialCollisions(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	want := []string{"clip.mp4", "clip_2.mp4", "clip_3.mp4", "clip_4.mp4"}
	for _, w := range want {
		got, err := r.Reserve("/videos", "clip.mp4")
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
}

func TestConcurrentReservationsAreUnique(t *testing.T) {
	t.Parallel()

	const workers = 50

	r := NewRegistry()
	results := make([]string, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := r.Reserve("/videos", "clip.mp4")
			assert.NoError(t, err)
			results[i] = name
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers)
	unmodified := 0
	variant := regexp.MustCompile(`^clip_\d+\.mp4$`)
	for _, name := range results {
		_, dup := seen[name]
		assert.False(t, dup, "name %q handed out twice", name)
		seen[name] = struct{}{}

		if name == "clip.mp4" {
			unmodified++
		} else {
			assert.Regexp(t, variant, name)
		}
	}
	assert.Equal(t, 1, unmodified, "exactly one caller gets the plain name")
	assert.Len(t, seen, workers)
}

func TestReleaseFreesReservation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	_, err := r.Reserve("/videos", "clip.mp4")
	require.NoError(t, err)
	second, err := r.Reserve("/videos", "clip.mp4")
	require.NoError(t, err)
	require.Equal(t, "clip_2.mp4", second)

	r.Release("/videos", second)

	again, err := r.Reserve("/videos", "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "clip_2.mp4", again)
}

func TestReleaseDoesNotFreeSnapshotNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	populateDir(t, dir, "clip.mp4")

	r := NewRegistry()
	require.NoError(t, r.SnapshotDir(dir))

	r.Release(dir, "clip.mp4")

	got, err := r.Reserve(dir, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "clip_2.mp4", got)
}

func TestReserveExhaustionFails(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.reserved[key("/videos", "clip.mp4")] = struct{}{}
	for n := 2; n <= maxDisambiguator; n++ {
		r.reserved[key("/videos", fmt.Sprintf("clip_%d.mp4", n))] = struct{}{}
	}

	_, err := r.Reserve("/videos", "clip.mp4")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryResolution))
}

func TestSnapshotDirMissingDirectory(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	err := r.SnapshotDir(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}
