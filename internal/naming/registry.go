package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

// maxDisambiguator bounds the numeric suffix search. Hitting it means the
// directory holds an absurd number of near-identical names and the file is
// better off failed than renamed.
const maxDisambiguator = 100000

// Registry arbitrates filename claims for a batch. Names already on disk
// and names reserved by in-flight tasks share one namespace, scoped per
// directory and compared case-insensitively so the result is safe on
// case-preserving filesystems.
type Registry struct {
	mu       sync.Mutex
	onDisk   map[string]struct{}
	reserved map[string]struct{}
}

// NewRegistry creates an empty registry. Call SnapshotDir for every
// directory that will receive renames before reserving names in it.
func NewRegistry() *Registry {
	return &Registry{
		onDisk:   make(map[string]struct{}),
		reserved: make(map[string]struct{}),
	}
}

// key scopes a name to its directory. Lowercasing makes "Video.mp4" and
// "video.mp4" collide, which they do on the filesystems this tool is
// mostly pointed at.
func key(dir, name string) string {
	return strings.ToLower(filepath.Join(dir, name))
}

// SnapshotDir records every entry of dir as occupied. Entries that exist
// before the batch starts participate in collision arbitration like any
// reservation, whether or not this run created them.
func (r *Registry) SnapshotDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "snapshot-directory").
			Context("directory", dir).
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		r.onDisk[key(dir, entry.Name())] = struct{}{}
	}
	return nil
}

// Reserve claims candidate in dir, or the first free disambiguated
// variant (stem_2.ext, stem_3.ext, ...). The check and the claim happen
// under one lock, so two tasks racing for the same name always receive
// distinct results. The returned name stays claimed until Release.
func (r *Registry) Reserve(dir, candidate string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.free(dir, candidate) {
		r.reserved[key(dir, candidate)] = struct{}{}
		return candidate, nil
	}

	ext := filepath.Ext(candidate)
	stem := strings.TrimSuffix(candidate, ext)
	for n := 2; n <= maxDisambiguator; n++ {
		name := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if r.free(dir, name) {
			r.reserved[key(dir, name)] = struct{}{}
			return name, nil
		}
	}

	return "", errors.Newf("no free variant of %q in %s after %d candidates", candidate, dir, maxDisambiguator).
		Category(errors.CategoryResolution).
		Context("operation", "reserve-name").
		Context("directory", dir).
		Build()
}

// Release frees a reservation after a failed rename. Names recorded by
// SnapshotDir are never released; a successful rename simply keeps its
// reservation for the rest of the batch.
func (r *Registry) Release(dir, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, key(dir, name))
}

// free reports whether name is unclaimed in dir. Callers hold r.mu.
func (r *Registry) free(dir, name string) bool {
	k := key(dir, name)
	if _, taken := r.onDisk[k]; taken {
		return false
	}
	_, taken := r.reserved[k]
	return !taken
}
