package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/detect"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

// Entry is one video file seen during discovery.
type Entry struct {
	Path string // absolute
	Name string // base name, extension included
	Size int64
	Kind detect.Kind
}

// Discovery is the snapshot of one directory walk, split by what happens
// to each file: candidates enter the worker pool, skipped files only get a
// journal record, files below the size floor are ignored entirely.
type Discovery struct {
	Root       string
	Candidates []Entry
	Skipped    []Entry
	TooSmall   []Entry
}

// CandidateDirs returns the unique parent directories of the candidates.
// Each must be snapshotted into the name registry before arbitration starts.
func (d *Discovery) CandidateDirs() []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, e := range d.Candidates {
		dir := filepath.Dir(e.Path)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	return dirs
}

// Discover walks root and sorts every video file by detection verdict and
// size floor. The listing is a snapshot: nothing is checked again until
// the moment of rename.
func Discover(root string, scanner *conf.ScannerSettings, recursive bool, det *detect.Detector) (*Discovery, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryValidation).
			Context("operation", "resolve-input-path").
			Build()
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, errors.Newf("input directory does not exist: %s", absRoot).
			Category(errors.CategoryNotFound).
			Context("operation", "discover").
			Build()
	}
	if !info.IsDir() {
		return nil, errors.Newf("input path is not a directory: %s", absRoot).
			Category(errors.CategoryValidation).
			Context("operation", "discover").
			Build()
	}

	allowed := extensionSet(scanner.Extensions)
	d := &Discovery{Root: absRoot}

	walkErr := filepath.WalkDir(absRoot, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if de.IsDir() {
			// If recursion is not enabled, stay in the root directory.
			if !recursive && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(de.Name()))
		if _, ok := allowed[ext]; !ok {
			return nil
		}

		fi, err := de.Info()
		if err != nil {
			getLogger().Warn("Skipping unreadable directory entry", "path", path, "error", err)
			return nil
		}

		entry := Entry{
			Path: path,
			Name: de.Name(),
			Size: fi.Size(),
			Kind: det.Classify(de.Name()),
		}

		switch {
		case scanner.MinSize > 0 && entry.Size < scanner.MinSize:
			d.TooSmall = append(d.TooSmall, entry)
		case entry.Kind == detect.KindReadable:
			d.Skipped = append(d.Skipped, entry)
		default:
			d.Candidates = append(d.Candidates, entry)
		}
		return nil
	})
	if walkErr != nil {
		return nil, errors.New(walkErr).
			Category(errors.CategoryFileIO).
			Context("operation", "discover").
			Context("root", absRoot).
			Build()
	}

	return d, nil
}

// extensionSet normalizes the configured extension list into a lookup set
// of lowercase dotted extensions.
func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}
