package classify

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
)

// defaultCacheTTL is used when the configured TTL is zero or negative.
const defaultCacheTTL = 168 * time.Hour

// cacheFileName is the persistence file inside the user cache directory.
const cacheFileName = "descriptions.gob"

// Fingerprint identifies a source file for cache lookups. Size and
// modification time are part of the key so a replaced file with the same
// name never reuses a stale description.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FingerprintFor stats the file at path and returns its fingerprint.
func FingerprintFor(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("operation", "fingerprint").
			FileContext(path, 0).
			Build()
	}
	return Fingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Key returns the cache key for this fingerprint.
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%s|%d|%d", f.Path, f.Size, f.ModTime.UnixNano())
}

// DescriptionCache stores classification results keyed by source-file
// fingerprint, persisted between runs so a dry run followed by a real run
// pays for each service call once.
type DescriptionCache struct {
	store *cache.Cache
	path  string
}

// NewDescriptionCache creates a cache from settings and loads any previously
// persisted entries. A missing or unreadable persistence file is not an
// error; the cache simply starts empty.
func NewDescriptionCache(settings *conf.CacheSettings) (*DescriptionCache, error) {
	ttl := settings.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	path := settings.Path
	if path == "" {
		cacheDir, err := conf.GetCacheDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(cacheDir, cacheFileName)
	}

	store := cache.New(ttl, ttl*2)
	if err := store.LoadFile(path); err != nil {
		logger.Debug("No usable description cache file, starting empty",
			"path", path,
			"error", err)
	} else {
		logger.Debug("Description cache loaded",
			"path", path,
			"entries", store.ItemCount())
	}

	return &DescriptionCache{store: store, path: path}, nil
}

// Get returns the cached description for the fingerprint if present.
func (d *DescriptionCache) Get(fp Fingerprint) (string, bool) {
	cached, found := d.store.Get(fp.Key())
	if !found {
		return "", false
	}
	desc, ok := cached.(string)
	if !ok {
		return "", false
	}
	return desc, true
}

// Set stores a description under the fingerprint with the default TTL.
func (d *DescriptionCache) Set(fp Fingerprint, description string) {
	d.store.Set(fp.Key(), description, cache.DefaultExpiration)
}

// Save persists the cache to its backing file.
func (d *DescriptionCache) Save() error {
	if err := d.store.SaveFile(d.path); err != nil {
		return errors.New(err).
			Category(errors.CategoryCache).
			Context("operation", "save-description-cache").
			Context("path", d.path).
			Build()
	}
	return nil
}

// Len returns the number of cached descriptions, expired entries included
// until the janitor sweeps them.
func (d *DescriptionCache) Len() int {
	return d.store.ItemCount()
}

// Flush drops all cached descriptions.
func (d *DescriptionCache) Flush() {
	d.store.Flush()
}

// Path returns the persistence file location.
func (d *DescriptionCache) Path() string {
	return d.path
}
