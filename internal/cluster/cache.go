package cluster

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/couchcryptid/crime-map-etl/internal/domain"
)

// ErrCacheMiss is returned by Cache.Load when no entry exists for a key.
var ErrCacheMiss = errors.New("cluster cache miss")

// Cache persists cluster results keyed by (label, k).
type Cache interface {
	Load(label string, k int) (domain.ClusterResult, error)
	Store(label string, k int, result domain.ClusterResult) error
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileLabel makes label safe for a single path element by collapsing runs of
// other characters to "_", e.g. "a/b" -> "a_b".
func FileLabel(label string) string {
	return unsafeFileChars.ReplaceAllString(label, "_")
}

// FileCache stores one JSON file per (label, k) in a directory. Lookup is by
// file name only; a cached entry is served even if the input data changed
// since it was written.
type FileCache struct {
	dir string
}

// NewFileCache returns a cache rooted at dir. The directory is created on the
// first Store.
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

// Path returns the file backing (label, k), e.g. "cache/crime_5.json".
func (c *FileCache) Path(label string, k int) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%d.json", FileLabel(label), k))
}

// Load reads the cached result for (label, k). A missing file yields
// ErrCacheMiss; an unreadable or corrupt file yields any other error.
func (c *FileCache) Load(label string, k int) (domain.ClusterResult, error) {
	path := c.Path(label, k)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cluster cache %s: %w", path, err)
	}

	var result domain.ClusterResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode cluster cache %s: %w", path, err)
	}
	return result, nil
}

// Store writes result for (label, k), replacing any previous entry.
func (c *FileCache) Store(label string, k int, result domain.ClusterResult) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cluster cache dir: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cluster cache: %w", err)
	}
	path := c.Path(label, k)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cluster cache %s: %w", path, err)
	}
	return nil
}
