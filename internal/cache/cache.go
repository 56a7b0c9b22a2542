// Package cache stores study outcomes keyed by everything that determines
// them: study identity, engine config (including the seed), and the content
// of both sample sources. Only seeded runs are cacheable; an unseeded run is
// not reproducible, so replaying its outcome would be misleading.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/exchangelabs/permutest/internal/models"
)

const entryExt = ".json.gz"

// Cache provides caching for study outcomes.
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Key generates a unique cache key for a study run. The key covers the
// study name and description, the full engine config, both sample
// references, and the content of local sample files (remote references are
// keyed by their locator). baseDir resolves relative sample paths.
func Key(study *models.Study, baseDir string) (string, error) {
	h := sha256.New()

	writeString(h, study.Name)
	writeString(h, study.Description)

	cfgJSON, err := json.Marshal(study.Config)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	h.Write(cfgJSON) //nolint:errcheck

	for _, ref := range []models.SampleRef{study.Samples.Control, study.Samples.Treatment} {
		refJSON, err := json.Marshal(ref)
		if err != nil {
			return "", fmt.Errorf("marshaling sample ref: %w", err)
		}
		h.Write(refJSON) //nolint:errcheck

		if err := hashSampleContent(h, ref.Path, baseDir); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashSampleContent mixes the content of a local sample file into the hash.
// Remote references and missing files contribute only their locator, so the
// key still changes when a path is added or removed.
func hashSampleContent(h io.Writer, path, baseDir string) error {
	if strings.HasPrefix(path, "az://") || strings.HasPrefix(path, "https://") {
		writeString(h, path)
		return nil
	}

	resolved := path
	if !filepath.IsAbs(resolved) && baseDir != "" {
		resolved = filepath.Join(baseDir, resolved)
	}

	f, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			writeString(h, path)
			return nil
		}
		return fmt.Errorf("hashing sample %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hashing sample %s: %w", path, err)
	}
	return nil
}

// Get retrieves a cached outcome if it exists.
func (c *Cache) Get(key string) (*models.Outcome, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.entryPath(key))
	if err != nil {
		// Cache miss
		return nil, false
	}
	defer f.Close() //nolint:errcheck

	gz, err := gzip.NewReader(f)
	if err != nil {
		// Corrupt entry, treat as miss
		return nil, false
	}
	defer gz.Close() //nolint:errcheck

	var outcome models.Outcome
	if err := json.NewDecoder(gz).Decode(&outcome); err != nil {
		return nil, false
	}

	return &outcome, true
}

// Put stores an outcome in the cache.
func (c *Cache) Put(key string, outcome *models.Outcome) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	f, err := os.Create(c.entryPath(key))
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	defer f.Close() //nolint:errcheck

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(outcome); err != nil {
		gz.Close() //nolint:errcheck
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("flushing cache entry: %w", err)
	}

	return nil
}

// Clear removes all cached results. It refuses to delete a directory that
// contains anything other than cache entries.
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	if len(entries) > 0 {
		hasValidCache := false
		for _, entry := range entries {
			if entry.IsDir() {
				return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
			}
			if strings.HasSuffix(entry.Name(), entryExt) {
				hasValidCache = true
			} else {
				return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
			}
		}
		if !hasValidCache {
			return fmt.Errorf("no valid cache files found in directory - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// entryPath returns the file path for a cache key.
func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

func writeString(w io.Writer, s string) {
	// Null byte delimiter prevents hash collisions between adjacent fields.
	w.Write([]byte(s + "\x00")) //nolint:errcheck
}
