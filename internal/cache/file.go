package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileEntry struct {
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"stored_at"`
}

// FileCache keeps every entry in one JSON document. Writes drop expired
// entries and rewrite the whole file through a temp file and rename. Prefer
// the memory or redis backend for large batches.
type FileCache struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]fileEntry
}

func NewFile(path string, ttl time.Duration) (*FileCache, error) {
	c := &FileCache{path: path, ttl: ttl, now: time.Now, entries: map[string]fileEntry{}}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("decode cache file %s: %w", path, err)
	}
	return c, nil
}

func (c *FileCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok || c.expired(e) {
		return false, nil
	}
	if err := json.Unmarshal(e.Value, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return true, nil
}

func (c *FileCache) Set(_ context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = fileEntry{Value: data, StoredAt: c.now().UTC()}
	return c.flush()
}

func (c *FileCache) expired(e fileEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.StoredAt) > c.ttl
}

// flush must be called with mu held.
func (c *FileCache) flush() error {
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
		}
	}
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("encode cache file: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return os.Rename(tmp, c.path)
}
