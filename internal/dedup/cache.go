package dedup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"edgescout/internal/logger"
)

// Cache maps alert fingerprints to the Unix second of their last confirmed
// dispatch. It is loaded once at the start of a run and saved once at the
// end; the process is single-threaded so no locking is needed.
type Cache struct {
	path    string
	entries map[string]int64
}

// NewCache returns an empty cache bound to the given file path.
func NewCache(path string) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]int64),
	}
}

// Load reads the persisted fingerprint map. A missing or unreadable or
// corrupt file resets the cache to empty; corruption is logged but never
// surfaced as an error, so a bad file can only cost duplicate alerts, not
// a run.
func (c *Cache) Load() {
	c.entries = make(map[string]int64)

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Dedup cache %s not found, starting empty", c.path)
		} else {
			logger.Warn("Failed to read dedup cache %s: %v, starting empty", c.path, err)
		}
		return
	}

	var entries map[string]int64
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warn("Failed to parse dedup cache %s: %v, starting empty", c.path, err)
		return
	}
	c.entries = entries
	logger.Debug("Loaded %d dedup cache entries from %s", len(entries), c.path)
}

// ShouldSuppress reports whether the fingerprint was dispatched within the
// cooldown window ending at now.
func (c *Cache) ShouldSuppress(fp string, now time.Time, cooldown time.Duration) bool {
	sentAt, ok := c.entries[fp]
	if !ok {
		return false
	}
	return now.Unix()-sentAt < int64(cooldown.Seconds())
}

// Record upserts the dispatch time for a fingerprint. Call only after a
// confirmed successful dispatch.
func (c *Cache) Record(fp string, now time.Time) {
	c.entries[fp] = now.Unix()
}

// Save persists the full fingerprint map, overwriting prior content.
// Called exactly once at the end of a run.
func (c *Cache) Save() error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dedup cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dedup cache: %w", err)
	}
	return nil
}

// Len returns the number of cached fingerprints.
func (c *Cache) Len() int {
	return len(c.entries)
}
