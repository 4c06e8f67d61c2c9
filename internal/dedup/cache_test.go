package dedup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_LoadMissingFile(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "nope.json"))
	c.Load()
	if c.Len() != 0 {
		t.Errorf("expected empty cache for missing file, got %d entries", c.Len())
	}
}

func TestCache_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCache(path)
	c.Load()
	if c.Len() != 0 {
		t.Errorf("expected empty cache for corrupt file, got %d entries", c.Len())
	}
}

func TestCache_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	now := time.Now()

	c := NewCache(path)
	c.Load()
	c.Record("fp-1", now)
	c.Record("fp-2", now.Add(-time.Hour))
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewCache(path)
	reloaded.Load()
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 entries after reload, got %d", reloaded.Len())
	}
	if !reloaded.ShouldSuppress("fp-1", now.Add(time.Minute), 90*time.Minute) {
		t.Error("fp-1 recorded just now should be suppressed within cooldown")
	}
}

func TestCache_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")
	c := NewCache(path)
	if err := c.Save(); err != nil {
		t.Fatalf("Save into missing directory: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("cache file not written: %v", err)
	}
}

func TestCache_SuppressionBoundary(t *testing.T) {
	cooldown := 90 * time.Minute
	recordedAt := time.Unix(1_700_000_000, 0)

	c := NewCache(filepath.Join(t.TempDir(), "cache.json"))
	c.Record("fp", recordedAt)

	tests := []struct {
		name     string
		now      time.Time
		suppress bool
	}{
		{"immediately after", recordedAt, true},
		{"one second before expiry", recordedAt.Add(cooldown - time.Second), true},
		{"one second after expiry", recordedAt.Add(cooldown + time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.ShouldSuppress("fp", tt.now, cooldown); got != tt.suppress {
				t.Errorf("ShouldSuppress at %v = %v, want %v", tt.now, got, tt.suppress)
			}
		})
	}
}

func TestCache_UnknownFingerprintNotSuppressed(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "cache.json"))
	if c.ShouldSuppress("never-seen", time.Now(), time.Hour) {
		t.Error("unknown fingerprint must not be suppressed")
	}
}
