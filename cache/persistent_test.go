package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T, compression bool) *PersistentCache {
	t.Helper()
	pc, err := NewPersistentCache(filepath.Join(t.TempDir(), "cache.db"), compression)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	t.Cleanup(func() { pc.Close() })
	return pc
}

func TestPersistentCache_SetGet(t *testing.T) {
	for _, compression := range []bool{false, true} {
		name := "Uncompressed"
		if compression {
			name = "Compressed"
		}
		t.Run(name, func(t *testing.T) {
			pc := newTestCache(t, compression)

			if err := pc.Set("key1", "[00:10.00]some lyrics", time.Hour); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			got, ok := pc.Get("key1")
			if !ok {
				t.Fatal("Expected cache hit")
			}
			if got != "[00:10.00]some lyrics" {
				t.Errorf("Expected original value, got %q", got)
			}
		})
	}
}

func TestPersistentCache_Miss(t *testing.T) {
	pc := newTestCache(t, false)
	if _, ok := pc.Get("absent"); ok {
		t.Error("Expected miss for absent key")
	}
}

func TestPersistentCache_TTLExpiry(t *testing.T) {
	pc := newTestCache(t, false)

	if err := pc.Set("short", "value", 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, ok := pc.Get("short"); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestPersistentCache_Sweep(t *testing.T) {
	pc := newTestCache(t, false)

	pc.Set("live", "v", time.Hour)
	pc.Set("dead1", "v", 5*time.Millisecond)
	pc.Set("dead2", "v", 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if removed := pc.Sweep(); removed != 2 {
		t.Errorf("Expected 2 swept entries, got %d", removed)
	}
	if pc.Len() != 1 {
		t.Errorf("Expected 1 live entry after sweep, got %d", pc.Len())
	}
}

func TestPersistentCache_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	pc, err := NewPersistentCache(path, true)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	if err := pc.Set("persist", "across restarts", time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	pc.Close()

	pc2, err := NewPersistentCache(path, true)
	if err != nil {
		t.Fatalf("Failed to reopen cache: %v", err)
	}
	defer pc2.Close()

	got, ok := pc2.Get("persist")
	if !ok || got != "across restarts" {
		t.Errorf("Expected persisted value after reopen, got %q (hit=%v)", got, ok)
	}
}

func TestPersistentCache_Clear(t *testing.T) {
	pc := newTestCache(t, false)

	pc.Set("a", "1", 0)
	pc.Set("b", "2", 0)
	if err := pc.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if pc.Len() != 0 {
		t.Errorf("Expected empty cache after clear, got %d entries", pc.Len())
	}
}
