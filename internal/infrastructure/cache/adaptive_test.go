package cache

import (
	"testing"
	"time"
)

func TestGetReturnsStoredValueBeforeTTL(t *testing.T) {
	c := New[string]()
	c.Put("k", "v", time.Minute)

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get() = (%q, %t), want (v, true)", got, ok)
	}
}

func TestExpiredEntryIsMissAndEvicted(t *testing.T) {
	c := New[string]()
	c.Put("k", "v", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	stats := c.Stats()
	if stats.Entries != 0 {
		t.Fatalf("expected stale entry evicted on read, got %d entries", stats.Entries)
	}
	if stats.Misses != 1 {
		t.Fatalf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestPutIgnoresNonPositiveTTL(t *testing.T) {
	c := New[string]()
	c.Put("k", "v", 0)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("zero TTL must not store")
	}
}

func TestInvalidateRemovesEntry(t *testing.T) {
	c := New[int]()
	c.Put("k", 42, time.Minute)
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected invalidated entry to miss")
	}
}

func TestStatsTrackHitRate(t *testing.T) {
	c := New[string]()
	c.Put("k", "v", time.Minute)

	c.Get("k")
	c.Get("k")
	c.Get("absent")

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Fatalf("stats = %+v, want 2 hits 1 miss", stats)
	}
	want := 2.0 / 3.0
	if stats.HitRate != want {
		t.Fatalf("hit rate = %f, want %f", stats.HitRate, want)
	}
	if stats.Entries != 1 {
		t.Fatalf("entries = %d, want 1", stats.Entries)
	}
}

func TestSweepReclaimsExpiredEntries(t *testing.T) {
	c := New[string]()
	c.Put("stale", "v", time.Nanosecond)
	c.Put("fresh", "v", time.Hour)
	time.Sleep(5 * time.Millisecond)

	c.sweep(time.Now())

	stats := c.Stats()
	if stats.Entries != 1 {
		t.Fatalf("expected only fresh entry after sweep, got %d", stats.Entries)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatalf("fresh entry must survive the sweep")
	}
}
