// Package tracker remembers which forecast specs have been requested
// recently so the refresher can keep their cache entries warm.
package tracker

import (
	"sync"
	"time"

	"github.com/i474232898/solar-forecast-service/internal/solar"
)

type entry struct {
	spec     solar.ForecastSpec
	lastSeen time.Time
}

// SpecTracker is a bounded map of cache key to the spec last observed at
// that key. Entries age out on read (ListLive) and, so the tracker stays
// bounded even when refresh is disabled, oldest-first when the cap is hit.
type SpecTracker struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// New creates a SpecTracker holding at most maxEntries specs. maxEntries
// <= 0 means unbounded.
func New(maxEntries int) *SpecTracker {
	return &SpecTracker{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithNow overrides the tracker's clock. Intended for tests.
func (t *SpecTracker) WithNow(now func() time.Time) *SpecTracker {
	t.now = now
	return t
}

// Record stores or refreshes the (key -> spec) association.
func (t *SpecTracker) Record(key string, spec solar.ForecastSpec) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; !exists && t.maxEntries > 0 && len(t.entries) >= t.maxEntries {
		t.evictOldestLocked()
	}
	t.entries[key] = entry{spec: spec, lastSeen: t.now()}
}

// ListLive returns every spec observed within maxAge of now, evicting the
// ones that have aged out. The returned slice is a snapshot; the refresher
// works from it without holding the tracker lock.
func (t *SpecTracker) ListLive(maxAge time.Duration) []solar.ForecastSpec {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	live := make([]solar.ForecastSpec, 0, len(t.entries))
	for key, e := range t.entries {
		if now.Sub(e.lastSeen) > maxAge {
			delete(t.entries, key)
			continue
		}
		live = append(live, e.spec)
	}
	return live
}

// Len reports the number of tracked specs.
func (t *SpecTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *SpecTracker) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, e := range t.entries {
		if first || e.lastSeen.Before(oldest) {
			oldestKey, oldest = key, e.lastSeen
			first = false
		}
	}
	if oldestKey != "" {
		delete(t.entries, oldestKey)
	}
}
