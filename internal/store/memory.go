package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryKV is a concurrency-safe in-process KV with TTL semantics. It is
// the injectable stand-in for RedisKV in tests and single-process
// deployments that run without a store.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]memoryEntry

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
}

// WithNow overrides the store's clock. Intended for tests.
func (m *MemoryKV) WithNow(now func() time.Time) *MemoryKV {
	m.now = now
	return m
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(m.now()) {
		delete(m.data, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryKV) SetEx(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.data[key] = entry
	return nil
}

func (m *MemoryKV) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.data[key]
	if ok && !entry.expiresAt.IsZero() && !entry.expiresAt.After(now) {
		ok = false
	}

	var count int64
	expiresAt := entry.expiresAt
	if ok {
		prev, _ := strconv.ParseInt(entry.value, 10, 64)
		count = prev + 1
	} else {
		count = 1
		expiresAt = now.Add(window)
	}
	m.data[key] = memoryEntry{value: strconv.FormatInt(count, 10), expiresAt: expiresAt}

	return count, expiresAt.Sub(now), nil
}

var _ KV = (*MemoryKV)(nil)
