// Package cache derives forecast cache keys and reads/writes serialized
// forecast results against the shared key-value store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/i474232898/solar-forecast-service/internal/solar"
	"github.com/i474232898/solar-forecast-service/internal/store"
)

// Outcome is the explicit result of a cache lookup. The store being down
// is distinguished from a plain miss so callers handle it deliberately,
// even though both fall back to direct computation.
type Outcome int

const (
	Miss Outcome = iota
	Hit
	Unavailable
)

// ResponseCache stores serialized forecast results with a fixed TTL.
// Both Lookup and Store fail open: a dead store yields Miss-like
// behaviour, never an error on the request path.
type ResponseCache struct {
	kv  store.KV
	ttl time.Duration
}

// NewResponseCache creates a ResponseCache writing entries with ttl.
func NewResponseCache(kv store.KV, ttl time.Duration) *ResponseCache {
	return &ResponseCache{kv: kv, ttl: ttl}
}

// TTL returns the configured entry lifetime.
func (c *ResponseCache) TTL() time.Duration { return c.ttl }

// Lookup fetches and deserializes the result at key.
func (c *ResponseCache) Lookup(ctx context.Context, key string) (solar.Result, Outcome) {
	raw, found, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrUnavailable) {
			log.Printf("cache: lookup failed: %v", err)
		}
		return solar.Result{}, Unavailable
	}
	if !found {
		return solar.Result{}, Miss
	}

	var result solar.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		// A corrupt entry is treated as a miss; the recompute overwrites it.
		log.Printf("cache: dropping undecodable entry %s: %v", key, err)
		return solar.Result{}, Miss
	}
	return result, Hit
}

// Store serializes result and (re)writes it at key with the configured
// TTL. Failures are logged and swallowed; the entry is simply not cached.
func (c *ResponseCache) Store(ctx context.Context, key string, result solar.Result) {
	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("cache: marshal failed for %s: %v", key, err)
		return
	}
	if err := c.kv.SetEx(ctx, key, string(payload), c.ttl); err != nil {
		if !errors.Is(err, store.ErrUnavailable) {
			log.Printf("cache: store failed for %s: %v", key, err)
		}
	}
}
