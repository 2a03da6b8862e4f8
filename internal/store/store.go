package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the backing store cannot be reached.
// Callers are required to handle it explicitly; every consumer in this
// service degrades to a fail-open or local-fallback path.
var ErrUnavailable = errors.New("key-value store unavailable")

// KV is the narrow key-value surface consumed by the response cache and
// the rate limiter. The two share one store but use disjoint key prefixes.
type KV interface {
	// Get returns the value at key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetEx writes value at key with the given TTL, overwriting any
	// previous entry and its TTL.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error

	// IncrWindow atomically increments the counter at key. The first
	// increment starts a window of the given length; the post-increment
	// count and the time remaining in the window are returned.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
