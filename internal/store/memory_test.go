package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKVSetGet(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	_, found, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, kv.SetEx(ctx, "k", "v1", time.Minute))
	value, found, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", value)

	// Overwrite replaces value and TTL.
	require.NoError(t, kv.SetEx(ctx, "k", "v2", time.Minute))
	value, _, _ = kv.Get(ctx, "k")
	assert.Equal(t, "v2", value)
}

func TestMemoryKVExpiry(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	kv := NewMemoryKV().WithNow(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, kv.SetEx(ctx, "k", "v", time.Minute))

	now = now.Add(59 * time.Second)
	_, found, _ := kv.Get(ctx, "k")
	assert.True(t, found)

	now = now.Add(2 * time.Second)
	_, found, _ = kv.Get(ctx, "k")
	assert.False(t, found)
}

func TestMemoryKVIncrWindow(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	kv := NewMemoryKV().WithNow(func() time.Time { return now })
	ctx := context.Background()

	count, remaining, err := kv.IncrWindow(ctx, "rl:x", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, remaining)

	now = now.Add(10 * time.Second)
	count, remaining, err = kv.IncrWindow(ctx, "rl:x", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 50*time.Second, remaining, "window start must not move on later increments")

	// The window expires; the next increment starts a fresh one.
	now = now.Add(51 * time.Second)
	count, remaining, err = kv.IncrWindow(ctx, "rl:x", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, remaining)
}
