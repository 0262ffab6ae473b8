// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache("test", 0)

	c.Set(ctx, "key1", "value1", 5*time.Minute)

	val, ok := c.Get(ctx, "key1")
	require.True(t, ok, "expected to find key1")
	assert.Equal(t, "value1", val)

	_, ok = c.Get(ctx, "nonexistent")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	c := NewMemoryCache("test", 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "shortlived", "value", time.Minute)
	c.Set(ctx, "forever", "value", 0)

	_, ok := c.Get(ctx, "shortlived")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "shortlived")
	assert.False(t, ok, "expected key to be expired")
	_, ok = c.Get(ctx, "forever")
	assert.True(t, ok)

	assert.Equal(t, 1, c.deleteExpired())
	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, 1, c.Stats().CurrentSize)
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache("test", 0)

	c.Set(ctx, "key1", "value1", time.Minute)
	c.Delete(ctx, "key1")
	_, ok := c.Get(ctx, "key1")
	assert.False(t, ok)
}

func TestMemoryCache_JanitorStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewMemoryCache("test", 10*time.Millisecond)
	c.Set(context.Background(), "k", "v", time.Nanosecond)
	assert.Eventually(t, func() bool { return c.Stats().CurrentSize == 0 }, time.Second, 10*time.Millisecond)

	c.Close()
	c.Close()
}
