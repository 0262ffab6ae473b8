// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCache("test", client)
}

func TestRedisCache_SetGet(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	c.Set(ctx, "gift-image:jeeya", "/blob/gifts/jeeya-gift.jpeg", 30*24*time.Hour)

	val, found := c.Get(ctx, "gift-image:jeeya")
	require.True(t, found)
	assert.Equal(t, "/blob/gifts/jeeya-gift.jpeg", val)

	raw, err := mr.Get("gift-image:jeeya")
	require.NoError(t, err)
	assert.Equal(t, val, raw, "values are stored verbatim")
	assert.Equal(t, 30*24*time.Hour, mr.TTL("gift-image:jeeya"))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestRedisCache_GetMissing(t *testing.T) {
	_, c := setupMiniRedis(t)
	val, found := c.Get(context.Background(), "nonexistent")
	assert.False(t, found)
	assert.Empty(t, val)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCache_Expiration(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	c.Set(ctx, "k", "v", time.Minute)
	mr.FastForward(2 * time.Minute)
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestRedisCache_Delete(t *testing.T) {
	ctx := context.Background()
	_, c := setupMiniRedis(t)

	c.Set(ctx, "k", "v", time.Minute)
	c.Delete(ctx, "k")
	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestRedisCache_ServerDownIsMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	c := NewRedisCache("test", client)
	mr.Close()

	_, found := c.Get(context.Background(), "k")
	assert.False(t, found)
	c.Set(context.Background(), "k", "v", time.Minute)
	assert.Zero(t, c.Stats().Sets)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	_, err = Connect(context.Background(), "not a url")
	assert.Error(t, err)
}
