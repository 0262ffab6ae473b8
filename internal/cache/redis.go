// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/partybooth/internal/log"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const opTimeout = 2 * time.Second

// Connect opens a Redis client from a redis:// or rediss:// URL and pings it.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	opts.MinIdleConns = 2

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	lg := log.WithComponent("redis")
	lg.Info().
		Str("addr", opts.Addr).
		Int("db", opts.DB).
		Msg("connected to redis")
	return client, nil
}

// RedisCache is a Cache on a shared Redis client. Keys are stored verbatim.
type RedisCache struct {
	name   string
	client redis.UniversalClient
	logger zerolog.Logger
	stats  counters
}

// NewRedisCache wraps client. The client is owned by the caller.
func NewRedisCache(name string, client redis.UniversalClient) *RedisCache {
	return &RedisCache{
		name:   name,
		client: client,
		logger: log.WithComponent("cache").With().Str("cache", name).Logger(),
	}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		c.stats.miss(c.name)
		return "", false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str(log.FieldKey, key).Msg("redis get failed")
		c.stats.miss(c.name)
		return "", false
	}
	c.stats.hit(c.name)
	return val, true
}

// Set implements Cache. A non-positive ttl never expires.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str(log.FieldKey, key).Msg("redis set failed")
		return
	}
	c.stats.sets.Add(1)
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn().Err(err).Str(log.FieldKey, key).Msg("redis delete failed")
	}
}

// Stats implements Cache. CurrentSize is the size of the whole database.
func (c *RedisCache) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		c.logger.Warn().Err(err).Msg("redis dbsize failed")
		size = 0
	}
	return c.stats.snapshot(int(size))
}
