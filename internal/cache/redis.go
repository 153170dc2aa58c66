// Package cache stores computed leaderboard pages.
//
// Two implementations satisfy leaderboard.Cache:
//   - Redis → shared across instances, entries expire after a TTL
//   - Noop  → every lookup misses; used when no Redis address is configured
//
// The leaderboard treats the cache as optional: a failed Get or Set is
// logged and the page is recomputed from the database.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds staleness if an invalidation is ever missed.
const DefaultTTL = 5 * time.Minute

// scanBatch is the COUNT hint given to SCAN while invalidating.
const scanBatch = 100

// Options configures the Redis client.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Redis is a JSON-encoding cache on top of go-redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings the server, failing fast on a bad address.
func NewRedis(ctx context.Context, opts Options) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: 20,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis at %s: %w", opts.Addr, err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// Get decodes the value at key into dst. A missing key is (false, nil).
func (c *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key with the configured TTL.
func (c *Redis) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix.
//
// SCAN walks the keyspace in batches instead of KEYS, which would block the
// server on a large database. Glob metacharacters in prefix are escaped.
func (c *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, escapeGlob(prefix)+"*", scanBatch).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache: delete %s*: %w", prefix, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan %s*: %w", prefix, err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache: delete %s*: %w", prefix, err)
		}
	}
	return nil
}

// Ping reports whether Redis is reachable. Used by /healthz.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.client.Close()
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
