package billing

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Counters is the per-session usage counter store. Backed by Redis in
// production; tests use an in-memory fake.
type Counters interface {
	IncrBy(ctx context.Context, key string, value int64) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	GetInt(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

type redisCounters struct {
	client *goredis.Client
}

// NewRedisCounters wraps a Redis client as a counter store.
func NewRedisCounters(client *goredis.Client) Counters {
	return &redisCounters{client: client}
}

func (r *redisCounters) IncrBy(ctx context.Context, key string, value int64) error {
	if err := r.client.IncrBy(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("incr %s: %w", key, err)
	}
	return nil
}

func (r *redisCounters) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

func (r *redisCounters) GetInt(ctx context.Context, key string) (int64, error) {
	value, err := r.client.Get(ctx, key).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (r *redisCounters) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("del counters: %w", err)
	}
	return nil
}
