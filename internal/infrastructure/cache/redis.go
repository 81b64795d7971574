package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduplicator records keys with SET NX EX so every replica sees the same deliveries.
type RedisDeduplicator struct {
	client *redis.Client
	prefix string
}

func NewRedisDeduplicator(client *redis.Client, prefix string) *RedisDeduplicator {
	return &RedisDeduplicator{client: client, prefix: prefix}
}

func (d *RedisDeduplicator) FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record delivery %s: %w", key, err)
	}
	return ok, nil
}

func (d *RedisDeduplicator) Release(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, d.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release delivery %s: %w", key, err)
	}
	return nil
}
