package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nutrifit/backend/internal/infrastructure/config"
)

// RedisBackend exposes the Redis primitives the cache is built on: plain
// key/value with native TTL for entries, and sets for namespace indexes.
// Index sets deliberately carry no TTL; they are pruned through entry
// invalidation instead, so a member registered under an index stays
// reachable for bulk eviction for as long as it may live.
type RedisBackend struct {
	client    *redis.Client
	ownClient bool
}

// NewRedisBackend creates a backend with its own Redis client
func NewRedisBackend(cfg config.RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBackend{client: client, ownClient: true}, nil
}

// NewRedisBackendWithClient creates a backend over an existing client
func NewRedisBackendWithClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Get returns the raw value for key, with found=false on a clean miss
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return data, true, nil
}

// Set writes the raw value with the given TTL
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Del removes the given keys
func (b *RedisBackend) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return nil
}

// SAdd adds a member to the set at key
func (b *RedisBackend) SAdd(ctx context.Context, key, member string) error {
	if err := b.client.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("failed to register index member: %w", err)
	}
	return nil
}

// SMembers returns all members of the set at key
func (b *RedisBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := b.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate index members: %w", err)
	}
	return members, nil
}

// SRem removes a member from the set at key
func (b *RedisBackend) SRem(ctx context.Context, key, member string) error {
	if err := b.client.SRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("failed to remove index member: %w", err)
	}
	return nil
}

// SCard returns the cardinality of the set at key
func (b *RedisBackend) SCard(ctx context.Context, key string) (int64, error) {
	n, err := b.client.SCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count index members: %w", err)
	}
	return n, nil
}

// Close closes the Redis client if this backend owns it
func (b *RedisBackend) Close() error {
	if b.ownClient {
		return b.client.Close()
	}
	return nil
}
