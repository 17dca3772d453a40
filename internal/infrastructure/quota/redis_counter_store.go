package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/nutrifit/backend/internal/domain/quota"
	"github.com/nutrifit/backend/internal/infrastructure/config"
)

// RedisCounterStore implements CounterStore on Redis. INCRBY is the atomic
// primitive the whole quota design leans on: it is a single round trip, the
// server serializes increments, and every caller sees a distinct new total.
type RedisCounterStore struct {
	client    *redis.Client
	ownClient bool
}

// NewRedisCounterStore creates a counter store with its own Redis client
func NewRedisCounterStore(cfg config.RedisConfig) (*RedisCounterStore, error) {
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

	return &RedisCounterStore{client: client, ownClient: true}, nil
}

// NewRedisCounterStoreWithClient creates a store over an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisCounterStoreWithClient(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// IncrBy atomically adds amount to the counter and returns the new total
func (s *RedisCounterStore) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	total, err := s.client.IncrBy(ctx, key, amount).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return total, nil
}

// Get returns the counter value, or 0 if the key is absent
func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return val, nil
}

// ExpireAt sets the counter's expiry to the given wall-clock time
func (s *RedisCounterStore) ExpireAt(ctx context.Context, key string, at time.Time) error {
	if err := s.client.ExpireAt(ctx, key, at).Err(); err != nil {
		return fmt.Errorf("failed to set counter expiry: %w", err)
	}
	return nil
}

// Del removes the counter
func (s *RedisCounterStore) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete counter: %w", err)
	}
	return nil
}

// Close closes the Redis client if this store owns it
func (s *RedisCounterStore) Close() error {
	if s.ownClient {
		return s.client.Close()
	}
	return nil
}

// Ensure RedisCounterStore implements CounterStore
var _ domain.CounterStore = (*RedisCounterStore)(nil)
