package quota

import (
	"context"
	"time"
)

// CounterStore is the atomic counter primitive quota tracking is built on.
// IncrBy must be atomic at the backend: the returned total is the value
// immediately after this call's increment, and each distinct total is
// observed by exactly one caller. That guarantee is what lets the first
// writer of a period (total == amount) set the key's expiry exactly once.
type CounterStore interface {
	// IncrBy atomically adds amount to the counter at key, creating it at
	// zero if absent, and returns the new total.
	IncrBy(ctx context.Context, key string, amount int64) (int64, error)

	// Get returns the current counter value, or 0 if the key is absent.
	Get(ctx context.Context, key string) (int64, error)

	// ExpireAt sets the counter's expiry to the given wall-clock time.
	ExpireAt(ctx context.Context, key string, at time.Time) error

	// Del removes the counter.
	Del(ctx context.Context, key string) error
}
