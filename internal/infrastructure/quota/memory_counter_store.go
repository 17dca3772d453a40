package quota

import (
	"context"
	"sync"
	"time"

	domain "github.com/nutrifit/backend/internal/domain/quota"
)

// counterEntry holds a counter value with optional expiry
type counterEntry struct {
	value     int64
	expiresAt time.Time // zero means no expiry set yet
}

func (e *counterEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// InMemoryCounterStore implements CounterStore with a mutex-guarded map.
// It is suitable for single-instance deployments and testing; counters are
// not shared across process instances.
type InMemoryCounterStore struct {
	mu        sync.Mutex
	counters  map[string]*counterEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryCounterStore creates a new in-memory counter store.
// It starts a background goroutine to clean up expired counters.
func NewInMemoryCounterStore() *InMemoryCounterStore {
	store := &InMemoryCounterStore{
		counters: make(map[string]*counterEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// IncrBy atomically adds amount to the counter and returns the new total
func (s *InMemoryCounterStore) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	e, exists := s.counters[key]
	if !exists || e.expired(now) {
		e = &counterEntry{}
		s.counters[key] = e
	}
	e.value += amount
	return e.value, nil
}

// Get returns the counter value, or 0 if the key is absent or expired
func (s *InMemoryCounterStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.counters[key]
	if !exists {
		return 0, nil
	}
	if e.expired(time.Now()) {
		delete(s.counters, key)
		return 0, nil
	}
	return e.value, nil
}

// ExpireAt sets the counter's expiry to the given wall-clock time.
// Setting an expiry on an absent key is a no-op, matching Redis EXPIREAT.
func (s *InMemoryCounterStore) ExpireAt(ctx context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.counters[key]; exists {
		e.expiresAt = at
	}
	return nil
}

// Del removes the counter
func (s *InMemoryCounterStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counters, key)
	return nil
}

// Size returns the number of live counters (for testing/monitoring)
func (s *InMemoryCounterStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryCounterStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired counters
func (s *InMemoryCounterStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired counters from the store
func (s *InMemoryCounterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.counters {
		if e.expired(now) {
			delete(s.counters, key)
		}
	}
}

// Ensure InMemoryCounterStore implements CounterStore
var _ domain.CounterStore = (*InMemoryCounterStore)(nil)
