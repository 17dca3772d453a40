package cache

import (
	"sync"
	"time"
)

// fallbackEntry wraps a cached raw value with its expiration time
type fallbackEntry struct {
	data      []byte
	expiresAt time.Time
}

// isExpired checks if the entry has expired
func (e *fallbackEntry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// FallbackStore is the process-local cache layer. It is always present:
// with Redis configured it shadows every write so a Redis outage degrades
// reads instead of losing them entirely, and without Redis it is the whole
// cache. It holds both plain entries and the namespace index sets, and is
// not shared across process instances.
type FallbackStore struct {
	mu      sync.RWMutex
	entries map[string]*fallbackEntry
	sets    map[string]map[string]struct{}

	cleanupInterval time.Duration
	stopChan        chan struct{}
	wg              sync.WaitGroup
	closeOnce       sync.Once
}

// FallbackStoreOption is a functional option for configuring the store
type FallbackStoreOption func(*FallbackStore)

// WithCleanupInterval sets how often expired entries are swept
func WithCleanupInterval(d time.Duration) FallbackStoreOption {
	return func(s *FallbackStore) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// NewFallbackStore creates a new in-process store and starts its janitor
func NewFallbackStore(opts ...FallbackStoreOption) *FallbackStore {
	store := &FallbackStore{
		entries:         make(map[string]*fallbackEntry),
		sets:            make(map[string]map[string]struct{}),
		cleanupInterval: time.Minute,
		stopChan:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(store)
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Get returns the raw value for key. Expired entries are treated as absent
// and lazily removed.
func (s *FallbackStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	e, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if e.isExpired(time.Now()) {
		s.mu.Lock()
		// Re-check under the write lock; another writer may have replaced it
		if cur, ok := s.entries[key]; ok && cur.isExpired(time.Now()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

// Set writes the raw value with the given TTL
func (s *FallbackStore) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &fallbackEntry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Del removes the given keys
func (s *FallbackStore) Del(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
}

// SAdd adds a member to the set at key
func (s *FallbackStore) SAdd(key, member string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, exists := s.sets[key]
	if !exists {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
}

// SMembers returns all members of the set at key
func (s *FallbackStore) SMembers(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, exists := s.sets[key]
	if !exists {
		return nil
	}
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	return members
}

// SRem removes a member from the set at key, pruning empty sets
func (s *FallbackStore) SRem(key, member string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, exists := s.sets[key]
	if !exists {
		return
	}
	delete(set, member)
	if len(set) == 0 {
		delete(s.sets, key)
	}
}

// SDel removes the whole set at key
func (s *FallbackStore) SDel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sets, key)
}

// Len returns the number of live entries (for testing/monitoring)
func (s *FallbackStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the janitor goroutine. Safe to call multiple times.
func (s *FallbackStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *FallbackStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
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

// cleanup removes expired entries from the store
func (s *FallbackStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if e.isExpired(now) {
			delete(s.entries, key)
		}
	}
}
