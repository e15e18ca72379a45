package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// MemoryStore provides in-memory caching of lookup results
type MemoryStore struct {
	data   map[string]*memoryEntry
	mu     sync.RWMutex
	hits   int64
	misses int64
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

type memoryEntry struct {
	result    *entity.AggregateResult
	expiresAt time.Time
}

// NewMemoryStore creates a memory store that sweeps expired entries every
// cleanupInterval. A zero interval disables the sweeper.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		data: make(map[string]*memoryEntry),
		now:  time.Now,
		stop: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go s.cleanup(cleanupInterval)
	}

	return s
}

// Get retrieves a result from cache
func (s *MemoryStore) Get(_ context.Context, key string) (*entity.AggregateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.data[key]
	if !exists {
		s.misses++
		return nil, ErrMiss
	}

	if s.now().After(entry.expiresAt) {
		delete(s.data, key)
		s.misses++
		return nil, ErrMiss
	}

	s.hits++

	// Return a copy to prevent modification
	return entry.result.Clone(), nil
}

// Set stores a result in cache
func (s *MemoryStore) Set(_ context.Context, key string, result *entity.AggregateResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &memoryEntry{
		result:    result.Clone(),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Stats returns cache statistics
func (s *MemoryStore) Stats(_ context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Backend: "memory",
		Size:    int64(len(s.data)),
		Hits:    s.hits,
		Misses:  s.misses,
		HitRate: hitRate(s.hits, s.misses),
	}
}

// Close stops the background sweeper
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// cleanup periodically removes expired entries
func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stop:
			return
		}
	}
}

// removeExpired removes all expired entries
func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.data {
		if now.After(entry.expiresAt) {
			delete(s.data, key)
		}
	}
}
