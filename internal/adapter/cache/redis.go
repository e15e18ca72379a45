package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kr1s57/lookupx/internal/entity"
)

// RedisStore keeps lookup results in a shared Redis server so that every
// instance of the service sees the same cache.
type RedisStore struct {
	client redis.UniversalClient
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore creates a store for the server described by url (redis://...).
// No connection is made here; the client dials lazily and reconnects on its own.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts)), nil
}

// Ping checks that the server answers within 5 seconds
func (s *RedisStore) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("unable to connect to redis: %w", err)
	}
	return nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get fetches and decodes a cached result
func (s *RedisStore) Get(ctx context.Context, key string) (*entity.AggregateResult, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.misses.Add(1)
		return nil, ErrMiss
	}
	if err != nil {
		s.misses.Add(1)
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var result entity.AggregateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		s.misses.Add(1)
		return nil, fmt.Errorf("decode cached result: %w", err)
	}

	s.hits.Add(1)
	return &result, nil
}

// Set encodes result and stores it with SETEX semantics
func (s *RedisStore) Set(ctx context.Context, key string, result *entity.AggregateResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Stats returns hit/miss counters and the key count of the current database
func (s *RedisStore) Stats(ctx context.Context) Stats {
	hits, misses := s.hits.Load(), s.misses.Load()
	size, _ := s.client.DBSize(ctx).Result()

	return Stats{
		Backend: "redis",
		Size:    size,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate(hits, misses),
	}
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
