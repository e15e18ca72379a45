package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kr1s57/lookupx/internal/entity"
)

func sampleResult() *entity.AggregateResult {
	return &entity.AggregateResult{
		Identifier: "8.8.8.8",
		Type:       entity.IdentifierIP,
		RiskScore:  12,
		RiskLevel:  entity.RiskMinimal,
		Factors:    []string{"Hosting provider IP"},
		Sources:    []string{"ip-api"},
		Errors:     []string{},
		Recommendation: entity.Recommendation{
			Action:  entity.ActionAllow,
			Message: "Minimal risk detected. Safe to proceed.",
		},
		Details:          map[string]json.RawMessage{"ip-api": json.RawMessage(`{"hosting":true}`)},
		ProcessingTimeMs: 42,
		Timestamp:        time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// MemoryStore
// =============================================================================

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, "k", sampleResult(), time.Hour))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, sampleResult(), got)

	stats := s.Stats(ctx)
	assert.Equal(t, int64(1), stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	original := sampleResult()
	require.NoError(t, s.Set(ctx, "k", original, time.Hour))
	original.Factors[0] = "mutated after set"

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	got.Cached = true
	got.Factors[0] = "mutated after get"

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, again.Cached)
	assert.Equal(t, "Hosting provider IP", again.Factors[0])
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", sampleResult(), time.Minute))

	now = now.Add(59 * time.Second)
	_, err := s.Get(ctx, "k")
	assert.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, int64(0), s.Stats(ctx).Size)
}

func TestMemoryStore_RemoveExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(ctx, "short", sampleResult(), time.Second))
	require.NoError(t, s.Set(ctx, "long", sampleResult(), time.Hour))

	now = now.Add(time.Minute)
	s.removeExpired()

	assert.Equal(t, int64(1), s.Stats(ctx).Size)
}

func TestMemoryStore_DefaultTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Set(ctx, "k", sampleResult(), 0))

	now = now.Add(23 * time.Hour)
	_, err := s.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestMemoryStore_ConcurrentLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			r := sampleResult()
			r.RiskScore = score
			_ = s.Set(ctx, "k", r, time.Hour)
			_, _ = s.Get(ctx, "k")
		}(i)
	}
	wg.Wait()

	r := sampleResult()
	r.RiskScore = 99
	require.NoError(t, s.Set(ctx, "k", r, time.Hour))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 99, got.RiskScore)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	s := NewMemoryStore(time.Millisecond)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

// =============================================================================
// RedisStore
// =============================================================================

func TestRedisStore_Get(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStoreWithClient(client)

	raw, err := json.Marshal(sampleResult())
	require.NoError(t, err)

	mock.ExpectGet("lookup:ip:abc").SetVal(string(raw))

	got, err := s.Get(ctx, "lookup:ip:abc")
	require.NoError(t, err)
	assert.Equal(t, sampleResult(), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_GetMiss(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStoreWithClient(client)

	mock.ExpectGet("lookup:ip:abc").RedisNil()

	_, err := s.Get(ctx, "lookup:ip:abc")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Equal(t, int64(1), s.misses.Load())
}

func TestRedisStore_GetBackendError(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStoreWithClient(client)

	mock.ExpectGet("lookup:ip:abc").SetErr(errors.New("connection refused"))

	_, err := s.Get(ctx, "lookup:ip:abc")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRedisStore_GetCorruptEntry(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStoreWithClient(client)

	mock.ExpectGet("lookup:ip:abc").SetVal("{not json")

	_, err := s.Get(ctx, "lookup:ip:abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode cached result")
}

func TestRedisStore_Set(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStoreWithClient(client)

	result := sampleResult()
	raw, err := json.Marshal(result)
	require.NoError(t, err)

	mock.ExpectSet("lookup:ip:abc", raw, 24*time.Hour).SetVal("OK")

	require.NoError(t, s.Set(ctx, "lookup:ip:abc", result, 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SetError(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStoreWithClient(client)

	result := sampleResult()
	raw, err := json.Marshal(result)
	require.NoError(t, err)

	mock.ExpectSet("lookup:ip:abc", raw, time.Hour).SetErr(errors.New("READONLY"))

	err = s.Set(ctx, "lookup:ip:abc", result, time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis set")
}

func TestRedisStore_Stats(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStoreWithClient(client)

	s.hits.Add(3)
	s.misses.Add(1)
	mock.ExpectDBSize().SetVal(7)

	stats := s.Stats(ctx)
	assert.Equal(t, "redis", stats.Backend)
	assert.Equal(t, int64(7), stats.Size)
	assert.InDelta(t, 0.75, stats.HitRate, 1e-9)
}

func TestNewRedisStore_DoesNotDial(t *testing.T) {
	s, err := NewRedisStore("redis://127.0.0.1:1/0")
	require.NoError(t, err)
	defer s.Close()

	_, err = NewRedisStore("not-a-url")
	assert.Error(t, err)
}

func TestRedisStore_Ping(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := NewRedisStoreWithClient(client)

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, s.Ping(ctx))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	err := s.Ping(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to connect to redis")
}
