package lookup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kr1s57/lookupx/internal/adapter/cache"
	"github.com/kr1s57/lookupx/internal/entity"
)

// =============================================================================
// Mock Dispatcher
// =============================================================================

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Lookup(ctx context.Context, id entity.Identifier, skipCache bool) (*entity.AggregateResult, error) {
	args := m.Called(ctx, id, skipCache)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AggregateResult), args.Error(1)
}

func (m *MockDispatcher) ProviderStatuses() []entity.ProviderStatus {
	args := m.Called()
	return args.Get(0).([]entity.ProviderStatus)
}

func (m *MockDispatcher) HealthLabels() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

// echoDispatcher answers every lookup with a result naming the identifier
// and tracks the highest number of lookups in flight at once.
type echoDispatcher struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	seen     []string
}

func (d *echoDispatcher) Lookup(_ context.Context, id entity.Identifier, _ bool) (*entity.AggregateResult, error) {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}

	d.mu.Lock()
	d.seen = append(d.seen, id.Value)
	d.mu.Unlock()

	time.Sleep(d.delay)
	return &entity.AggregateResult{Identifier: id.Value, Type: id.Type}, nil
}

func (d *echoDispatcher) ProviderStatuses() []entity.ProviderStatus { return nil }
func (d *echoDispatcher) HealthLabels() map[string]string           { return nil }

type fixedStats struct{ stats cache.Stats }

func (f fixedStats) Stats(context.Context) cache.Stats { return f.stats }

// =============================================================================
// Resolve
// =============================================================================

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		override string
		wantType entity.IdentifierType
		wantErr  error
	}{
		{"ip", "8.8.8.8", "", entity.IdentifierIP, nil},
		{"email", "Bob@Example.com", "", entity.IdentifierEmail, nil},
		{"phone", "+1 (415) 555-2671", "", entity.IdentifierPhone, nil},
		{"override", "12345", "phone", entity.IdentifierPhone, nil},
		{"override is case-insensitive", "8.8.8.8", "IP", entity.IdentifierIP, nil},
		{"empty", "", "", "", ErrIdentifierRequired},
		{"blank", "   ", "", "", ErrIdentifierRequired},
		{"unclassifiable", "not-an-identifier!!", "", "", ErrUnclassifiable},
		{"bad override", "8.8.8.8", "domain", "", ErrInvalidType},
		{"unknown override", "8.8.8.8", "unknown", "", ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Resolve(tt.raw, tt.override)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.True(t, IsRejection(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, id.Type)
		})
	}
}

// =============================================================================
// Lookup
// =============================================================================

func TestLookup_RejectionMakesNoDispatch(t *testing.T) {
	d := new(MockDispatcher)
	svc := NewService(d, Config{})

	_, err := svc.Lookup(context.Background(), Request{Identifier: "not-an-identifier!!"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnclassifiable))

	_, err = svc.Lookup(context.Background(), Request{})
	assert.True(t, errors.Is(err, ErrIdentifierRequired))

	d.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything)
}

func TestLookup_PassesNormalizedIdentifier(t *testing.T) {
	d := new(MockDispatcher)
	want := &entity.AggregateResult{Identifier: "bob@example.com", Type: entity.IdentifierEmail, RiskScore: 12}
	d.On("Lookup", mock.Anything, entity.Identifier{
		Raw:   " Bob@Example.com ",
		Value: "bob@example.com",
		Type:  entity.IdentifierEmail,
	}, true).Return(want, nil).Once()

	svc := NewService(d, Config{})
	got, err := svc.Lookup(context.Background(), Request{Identifier: " Bob@Example.com ", SkipCache: true})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	d.AssertExpectations(t)
}

func TestLookup_DispatchErrorIsWrapped(t *testing.T) {
	d := new(MockDispatcher)
	d.On("Lookup", mock.Anything, mock.Anything, false).Return(nil, errors.New("registry missing"))

	svc := NewService(d, Config{})
	_, err := svc.Lookup(context.Background(), Request{Identifier: "1.2.3.4"})
	require.Error(t, err)
	assert.False(t, IsRejection(err))
}

// =============================================================================
// BatchLookup
// =============================================================================

func TestBatchLookup_KeepsOrderAndSkipsRejected(t *testing.T) {
	d := &echoDispatcher{}
	svc := NewService(d, Config{})

	report, err := svc.BatchLookup(context.Background(),
		[]string{"1.1.1.1", "garbage!!", "a@b.com", "", "+14155552671"}, BatchOptions{})
	require.NoError(t, err)

	require.Len(t, report.Results, 3)
	assert.Equal(t, "1.1.1.1", report.Results[0].Identifier)
	assert.Equal(t, "a@b.com", report.Results[1].Identifier)
	assert.Equal(t, "+14155552671", report.Results[2].Identifier)

	require.Len(t, report.Rejected, 2)
	assert.Equal(t, "garbage!!", report.Rejected[0].Identifier)
	assert.Equal(t, "", report.Rejected[1].Identifier)
	assert.NotEmpty(t, report.BatchID)
}

func TestBatchLookup_ChunksBoundConcurrency(t *testing.T) {
	d := &echoDispatcher{delay: 20 * time.Millisecond}
	svc := NewService(d, Config{BatchSize: 10, MaxBatch: 250})

	ids := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		ids = append(ids, fmt.Sprintf("10.0.0.%d", i+1))
	}

	report, err := svc.BatchLookup(context.Background(), ids, BatchOptions{BatchSize: 4})
	require.NoError(t, err)
	assert.Len(t, report.Results, 25)
	assert.LessOrEqual(t, d.peak.Load(), int32(4))
	for i, r := range report.Results {
		assert.Equal(t, ids[i], r.Identifier)
	}
}

func TestBatchLookup_ChunkCountIsBounded(t *testing.T) {
	d := &echoDispatcher{}
	svc := NewService(d, Config{BatchSize: 10, MaxBatch: 50})

	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		ids = append(ids, fmt.Sprintf("10.0.1.%d", i+1))
	}

	report, err := svc.BatchLookup(context.Background(), ids, BatchOptions{BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 10, report.BatchSize, "50 identifiers must fit in 5 chunks")
	assert.Len(t, report.Results, 50)

	report, err = svc.BatchLookup(context.Background(), ids[:12], BatchOptions{BatchSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, report.BatchSize, "sizes within the chunk budget are kept")
}

func TestBatchLookup_Limits(t *testing.T) {
	svc := NewService(&echoDispatcher{}, Config{MaxBatch: 2})

	_, err := svc.BatchLookup(context.Background(), nil, BatchOptions{})
	assert.True(t, errors.Is(err, ErrEmptyBatch))

	_, err = svc.BatchLookup(context.Background(), []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"}, BatchOptions{})
	assert.True(t, errors.Is(err, ErrBatchTooLarge))
	assert.True(t, IsRejection(err))
}

func TestBatchLookup_Cancelled(t *testing.T) {
	svc := NewService(&echoDispatcher{}, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.BatchLookup(ctx, []string{"1.1.1.1"}, BatchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Health, usage, cache stats
// =============================================================================

func TestHealth(t *testing.T) {
	d := new(MockDispatcher)
	d.On("HealthLabels").Return(map[string]string{
		"ip-api":    "Active (no key required)",
		"abuseipdb": "Not configured",
	})

	health := NewService(d, Config{}).Health()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "lookup-aggregator", health.Service)
	assert.Equal(t, "Not configured", health.APIs["abuseipdb"])
}

func TestUsage(t *testing.T) {
	d := new(MockDispatcher)
	d.On("ProviderStatuses").Return([]entity.ProviderStatus{{Name: "abuseipdb", TokensRemaining: 999}})

	usage := NewService(d, Config{}).Usage()
	require.Len(t, usage, 1)
	assert.Equal(t, float64(999), usage[0].TokensRemaining)
}

func TestCacheStats(t *testing.T) {
	_, ok := NewService(&echoDispatcher{}, Config{}).CacheStats(context.Background())
	assert.False(t, ok)

	svc := NewService(&echoDispatcher{}, Config{Stats: fixedStats{cache.Stats{Backend: "memory", Hits: 3}}})
	stats, ok := svc.CacheStats(context.Background())
	require.True(t, ok)
	assert.Equal(t, int64(3), stats.Hits)
}
