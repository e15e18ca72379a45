package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// DefaultTTL is how long a lookup result stays valid
const DefaultTTL = 24 * time.Hour

// ErrMiss is returned by Get when no live entry exists for a key
var ErrMiss = errors.New("cache miss")

// Store is the lookup cache backend.
// Implementations must be safe for concurrent use; a later Set for the same
// key replaces the earlier value.
type Store interface {
	Get(ctx context.Context, key string) (*entity.AggregateResult, error)
	Set(ctx context.Context, key string, result *entity.AggregateResult, ttl time.Duration) error
	Close() error
}

// Stats contains cache statistics
type Stats struct {
	Backend string  `json:"backend"`
	Size    int64   `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// StatsReporter is implemented by stores that can report statistics
type StatsReporter interface {
	Stats(ctx context.Context) Stats
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
