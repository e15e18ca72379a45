package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kr1s57/lookupx/internal/adapter/cache"
	"github.com/kr1s57/lookupx/internal/domain/identifier"
	"github.com/kr1s57/lookupx/internal/entity"
)

const (
	// DefaultBatchSize is the number of lookups run concurrently per chunk
	DefaultBatchSize = 10
	// DefaultMaxBatch caps the identifiers accepted by one batch call
	DefaultMaxBatch = 50

	serviceName    = "lookup-aggregator"
	serviceVersion = "2.0.0"
)

var (
	ErrIdentifierRequired = errors.New("identifier is required")
	ErrUnclassifiable     = errors.New("could not determine identifier type")
	ErrInvalidType        = errors.New("invalid identifier type")
	ErrEmptyBatch         = errors.New("no identifiers provided")
	ErrBatchTooLarge      = errors.New("too many identifiers in batch")
)

// Dispatcher runs the provider fan-out for a classified identifier
type Dispatcher interface {
	Lookup(ctx context.Context, id entity.Identifier, skipCache bool) (*entity.AggregateResult, error)
	ProviderStatuses() []entity.ProviderStatus
	HealthLabels() map[string]string
}

// Request is one lookup request
type Request struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type,omitempty"`
	SkipCache  bool   `json:"skipCache,omitempty"`
}

// Config holds service configuration
type Config struct {
	BatchSize int
	MaxBatch  int
	Stats     cache.StatsReporter // optional
	Logger    *slog.Logger
}

// Service validates identifiers and runs single and batch lookups
type Service struct {
	dispatcher Dispatcher
	stats      cache.StatsReporter
	batchSize  int
	maxBatch   int
	maxChunks  int // a full batch at the default size never needs more chunks
	logger     *slog.Logger
}

// NewService creates a new lookup service
func NewService(dispatcher Dispatcher, cfg Config) *Service {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	maxBatch := cfg.MaxBatch
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		dispatcher: dispatcher,
		stats:      cfg.Stats,
		batchSize:  batchSize,
		maxBatch:   maxBatch,
		maxChunks:  (maxBatch + batchSize - 1) / batchSize,
		logger:     logger,
	}
}

// Resolve classifies raw, honoring a type override.
// Rejections are reported with the sentinel errors of this package.
func Resolve(raw, typeOverride string) (entity.Identifier, error) {
	if strings.TrimSpace(raw) == "" {
		return entity.Identifier{}, ErrIdentifierRequired
	}

	var override entity.IdentifierType
	if typeOverride != "" {
		override = entity.IdentifierType(strings.ToLower(strings.TrimSpace(typeOverride)))
		if !override.IsValid() {
			return entity.Identifier{}, fmt.Errorf("%w: %q", ErrInvalidType, typeOverride)
		}
	}

	id := identifier.Parse(raw, override)
	if !id.Type.IsValid() {
		return entity.Identifier{}, ErrUnclassifiable
	}
	return id, nil
}

// IsRejection reports whether err is an input error (HTTP 400)
func IsRejection(err error) bool {
	return errors.Is(err, ErrIdentifierRequired) ||
		errors.Is(err, ErrUnclassifiable) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrBatchTooLarge)
}

// Lookup runs one lookup. Rejected input makes no provider or cache call.
func (s *Service) Lookup(ctx context.Context, req Request) (*entity.AggregateResult, error) {
	id, err := Resolve(req.Identifier, req.Type)
	if err != nil {
		s.logger.Debug("[LOOKUP] Rejected identifier", "error", err)
		return nil, err
	}

	result, err := s.dispatcher.Lookup(ctx, id, req.SkipCache)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id.Type, err)
	}
	return result, nil
}

// BatchOptions tunes one batch run
type BatchOptions struct {
	BatchSize int // 0 uses the service default
	SkipCache bool
}

// Rejection is an identifier a batch skipped
type Rejection struct {
	Identifier string `json:"identifier"`
	Error      string `json:"error"`
}

// BatchReport is the outcome of a batch run.
// Results keep input order; rejected identifiers are listed separately.
type BatchReport struct {
	BatchID    string                    `json:"batchId"`
	BatchSize  int                       `json:"batchSize"`
	Results    []*entity.AggregateResult `json:"results"`
	Rejected   []Rejection               `json:"rejected"`
	DurationMs int64                     `json:"durationMs"`
}

// BatchLookup processes identifiers in fixed-size sequential chunks.
// Lookups inside a chunk run concurrently; the next chunk starts only when
// the previous one has fully settled.
func (s *Service) BatchLookup(ctx context.Context, identifiers []string, opts BatchOptions) (*BatchReport, error) {
	if len(identifiers) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(identifiers) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(identifiers), s.maxBatch)
	}


	report := &BatchReport{
		BatchID:  uuid.New().String(),
		Results:  []*entity.AggregateResult{},
		Rejected: []Rejection{},
	}
	logger := s.logger.With("batch_id", report.BatchID)
	start := time.Now()

	ids := make([]entity.Identifier, 0, len(identifiers))
	for _, raw := range identifiers {
		id, err := Resolve(raw, "")
		if err != nil {
			logger.Warn("[BATCH] Skipping identifier", "identifier", raw, "error", err)
			report.Rejected = append(report.Rejected, Rejection{Identifier: raw, Error: err.Error()})
			continue
		}
		ids = append(ids, id)
	}

	// Each chunk can take a full provider timeout; a tiny caller-chosen size
	// must not stretch the batch past the server's write deadline.
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	if floor := (len(ids) + s.maxChunks - 1) / s.maxChunks; batchSize < floor {
		batchSize = floor
	}
	report.BatchSize = batchSize

	logger.Info("[BATCH] Starting batch",
		"identifiers", len(ids),
		"rejected", len(report.Rejected),
		"batch_size", batchSize)

	for chunkStart := 0; chunkStart < len(ids); chunkStart += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunkEnd := min(chunkStart+batchSize, len(ids))
		chunk := ids[chunkStart:chunkEnd]
		slots := make([]*entity.AggregateResult, len(chunk))

		var g errgroup.Group
		for i, id := range chunk {
			g.Go(func() error {
				result, err := s.dispatcher.Lookup(ctx, id, opts.SkipCache)
				if err != nil {
					return fmt.Errorf("lookup %s: %w", id.Type, err)
				}
				slots[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		report.Results = append(report.Results, slots...)
		logger.Debug("[BATCH] Chunk complete", "from", chunkStart, "to", chunkEnd)
	}

	report.DurationMs = time.Since(start).Milliseconds()
	logger.Info("[BATCH] Batch complete", "results", len(report.Results), "duration_ms", report.DurationMs)
	return report, nil
}

// HealthReport is the /health payload
type HealthReport struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	APIs    map[string]string `json:"apis"`
}

// Health reports the credential state of every provider
func (s *Service) Health() HealthReport {
	return HealthReport{
		Status:  "ok",
		Service: serviceName,
		Version: serviceVersion,
		APIs:    s.dispatcher.HealthLabels(),
	}
}

// Usage returns the remaining outbound budget of every provider
func (s *Service) Usage() []entity.ProviderStatus {
	return s.dispatcher.ProviderStatuses()
}

// CacheStats returns cache statistics, or false when the backend has none
func (s *Service) CacheStats(ctx context.Context) (cache.Stats, bool) {
	if s.stats == nil {
		return cache.Stats{}, false
	}
	return s.stats.Stats(ctx), true
}
