package riskintel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kr1s57/lookupx/internal/adapter/cache"
	"github.com/kr1s57/lookupx/internal/domain/identifier"
	"github.com/kr1s57/lookupx/internal/domain/scoring"
	"github.com/kr1s57/lookupx/internal/entity"
)

// Dispatcher runs one lookup: cache check, settle-all fan-out to the
// providers of the identifier type, scoring, recommendation, cache write.
type Dispatcher struct {
	registry *Registry
	cache    cache.Store
	cacheTTL time.Duration
	timeout  time.Duration
	dedup    bool
	group    singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
}

// DispatcherConfig holds dispatcher configuration
type DispatcherConfig struct {
	Registry *Registry
	Cache    cache.Store // nil disables caching
	CacheTTL time.Duration
	Timeout  time.Duration // per provider query
	// Dedup makes concurrent fresh lookups of one identifier share a fan-out
	Dedup  bool
	Logger *slog.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		registry: cfg.Registry,
		cache:    cfg.Cache,
		cacheTTL: ttl,
		timeout:  timeout,
		dedup:    cfg.Dedup,
		logger:   logger,
		now:      time.Now,
	}
}

// Registry returns the provider registry
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Lookup aggregates the providers of id.Type.
// id must already be classified; the dispatcher never rejects.
func (d *Dispatcher) Lookup(ctx context.Context, id entity.Identifier, skipCache bool) (*entity.AggregateResult, error) {
	if !id.Type.IsValid() {
		return nil, fmt.Errorf("cannot dispatch identifier of type %q", id.Type)
	}

	start := d.now()
	key := identifier.CacheKey(id)

	if !skipCache {
		if hit := d.cacheGet(ctx, key); hit != nil {
			hit.Cached = true
			hit.ProcessingTimeMs = d.now().Sub(start).Milliseconds()
			return hit, nil
		}
	}

	// The fan-out result is cached for everyone, so a caller giving up must
	// not turn provider answers into errors. Provider timeouts still bound it.
	fctx := context.WithoutCancel(ctx)

	var result *entity.AggregateResult
	if d.dedup && !skipCache {
		v, err, shared := d.group.Do(key, func() (any, error) {
			return d.fanout(fctx, id, key), nil
		})
		if err != nil {
			return nil, err
		}
		if shared {
			d.logger.Debug("[LOOKUP] Joined in-flight lookup", "type", id.Type)
		}
		result = v.(*entity.AggregateResult).Clone()
	} else {
		result = d.fanout(fctx, id, key)
	}

	result.Cached = false
	result.ProcessingTimeMs = d.now().Sub(start).Milliseconds()
	return result, nil
}

func (d *Dispatcher) cacheGet(ctx context.Context, key string) *entity.AggregateResult {
	if d.cache == nil {
		return nil
	}

	cached, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		recordCache("hit")
		return cached
	case errors.Is(err, cache.ErrMiss):
		recordCache("miss")
	default:
		recordCache("error")
		d.logger.Warn("[CACHE] Read failed, treating as miss", "error", err)
	}
	return nil
}

// fanout queries every eligible provider concurrently and waits for all of them
func (d *Dispatcher) fanout(ctx context.Context, id entity.Identifier, key string) *entity.AggregateResult {
	regs := d.registry.forType(id.Type)
	slots := make([]*ProviderResult, len(regs))

	var wg sync.WaitGroup
	for i, reg := range regs {
		name := reg.Provider.Name()

		if !reg.Provider.IsConfigured() {
			recordOutcome(name, outcomeNotConfigured)
			d.logger.Debug("[PROVIDER] Not configured, skipping", "provider", name)
			continue
		}
		if !reg.limiter.TryAcquire() {
			recordOutcome(name, outcomeRateLimited)
			d.logger.Info("[PROVIDER] Rate limit reached, skipping",
				"provider", name,
				"policy", reg.Policy.String())
			continue
		}

		wg.Add(1)
		go func(i int, reg *registration) {
			defer wg.Done()
			slots[i] = d.query(ctx, reg.Provider, id.Value)
		}(i, reg)
	}
	wg.Wait()

	result := d.collect(id, regs, slots)

	if d.cache != nil {
		if err := d.cache.Set(ctx, key, result, d.cacheTTL); err != nil {
			d.logger.Warn("[CACHE] Write failed", "error", err)
		}
	}

	recordLookup(string(id.Type), string(result.RiskLevel))
	d.logger.Info("[LOOKUP] Lookup complete",
		"type", id.Type,
		"score", result.RiskScore,
		"level", result.RiskLevel,
		"sources", len(result.Sources),
		"errors", len(result.Errors))

	return result
}

type queryOutcome struct {
	result *ProviderResult
	err    error
}

// query runs one provider under the per-provider timeout.
// It always returns, even when the provider ignores its context or panics.
func (d *Dispatcher) query(ctx context.Context, p Provider, value string) *ProviderResult {
	name := p.Name()
	qctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan queryOutcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- queryOutcome{err: &ProviderError{Provider: name, Kind: KindPanic, Err: fmt.Errorf("%v", r)}}
			}
		}()
		res, err := p.Query(qctx, value)
		done <- queryOutcome{result: res, err: err}
	}()

	var out queryOutcome
	select {
	case out = <-done:
	case <-qctx.Done():
		out.err = classifyTransportError(name, qctx.Err())
	}
	recordLatency(name, time.Since(start))

	if out.err == nil && (out.result == nil || !out.result.Success) {
		out.err = malformed(name, "provider returned no usable result")
		if out.result != nil && out.result.Err != nil {
			out.err = out.result.Err
		}
	}

	if out.err != nil {
		kind := KindOf(out.err)
		recordOutcome(name, outcomeError)
		recordProviderError(name, kind)
		d.logger.Warn("[PROVIDER] Query failed", "provider", name, "kind", kind, "error", out.err)
		return &ProviderResult{Provider: name, Success: false, Factors: []string{}, Err: out.err}
	}

	recordOutcome(name, outcomeSuccess)
	out.result.Provider = name
	return out.result
}

// collect turns settled slots into the final result, in registration order
func (d *Dispatcher) collect(id entity.Identifier, regs []*registration, slots []*ProviderResult) *entity.AggregateResult {
	sources := []string{}
	errs := []string{}
	contributions := make([]scoring.Contribution, 0, len(regs))
	var details map[string]json.RawMessage

	for i, slot := range slots {
		if slot == nil {
			continue
		}
		name := regs[i].Provider.Name()
		if !slot.Success {
			errs = append(errs, name)
			continue
		}

		sources = append(sources, name)
		contributions = append(contributions, scoring.Contribution{
			Provider: name,
			Weight:   regs[i].Weight,
			Score:    slot.Score,
			Factors:  slot.Factors,
		})
		if len(slot.Raw) > 0 {
			if details == nil {
				details = make(map[string]json.RawMessage)
			}
			details[name] = slot.Raw
		}
	}

	agg := scoring.Combine(contributions)
	result := &entity.AggregateResult{
		Identifier:     id.Value,
		Type:           id.Type,
		RiskScore:      agg.Score,
		RiskLevel:      scoring.GetRiskLevel(agg.Score),
		Factors:        agg.Factors,
		Sources:        sources,
		Errors:         errs,
		Recommendation: scoring.GetRecommendation(agg.Score),
		Details:        details,
		Timestamp:      d.now().UTC(),
	}
	return result
}

// ProviderStatuses describes every provider and its remaining budget
func (d *Dispatcher) ProviderStatuses() []entity.ProviderStatus {
	return d.registry.Statuses()
}

// HealthLabels maps provider names to their health wording
func (d *Dispatcher) HealthLabels() map[string]string {
	return d.registry.HealthLabels()
}
