package riskintel

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider outcomes recorded per lookup
const (
	outcomeSuccess       = "success"
	outcomeError         = "error"
	outcomeRateLimited   = "rate_limited"
	outcomeNotConfigured = "not_configured"
)

var (
	providerOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookup_provider_outcomes_total",
		Help: "Provider outcomes per lookup (success, error, rate_limited, not_configured)",
	}, []string{"provider", "outcome"})

	providerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookup_provider_errors_total",
		Help: "Provider failures by kind",
	}, []string{"provider", "kind"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lookup_provider_duration_seconds",
		Help:    "Latency of provider queries",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"provider"})

	cacheResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookup_cache_results_total",
		Help: "Cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lookup_requests_total",
		Help: "Completed lookups by identifier type and risk level",
	}, []string{"type", "risk_level"})
)

func recordOutcome(provider, outcome string) {
	providerOutcomesTotal.WithLabelValues(provider, outcome).Inc()
}

func recordProviderError(provider string, kind ErrorKind) {
	if kind == "" {
		kind = KindTransport
	}
	providerErrorsTotal.WithLabelValues(provider, string(kind)).Inc()
}

func recordLatency(provider string, d time.Duration) {
	providerLatency.WithLabelValues(provider).Observe(d.Seconds())
}

func recordCache(result string) {
	cacheResultsTotal.WithLabelValues(result).Inc()
}

func recordLookup(t, level string) {
	lookupsTotal.WithLabelValues(t, level).Inc()
}
