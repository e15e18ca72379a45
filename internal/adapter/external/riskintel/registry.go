package riskintel

import (
	"fmt"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// ProviderConfig binds a provider to its weight and outbound budget
type ProviderConfig struct {
	Provider Provider
	Weight   float64 // in (0, 1]
	Policy   RatePolicy
}

// registration is a validated ProviderConfig with its token bucket
type registration struct {
	ProviderConfig
	limiter *RateLimiter
}

// Registry holds the provider set, grouped by identifier type.
// Order inside a type is registration order, which is also factor order.
type Registry struct {
	byType map[entity.IdentifierType][]*registration
	all    []*registration
}

// NewRegistry validates configs and creates one bucket per provider.
// Providers without a credential get a zero-capacity bucket.
func NewRegistry(configs []ProviderConfig) (*Registry, error) {
	r := &Registry{byType: make(map[entity.IdentifierType][]*registration)}
	seen := make(map[string]bool, len(configs))

	for _, cfg := range configs {
		if cfg.Provider == nil {
			return nil, fmt.Errorf("provider config without provider")
		}
		name := cfg.Provider.Name()
		if seen[name] {
			return nil, fmt.Errorf("duplicate provider %q", name)
		}
		seen[name] = true

		if !cfg.Provider.Type().IsValid() {
			return nil, fmt.Errorf("provider %q: invalid identifier type %q", name, cfg.Provider.Type())
		}
		if cfg.Weight <= 0 || cfg.Weight > 1 {
			return nil, fmt.Errorf("provider %q: weight %v outside (0,1]", name, cfg.Weight)
		}

		limiter := newDisabledLimiter()
		if cfg.Provider.IsConfigured() {
			var err error
			limiter, err = NewRateLimiter(cfg.Policy)
			if err != nil {
				return nil, fmt.Errorf("provider %q: %w", name, err)
			}
		}

		reg := &registration{ProviderConfig: cfg, limiter: limiter}
		r.byType[cfg.Provider.Type()] = append(r.byType[cfg.Provider.Type()], reg)
		r.all = append(r.all, reg)
	}

	return r, nil
}

func (r *Registry) forType(t entity.IdentifierType) []*registration {
	return r.byType[t]
}

// Names returns provider names in registration order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.all))
	for _, reg := range r.all {
		names = append(names, reg.Provider.Name())
	}
	return names
}

// Statuses describes every provider and its bucket
func (r *Registry) Statuses() []entity.ProviderStatus {
	statuses := make([]entity.ProviderStatus, 0, len(r.all))
	for _, reg := range r.all {
		p := reg.Provider
		status := entity.ProviderStatus{
			Name:            p.Name(),
			Type:            p.Type(),
			Weight:          reg.Weight,
			Configured:      p.IsConfigured(),
			RequiresKey:     !isKeyless(p),
			TokensRemaining: reg.limiter.Remaining(),
			TokensPerPeriod: reg.Policy.TokensPerInterval,
			Interval:        reg.Policy.Interval,
		}
		if d, ok := p.(Describer); ok {
			status.Description = d.Description()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func isKeyless(p Provider) bool {
	k, ok := p.(KeylessProvider)
	return ok && k.Keyless()
}

// HealthLabel is the /health wording for a provider
func HealthLabel(p Provider) string {
	switch {
	case isKeyless(p):
		return "Active (no key required)"
	case p.IsConfigured():
		return "Configured"
	default:
		return "Not configured"
	}
}

// HealthLabels maps every provider name to its health wording
func (r *Registry) HealthLabels() map[string]string {
	labels := make(map[string]string, len(r.all))
	for _, reg := range r.all {
		labels[reg.Provider.Name()] = HealthLabel(reg.Provider)
	}
	return labels
}

// =============================================================================
// Default provider set
// =============================================================================

// Credentials holds one API key per keyed provider
type Credentials struct {
	AbuseIPDB        string
	IPQualityScore   string
	IPInfo           string
	ProxyCheck       string
	EmailRep         string
	ZeroBounce       string
	AbstractAPIEmail string
	Numverify        string
	AbstractAPIPhone string
	Veriphone        string
}

// DefaultsConfig configures DefaultProviders
type DefaultsConfig struct {
	Credentials       Credentials
	Timeout           time.Duration
	DisposableDomains []string // added to the built-in list
}

// DefaultProviders returns the canonical provider set in registration order
func DefaultProviders(cfg DefaultsConfig) []ProviderConfig {
	creds := cfg.Credentials
	timeout := cfg.Timeout

	return []ProviderConfig{
		// IP
		{Provider: NewIPAPIClient(IPAPIConfig{Timeout: timeout}), Weight: 0.20, Policy: PerMinute(45)},
		{Provider: NewAbuseIPDBClient(AbuseIPDBConfig{APIKey: creds.AbuseIPDB, Timeout: timeout}), Weight: 0.25, Policy: PerDay(1000)},
		{Provider: NewIPQualityScoreClient(IPQualityScoreConfig{APIKey: creds.IPQualityScore, Timeout: timeout}), Weight: 0.30, Policy: PerDay(200)},
		{Provider: NewIPInfoClient(IPInfoConfig{APIKey: creds.IPInfo, Timeout: timeout}), Weight: 0.20, Policy: PerMonth(50000)},
		{Provider: NewProxyCheckClient(ProxyCheckConfig{APIKey: creds.ProxyCheck, Timeout: timeout}), Weight: 0.25, Policy: PerDay(100)},

		// Email
		{Provider: NewEmailRepClient(EmailRepConfig{APIKey: creds.EmailRep, Timeout: timeout}), Weight: 0.35, Policy: PerDay(1000)},
		{Provider: NewZeroBounceClient(ZeroBounceConfig{APIKey: creds.ZeroBounce, Timeout: timeout}), Weight: 0.30, Policy: PerMonth(100)},
		{Provider: NewAbstractEmailClient(AbstractAPIConfig{APIKey: creds.AbstractAPIEmail, Timeout: timeout}), Weight: 0.35, Policy: PerMonth(100)},
		{Provider: NewDisposableDomainRule(cfg.DisposableDomains), Weight: 0.30, Policy: Unlimited},

		// Phone
		{Provider: NewNumverifyClient(NumverifyConfig{APIKey: creds.Numverify, Timeout: timeout}), Weight: 0.40, Policy: PerMonth(100)},
		{Provider: NewAbstractPhoneClient(AbstractAPIConfig{APIKey: creds.AbstractAPIPhone, Timeout: timeout}), Weight: 0.30, Policy: PerMonth(100)},
		{Provider: NewVeriphoneClient(VeriphoneConfig{APIKey: creds.Veriphone, Timeout: timeout}), Weight: 0.30, Policy: PerMonth(1000)},
	}
}
