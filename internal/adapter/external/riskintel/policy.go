package riskintel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PolicyOverride changes the weight or budget of one provider.
// Zero fields keep the default.
type PolicyOverride struct {
	Weight            float64 `yaml:"weight"`
	TokensPerInterval int     `yaml:"tokens_per_interval"`
	Interval          string  `yaml:"interval"`
	Disabled          bool    `yaml:"disabled"`
}

// PolicyFile is the YAML document loaded from PROVIDER_POLICY_FILE:
//
//	providers:
//	  ipqualityscore:
//	    weight: 0.4
//	    tokens_per_interval: 5000
//	    interval: month
//	  zerobounce:
//	    disabled: true
type PolicyFile struct {
	Providers map[string]PolicyOverride `yaml:"providers"`
}

// LoadPolicyFile reads and validates a policy file
func LoadPolicyFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a policy document
func ParsePolicy(data []byte) (*PolicyFile, error) {
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}

	for name, o := range pf.Providers {
		if o.Weight < 0 || o.Weight > 1 {
			return nil, fmt.Errorf("provider %q: weight %v outside (0,1]", name, o.Weight)
		}
		if o.TokensPerInterval < 0 {
			return nil, fmt.Errorf("provider %q: negative tokens_per_interval", name)
		}
		if o.Interval != "" {
			if _, err := (RatePolicy{TokensPerInterval: 1, Interval: o.Interval}).Duration(); err != nil {
				return nil, fmt.Errorf("provider %q: %w", name, err)
			}
		}
	}
	return &pf, nil
}

// Apply returns configs with the overrides applied.
// Disabled providers are removed; unknown provider names are an error.
func (pf *PolicyFile) Apply(configs []ProviderConfig) ([]ProviderConfig, error) {
	if pf == nil || len(pf.Providers) == 0 {
		return configs, nil
	}

	known := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		known[cfg.Provider.Name()] = true
	}
	for name := range pf.Providers {
		if !known[name] {
			return nil, fmt.Errorf("policy file: unknown provider %q", name)
		}
	}

	out := make([]ProviderConfig, 0, len(configs))
	for _, cfg := range configs {
		o, ok := pf.Providers[cfg.Provider.Name()]
		if !ok {
			out = append(out, cfg)
			continue
		}
		if o.Disabled {
			continue
		}
		if o.Weight > 0 {
			cfg.Weight = o.Weight
		}
		if o.TokensPerInterval > 0 {
			cfg.Policy.TokensPerInterval = o.TokensPerInterval
		}
		if o.Interval != "" {
			cfg.Policy.Interval = o.Interval
		}
		out = append(out, cfg)
	}
	return out, nil
}
