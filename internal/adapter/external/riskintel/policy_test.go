package riskintel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	pf, err := ParsePolicy([]byte(`
providers:
  ipqualityscore:
    weight: 0.4
    tokens_per_interval: 5000
    interval: month
  zerobounce:
    disabled: true
`))
	require.NoError(t, err)
	require.Len(t, pf.Providers, 2)
	assert.Equal(t, 0.4, pf.Providers["ipqualityscore"].Weight)
	assert.True(t, pf.Providers["zerobounce"].Disabled)
}

func TestParsePolicy_Invalid(t *testing.T) {
	tests := map[string]string{
		"weight above one":  "providers:\n  abuseipdb:\n    weight: 1.5\n",
		"negative weight":   "providers:\n  abuseipdb:\n    weight: -0.1\n",
		"negative tokens":   "providers:\n  abuseipdb:\n    tokens_per_interval: -1\n",
		"unknown interval":  "providers:\n  abuseipdb:\n    interval: week\n",
		"not a yaml object": "providers: [1, 2",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestPolicyFile_Apply(t *testing.T) {
	configs := DefaultProviders(DefaultsConfig{})
	pf := &PolicyFile{Providers: map[string]PolicyOverride{
		"ipqualityscore": {Weight: 0.4, TokensPerInterval: 5000, Interval: IntervalMonth},
		"zerobounce":     {Disabled: true},
	}}

	out, err := pf.Apply(configs)
	require.NoError(t, err)
	assert.Len(t, out, len(configs)-1)

	byName := map[string]ProviderConfig{}
	for _, cfg := range out {
		byName[cfg.Provider.Name()] = cfg
	}
	assert.NotContains(t, byName, "zerobounce")
	assert.Equal(t, 0.4, byName["ipqualityscore"].Weight)
	assert.Equal(t, PerMonth(5000), byName["ipqualityscore"].Policy)
	assert.Equal(t, 0.25, byName["abuseipdb"].Weight)
}

func TestPolicyFile_ApplyUnknownProvider(t *testing.T) {
	pf := &PolicyFile{Providers: map[string]PolicyOverride{"shodan": {Weight: 0.5}}}
	_, err := pf.Apply(DefaultProviders(DefaultsConfig{}))
	assert.Error(t, err)
}

func TestPolicyFile_ApplyNil(t *testing.T) {
	var pf *PolicyFile
	configs := DefaultProviders(DefaultsConfig{})
	out, err := pf.Apply(configs)
	require.NoError(t, err)
	assert.Equal(t, configs, out)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  veriphone:\n    weight: 0.2\n"), 0o600))

	pf, err := LoadPolicyFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, pf.Providers["veriphone"].Weight)

	_, err = LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
