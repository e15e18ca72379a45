package riskintel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// ProxyCheckClient queries proxycheck.io v2
type ProxyCheckClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ProxyCheckConfig holds proxycheck client configuration
type ProxyCheckConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewProxyCheckClient creates a new proxycheck client
func NewProxyCheckClient(cfg ProxyCheckConfig) *ProxyCheckClient {
	return &ProxyCheckClient{
		apiKey:     cfg.APIKey,
		baseURL:    orDefault(cfg.BaseURL, "https://proxycheck.io/v2"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// ProxyCheckEntry is the per-address block of a proxycheck answer
type ProxyCheckEntry struct {
	Proxy    string `json:"proxy"`
	Type     string `json:"type"`
	Risk     *int   `json:"risk,omitempty"`
	Provider string `json:"provider"`
	Country  string `json:"country"`
}

// Query checks ip with VPN, ASN and risk data enabled
func (c *ProxyCheckClient) Query(ctx context.Context, ip string) (*ProviderResult, error) {
	if !c.IsConfigured() {
		return nil, notConfigured(c.Name())
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("vpn", "1")
	params.Set("asn", "1")
	params.Set("risk", "1")
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(ip), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// The answer is keyed by the queried address next to a "status" field
	var envelope map[string]json.RawMessage
	if _, err := doJSON(c.httpClient, req, c.Name(), &envelope); err != nil {
		return nil, err
	}

	var status string
	if raw, ok := envelope["status"]; ok {
		if err := json.Unmarshal(raw, &status); err != nil {
			return nil, malformed(c.Name(), "decode status: %v", err)
		}
	}
	if status == "error" || status == "denied" {
		var message string
		if raw, ok := envelope["message"]; ok && json.Unmarshal(raw, &message) != nil {
			message = string(raw)
		}
		return nil, malformed(c.Name(), "request %s: %s", status, message)
	}

	block, ok := envelope[ip]
	if !ok {
		return nil, malformed(c.Name(), "no entry for %s in response", ip)
	}

	var entry ProxyCheckEntry
	if err := json.Unmarshal(block, &entry); err != nil {
		return nil, malformed(c.Name(), "decode entry: %v", err)
	}

	score, factors := normalizeProxyCheck(entry)
	return success(c.Name(), score, factors, block), nil
}

func normalizeProxyCheck(entry ProxyCheckEntry) (int, []string) {
	isProxy := strings.EqualFold(entry.Proxy, "yes")

	score := 0
	if isProxy {
		score = 75
	}
	if entry.Risk != nil {
		score = *entry.Risk
	}

	factors := []string{}
	if isProxy {
		if entry.Type != "" {
			factors = append(factors, fmt.Sprintf("Proxy detected (%s)", entry.Type))
		} else {
			factors = append(factors, "Proxy detected")
		}
	}
	if strings.EqualFold(entry.Type, "VPN") {
		factors = append(factors, "VPN detected")
	}
	return score, factors
}

// Name returns the provider name
func (c *ProxyCheckClient) Name() string { return "proxycheck" }

// Type returns the identifier type served
func (c *ProxyCheckClient) Type() entity.IdentifierType { return entity.IdentifierIP }

// IsConfigured returns true if the client has an API key
func (c *ProxyCheckClient) IsConfigured() bool { return c.apiKey != "" }

// Description returns a short description
func (c *ProxyCheckClient) Description() string { return "Proxy and VPN detection with risk score" }
