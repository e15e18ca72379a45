package riskintel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// IPQualityScoreClient queries the IPQualityScore proxy/fraud API
type IPQualityScoreClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// IPQualityScoreConfig holds IPQualityScore client configuration
type IPQualityScoreConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewIPQualityScoreClient creates a new IPQualityScore client
func NewIPQualityScoreClient(cfg IPQualityScoreConfig) *IPQualityScoreClient {
	return &IPQualityScoreClient{
		apiKey:     cfg.APIKey,
		baseURL:    orDefault(cfg.BaseURL, "https://ipqualityscore.com/api/json/ip"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// IPQualityScoreResponse is the subset of the IPQS answer that is scored
type IPQualityScoreResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	FraudScore  int    `json:"fraud_score"`
	Proxy       bool   `json:"proxy"`
	VPN         bool   `json:"vpn"`
	Tor         bool   `json:"tor"`
	RecentAbuse bool   `json:"recent_abuse"`
	BotStatus   bool   `json:"bot_status"`
	ISP         string `json:"ISP"`
	CountryCode string `json:"country_code"`
}

// Query checks ip with strictness 1
func (c *IPQualityScoreClient) Query(ctx context.Context, ip string) (*ProviderResult, error) {
	if !c.IsConfigured() {
		return nil, notConfigured(c.Name())
	}

	reqURL := fmt.Sprintf("%s/%s/%s?strictness=1",
		c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var data IPQualityScoreResponse
	raw, err := doJSON(c.httpClient, req, c.Name(), &data)
	if err != nil {
		return nil, err
	}
	if !data.Success {
		return nil, malformed(c.Name(), "request rejected: %s", data.Message)
	}

	score, factors := normalizeIPQualityScore(data)
	return success(c.Name(), score, factors, raw), nil
}

func normalizeIPQualityScore(data IPQualityScoreResponse) (int, []string) {
	factors := []string{}
	if data.Proxy {
		factors = append(factors, "Proxy detected")
	}
	if data.VPN {
		factors = append(factors, "VPN detected")
	}
	if data.Tor {
		factors = append(factors, "TOR exit node")
	}
	if data.RecentAbuse {
		factors = append(factors, "Recent abuse detected")
	}
	return data.FraudScore, factors
}

// Name returns the provider name
func (c *IPQualityScoreClient) Name() string { return "ipqualityscore" }

// Type returns the identifier type served
func (c *IPQualityScoreClient) Type() entity.IdentifierType { return entity.IdentifierIP }

// IsConfigured returns true if the client has an API key
func (c *IPQualityScoreClient) IsConfigured() bool { return c.apiKey != "" }

// Description returns a short description
func (c *IPQualityScoreClient) Description() string { return "Fraud score with proxy/VPN/TOR detection" }
