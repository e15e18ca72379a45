package riskintel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// AbuseIPDBClient handles communication with AbuseIPDB API
type AbuseIPDBClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// AbuseIPDBConfig holds AbuseIPDB client configuration
type AbuseIPDBConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewAbuseIPDBClient creates a new AbuseIPDB client
func NewAbuseIPDBClient(cfg AbuseIPDBConfig) *AbuseIPDBClient {
	return &AbuseIPDBClient{
		apiKey:     cfg.APIKey,
		baseURL:    orDefault(cfg.BaseURL, "https://api.abuseipdb.com/api/v2"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// AbuseIPDBResponse represents the API response for IP check
type AbuseIPDBResponse struct {
	Data AbuseIPDBData `json:"data"`
}

// AbuseIPDBData contains the IP information
type AbuseIPDBData struct {
	IPAddress            string `json:"ipAddress"`
	IsWhitelisted        bool   `json:"isWhitelisted"`
	AbuseConfidenceScore int    `json:"abuseConfidenceScore"`
	CountryCode          string `json:"countryCode"`
	UsageType            string `json:"usageType"`
	ISP                  string `json:"isp"`
	TotalReports         int    `json:"totalReports"`
	LastReportedAt       string `json:"lastReportedAt"`
	IsTor                bool   `json:"isTor"`
}

// Query queries AbuseIPDB for IP reputation
func (c *AbuseIPDBClient) Query(ctx context.Context, ip string) (*ProviderResult, error) {
	if !c.IsConfigured() {
		return nil, notConfigured(c.Name())
	}

	reqURL := fmt.Sprintf("%s/check?ipAddress=%s&maxAgeInDays=90&verbose=true",
		c.baseURL, url.QueryEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Key", c.apiKey)

	var apiResp AbuseIPDBResponse
	if _, err := doJSON(c.httpClient, req, c.Name(), &apiResp); err != nil {
		return nil, err
	}

	// Keep only the data envelope as the raw payload
	raw, err := json.Marshal(apiResp.Data)
	if err != nil {
		return nil, malformed(c.Name(), "encode payload: %v", err)
	}

	score, factors := normalizeAbuseIPDB(apiResp.Data)
	return success(c.Name(), score, factors, raw), nil
}

func normalizeAbuseIPDB(data AbuseIPDBData) (int, []string) {
	score := data.AbuseConfidenceScore // already 0-100

	factors := []string{}
	if score > 50 {
		factors = append(factors, fmt.Sprintf("High abuse score (%d%%)", score))
	}
	if data.UsageType == "Commercial" {
		factors = append(factors, "Commercial IP")
	}
	if data.TotalReports > 10 {
		factors = append(factors, fmt.Sprintf("Reported %d times", data.TotalReports))
	}
	return score, factors
}

// Name returns the provider name
func (c *AbuseIPDBClient) Name() string { return "abuseipdb" }

// Type returns the identifier type served
func (c *AbuseIPDBClient) Type() entity.IdentifierType { return entity.IdentifierIP }

// IsConfigured returns true if the client has an API key
func (c *AbuseIPDBClient) IsConfigured() bool { return c.apiKey != "" }

// Description returns a short description
func (c *AbuseIPDBClient) Description() string { return "IP abuse reports & confidence scoring" }
