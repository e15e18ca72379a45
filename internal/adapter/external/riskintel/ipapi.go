package riskintel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// IPAPIClient queries the free ip-api.com geolocation service.
// It needs no API key.
type IPAPIClient struct {
	baseURL    string
	httpClient *http.Client
}

// IPAPIConfig holds ip-api client configuration
type IPAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewIPAPIClient creates a new ip-api client
func NewIPAPIClient(cfg IPAPIConfig) *IPAPIClient {
	return &IPAPIClient{
		baseURL:    orDefault(cfg.BaseURL, "http://ip-api.com/json"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// IPAPIResponse represents the ip-api JSON answer
type IPAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
	City    string `json:"city"`
	ISP     string `json:"isp"`
	Proxy   bool   `json:"proxy"`
	Hosting bool   `json:"hosting"`
}

// Query looks up ip and scores proxy/hosting flags
func (c *IPAPIClient) Query(ctx context.Context, ip string) (*ProviderResult, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=status,message,country,city,isp,proxy,hosting",
		c.baseURL, url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var data IPAPIResponse
	raw, err := doJSON(c.httpClient, req, c.Name(), &data)
	if err != nil {
		return nil, err
	}

	if data.Status == "fail" {
		return nil, malformed(c.Name(), "lookup failed: %s", data.Message)
	}

	score, factors := normalizeIPAPI(data)
	return success(c.Name(), score, factors, raw), nil
}

func normalizeIPAPI(data IPAPIResponse) (int, []string) {
	score := 0
	if data.Proxy || data.Hosting {
		score = 75
	}

	factors := []string{}
	if data.Proxy {
		factors = append(factors, "Proxy detected")
	}
	if data.Hosting {
		factors = append(factors, "Hosting provider IP")
	}
	return score, factors
}

// Name returns the provider name
func (c *IPAPIClient) Name() string { return "ip-api" }

// Type returns the identifier type served
func (c *IPAPIClient) Type() entity.IdentifierType { return entity.IdentifierIP }

// IsConfigured always returns true, ip-api has no key
func (c *IPAPIClient) IsConfigured() bool { return true }

// Keyless marks ip-api as a free service
func (c *IPAPIClient) Keyless() bool { return true }

// Description returns a short description
func (c *IPAPIClient) Description() string { return "Free geolocation with proxy/hosting flags" }
