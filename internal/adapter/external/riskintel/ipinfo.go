package riskintel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// IPInfoClient queries ipinfo.io, whose privacy block flags anonymizers
type IPInfoClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// IPInfoConfig holds ipinfo client configuration
type IPInfoConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewIPInfoClient creates a new ipinfo client
func NewIPInfoClient(cfg IPInfoConfig) *IPInfoClient {
	return &IPInfoClient{
		apiKey:     cfg.APIKey,
		baseURL:    orDefault(cfg.BaseURL, "https://ipinfo.io"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// IPInfoResponse is the ipinfo answer
type IPInfoResponse struct {
	IP      string         `json:"ip"`
	Country string         `json:"country"`
	Org     string         `json:"org"`
	Bogon   bool           `json:"bogon"`
	Privacy *IPInfoPrivacy `json:"privacy,omitempty"`
}

// IPInfoPrivacy holds the anonymizer detection flags
type IPInfoPrivacy struct {
	VPN     bool `json:"vpn"`
	Proxy   bool `json:"proxy"`
	Tor     bool `json:"tor"`
	Relay   bool `json:"relay"`
	Hosting bool `json:"hosting"`
}

// Query fetches ip details
func (c *IPInfoClient) Query(ctx context.Context, ip string) (*ProviderResult, error) {
	if !c.IsConfigured() {
		return nil, notConfigured(c.Name())
	}

	reqURL := fmt.Sprintf("%s/%s/json", c.baseURL, url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var data IPInfoResponse
	raw, err := doJSON(c.httpClient, req, c.Name(), &data)
	if err != nil {
		return nil, err
	}

	score, factors := normalizeIPInfo(data)
	return success(c.Name(), score, factors, raw), nil
}

// normalizeIPInfo scores the strongest anonymizer signal present
func normalizeIPInfo(data IPInfoResponse) (int, []string) {
	if data.Bogon {
		return 100, []string{"Bogon IP address"}
	}

	score := 0
	factors := []string{}
	if data.Privacy == nil {
		return score, factors
	}

	flag := func(set bool, value int, factor string) {
		if !set {
			return
		}
		factors = append(factors, factor)
		if value > score {
			score = value
		}
	}
	flag(data.Privacy.Tor, 90, "TOR exit node")
	flag(data.Privacy.Proxy, 75, "Proxy detected")
	flag(data.Privacy.VPN, 70, "VPN detected")
	flag(data.Privacy.Relay, 50, "Privacy relay")
	flag(data.Privacy.Hosting, 50, "Hosting provider IP")

	return score, factors
}

// Name returns the provider name
func (c *IPInfoClient) Name() string { return "ipinfo" }

// Type returns the identifier type served
func (c *IPInfoClient) Type() entity.IdentifierType { return entity.IdentifierIP }

// IsConfigured returns true if the client has an API key
func (c *IPInfoClient) IsConfigured() bool { return c.apiKey != "" }

// Description returns a short description
func (c *IPInfoClient) Description() string { return "ASN, bogon and privacy (VPN/proxy/TOR) detection" }
