package riskintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// VeriphoneClient queries the Veriphone v2 verify API
type VeriphoneClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// VeriphoneConfig holds Veriphone client configuration
type VeriphoneConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewVeriphoneClient creates a new Veriphone client
func NewVeriphoneClient(cfg VeriphoneConfig) *VeriphoneClient {
	return &VeriphoneClient{
		apiKey:     cfg.APIKey,
		baseURL:    orDefault(cfg.BaseURL, "https://api.veriphone.io/v2/verify"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// VeriphoneResponse is the verify answer
type VeriphoneResponse struct {
	Status      string `json:"status"`
	Phone       string `json:"phone"`
	PhoneValid  bool   `json:"phone_valid"`
	PhoneType   string `json:"phone_type"`
	Carrier     string `json:"carrier"`
	CountryCode string `json:"country_code"`
}

// Query verifies phone
func (c *VeriphoneClient) Query(ctx context.Context, phone string) (*ProviderResult, error) {
	if !c.IsConfigured() {
		return nil, notConfigured(c.Name())
	}

	body, err := json.Marshal(map[string]string{"phone": phone})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var data VeriphoneResponse
	raw, err := doJSON(c.httpClient, req, c.Name(), &data)
	if err != nil {
		return nil, err
	}
	if data.Status != "success" {
		return nil, malformed(c.Name(), "unexpected status %q", data.Status)
	}

	score, factors := phoneLineScore(data.PhoneValid, data.PhoneType)
	return success(c.Name(), score, factors, raw), nil
}

// Name returns the provider name
func (c *VeriphoneClient) Name() string { return "veriphone" }

// Type returns the identifier type served
func (c *VeriphoneClient) Type() entity.IdentifierType { return entity.IdentifierPhone }

// IsConfigured returns true if the client has an API key
func (c *VeriphoneClient) IsConfigured() bool { return c.apiKey != "" }

// Description returns a short description
func (c *VeriphoneClient) Description() string { return "Phone verification & carrier lookup" }
