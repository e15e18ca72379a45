package riskintel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// phoneLineScore is the line-type table shared by every phone provider.
// Invalid numbers score 100, VOIP 40, mobile 10, anything else 0.
func phoneLineScore(valid bool, lineType string) (int, []string) {
	if !valid {
		return 100, []string{"Invalid phone number"}
	}

	switch strings.ToLower(lineType) {
	case "voip":
		return 40, []string{"VOIP number"}
	case "mobile":
		return 10, []string{}
	default:
		return 0, []string{}
	}
}

// NumverifyClient queries the apilayer numverify API
type NumverifyClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NumverifyConfig holds numverify client configuration
type NumverifyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewNumverifyClient creates a new numverify client
func NewNumverifyClient(cfg NumverifyConfig) *NumverifyClient {
	return &NumverifyClient{
		apiKey:     cfg.APIKey,
		baseURL:    orDefault(cfg.BaseURL, "http://apilayer.net/api/validate"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// NumverifyResponse is the numverify answer.
// Errors come back with status 200 and success=false.
type NumverifyResponse struct {
	Success     *bool  `json:"success,omitempty"`
	Valid       bool   `json:"valid"`
	Number      string `json:"number"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Carrier     string `json:"carrier"`
	LineType    string `json:"line_type"`
	Error       *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

// Query validates phone
func (c *NumverifyClient) Query(ctx context.Context, phone string) (*ProviderResult, error) {
	if !c.IsConfigured() {
		return nil, notConfigured(c.Name())
	}

	params := url.Values{}
	params.Set("access_key", c.apiKey)
	params.Set("number", phone)
	params.Set("format", "1")
	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var data NumverifyResponse
	raw, err := doJSON(c.httpClient, req, c.Name(), &data)
	if err != nil {
		return nil, err
	}
	if data.Success != nil && !*data.Success {
		info := "unknown error"
		if data.Error != nil {
			info = fmt.Sprintf("%d %s", data.Error.Code, data.Error.Info)
		}
		return nil, malformed(c.Name(), "API error: %s", info)
	}

	score, factors := phoneLineScore(data.Valid, data.LineType)
	return success(c.Name(), score, factors, raw), nil
}

// Name returns the provider name
func (c *NumverifyClient) Name() string { return "numverify" }

// Type returns the identifier type served
func (c *NumverifyClient) Type() entity.IdentifierType { return entity.IdentifierPhone }

// IsConfigured returns true if the client has an API key
func (c *NumverifyClient) IsConfigured() bool { return c.apiKey != "" }

// Description returns a short description
func (c *NumverifyClient) Description() string { return "Phone validation & line type" }
