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

// ZeroBounceClient queries the ZeroBounce v2 validation API
type ZeroBounceClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ZeroBounceConfig holds ZeroBounce client configuration
type ZeroBounceConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewZeroBounceClient creates a new ZeroBounce client
func NewZeroBounceClient(cfg ZeroBounceConfig) *ZeroBounceClient {
	return &ZeroBounceClient{
		apiKey:     cfg.APIKey,
		baseURL:    orDefault(cfg.BaseURL, "https://api.zerobounce.net/v2"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// ZeroBounceResponse is the validation answer
type ZeroBounceResponse struct {
	Address    string `json:"address"`
	Status     string `json:"status"`
	SubStatus  string `json:"sub_status"`
	FreeEmail  bool   `json:"free_email"`
	Disposable bool   `json:"disposable"`
	Error      string `json:"error"`
}

// Risk contributed by each ZeroBounce status; unlisted statuses score 0
var zeroBounceStatusScore = map[string]int{
	"invalid":     100,
	"spamtrap":    90,
	"abuse":       80,
	"do_not_mail": 70,
	"catch-all":   60,
}

// Query validates email
func (c *ZeroBounceClient) Query(ctx context.Context, email string) (*ProviderResult, error) {
	if !c.IsConfigured() {
		return nil, notConfigured(c.Name())
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("email", email)
	reqURL := fmt.Sprintf("%s/validate?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var data ZeroBounceResponse
	raw, err := doJSON(c.httpClient, req, c.Name(), &data)
	if err != nil {
		return nil, err
	}
	if data.Error != "" {
		return nil, malformed(c.Name(), "API error: %s", data.Error)
	}
	if data.Status == "" {
		return nil, malformed(c.Name(), "missing status")
	}

	score, factors := normalizeZeroBounce(data)
	return success(c.Name(), score, factors, raw), nil
}

func normalizeZeroBounce(data ZeroBounceResponse) (int, []string) {
	score := zeroBounceStatusScore[strings.ToLower(data.Status)]

	factors := []string{}
	if data.FreeEmail {
		factors = append(factors, "Free email provider")
	}
	if data.Disposable || strings.EqualFold(data.SubStatus, "disposable") {
		factors = append(factors, "Disposable email")
	}
	return score, factors
}

// Name returns the provider name
func (c *ZeroBounceClient) Name() string { return "zerobounce" }

// Type returns the identifier type served
func (c *ZeroBounceClient) Type() entity.IdentifierType { return entity.IdentifierEmail }

// IsConfigured returns true if the client has an API key
func (c *ZeroBounceClient) IsConfigured() bool { return c.apiKey != "" }

// Description returns a short description
func (c *ZeroBounceClient) Description() string { return "Mailbox validation, spamtraps & abuse accounts" }
