package riskintel

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// AbstractAPIConfig holds configuration for the Abstract API validators
type AbstractAPIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// abstractFlag is Abstract's {"value": bool, "text": "TRUE"} wrapper
type abstractFlag struct {
	Value bool   `json:"value"`
	Text  string `json:"text"`
}

func abstractGet(ctx context.Context, client *http.Client, baseURL string, params url.Values, provider string, out any) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/?%s", strings.TrimRight(baseURL, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return doJSON(client, req, provider, out)
}

// =============================================================================
// Email validation
// =============================================================================

// AbstractEmailClient queries Abstract's email validation API
type AbstractEmailClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAbstractEmailClient creates a new Abstract email client
func NewAbstractEmailClient(cfg AbstractAPIConfig) *AbstractEmailClient {
	return &AbstractEmailClient{
		apiKey:     cfg.APIKey,
		baseURL:    orDefault(cfg.BaseURL, "https://emailvalidation.abstractapi.com/v1"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// AbstractEmailResponse is the email validation answer
type AbstractEmailResponse struct {
	Email          string       `json:"email"`
	Deliverability string       `json:"deliverability"`
	QualityScore   string       `json:"quality_score"`
	IsValidFormat  abstractFlag `json:"is_valid_format"`
	IsFreeEmail    abstractFlag `json:"is_free_email"`
	IsDisposable   abstractFlag `json:"is_disposable_email"`
	IsRoleEmail    abstractFlag `json:"is_role_email"`
	IsCatchall     abstractFlag `json:"is_catchall_email"`
	IsMXFound      abstractFlag `json:"is_mx_found"`
}

// Query validates email
func (c *AbstractEmailClient) Query(ctx context.Context, email string) (*ProviderResult, error) {
	if !c.IsConfigured() {
		return nil, notConfigured(c.Name())
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("email", email)

	var data AbstractEmailResponse
	raw, err := abstractGet(ctx, c.httpClient, c.baseURL, params, c.Name(), &data)
	if err != nil {
		return nil, err
	}

	score, factors, err := normalizeAbstractEmail(data)
	if err != nil {
		return nil, malformed(c.Name(), "%v", err)
	}
	return success(c.Name(), score, factors, raw), nil
}

// normalizeAbstractEmail scores the inverse of Abstract's quality score
func normalizeAbstractEmail(data AbstractEmailResponse) (int, []string, error) {
	quality, err := strconv.ParseFloat(data.QualityScore, 64)
	if err != nil || quality < 0 || quality > 1 {
		return 0, nil, fmt.Errorf("invalid quality_score %q", data.QualityScore)
	}
	score := int(math.Round((1 - quality) * 100))

	undeliverable := strings.EqualFold(data.Deliverability, "UNDELIVERABLE")

	factors := []string{}
	if !data.IsValidFormat.Value {
		factors = append(factors, "Invalid email format")
	}
	if undeliverable {
		factors = append(factors, "Undeliverable address")
	}
	if data.IsDisposable.Value {
		factors = append(factors, "Disposable email domain")
	}
	if data.IsFreeEmail.Value {
		factors = append(factors, "Free email provider")
	}
	if data.IsRoleEmail.Value {
		factors = append(factors, "Role-based address")
	}

	if !data.IsValidFormat.Value || undeliverable {
		score = 100
	}
	return score, factors, nil
}

// Name returns the provider name
func (c *AbstractEmailClient) Name() string { return "abstractapi_email" }

// Type returns the identifier type served
func (c *AbstractEmailClient) Type() entity.IdentifierType { return entity.IdentifierEmail }

// IsConfigured returns true if the client has an API key
func (c *AbstractEmailClient) IsConfigured() bool { return c.apiKey != "" }

// Description returns a short description
func (c *AbstractEmailClient) Description() string { return "Deliverability & quality score" }

// =============================================================================
// Phone validation
// =============================================================================

// AbstractPhoneClient queries Abstract's phone validation API
type AbstractPhoneClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewAbstractPhoneClient creates a new Abstract phone client
func NewAbstractPhoneClient(cfg AbstractAPIConfig) *AbstractPhoneClient {
	return &AbstractPhoneClient{
		apiKey:     cfg.APIKey,
		baseURL:    orDefault(cfg.BaseURL, "https://phonevalidation.abstractapi.com/v1"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// AbstractPhoneResponse is the phone validation answer
type AbstractPhoneResponse struct {
	Phone   string `json:"phone"`
	Valid   bool   `json:"valid"`
	Type    string `json:"type"`
	Carrier string `json:"carrier"`
	Country struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"country"`
}

// Query validates phone
func (c *AbstractPhoneClient) Query(ctx context.Context, phone string) (*ProviderResult, error) {
	if !c.IsConfigured() {
		return nil, notConfigured(c.Name())
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("phone", strings.TrimPrefix(phone, "+"))

	var data AbstractPhoneResponse
	raw, err := abstractGet(ctx, c.httpClient, c.baseURL, params, c.Name(), &data)
	if err != nil {
		return nil, err
	}

	score, factors := phoneLineScore(data.Valid, data.Type)
	return success(c.Name(), score, factors, raw), nil
}

// Name returns the provider name
func (c *AbstractPhoneClient) Name() string { return "abstractapi_phone" }

// Type returns the identifier type served
func (c *AbstractPhoneClient) Type() entity.IdentifierType { return entity.IdentifierPhone }

// IsConfigured returns true if the client has an API key
func (c *AbstractPhoneClient) IsConfigured() bool { return c.apiKey != "" }

// Description returns a short description
func (c *AbstractPhoneClient) Description() string { return "Phone validity, line type & carrier" }
