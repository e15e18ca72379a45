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

// EmailRepClient queries emailrep.io
type EmailRepClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// EmailRepConfig holds EmailRep client configuration
type EmailRepConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewEmailRepClient creates a new EmailRep client
func NewEmailRepClient(cfg EmailRepConfig) *EmailRepClient {
	return &EmailRepClient{
		apiKey:     cfg.APIKey,
		baseURL:    orDefault(cfg.BaseURL, "https://emailrep.io"),
		httpClient: newHTTPClient(cfg.Timeout),
	}
}

// EmailRepResponse is the EmailRep answer
type EmailRepResponse struct {
	Email      string          `json:"email"`
	Reputation string          `json:"reputation"`
	Suspicious bool            `json:"suspicious"`
	References int             `json:"references"`
	Details    EmailRepDetails `json:"details"`
}

// EmailRepDetails holds the EmailRep detail flags
type EmailRepDetails struct {
	Blacklisted             bool `json:"blacklisted"`
	MaliciousActivity       bool `json:"malicious_activity"`
	CredentialsLeaked       bool `json:"credentials_leaked"`
	DataBreach              bool `json:"data_breach"`
	DaysSinceDomainCreation *int `json:"days_since_domain_creation,omitempty"`
	Spam                    bool `json:"spam"`
	FreeProvider            bool `json:"free_provider"`
	Disposable              bool `json:"disposable"`
}

// Reputation levels reported by EmailRep, as 0-100 trust values
var emailRepReputation = map[string]int{
	"high":   90,
	"medium": 60,
	"low":    30,
	"none":   0,
}

// Query fetches the reputation of email
func (c *EmailRepClient) Query(ctx context.Context, email string) (*ProviderResult, error) {
	if !c.IsConfigured() {
		return nil, notConfigured(c.Name())
	}

	reqURL := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Key", c.apiKey)
	req.Header.Set("User-Agent", "lookupx")

	var data EmailRepResponse
	raw, err := doJSON(c.httpClient, req, c.Name(), &data)
	if err != nil {
		return nil, err
	}

	score, factors := normalizeEmailRep(data)
	return success(c.Name(), score, factors, raw), nil
}

// normalizeEmailRep turns reputation (trust) into risk
func normalizeEmailRep(data EmailRepResponse) (int, []string) {
	score := 100 - emailRepReputation[strings.ToLower(data.Reputation)]

	factors := []string{}
	if data.Suspicious {
		factors = append(factors, "Marked as suspicious")
	}
	if data.Details.CredentialsLeaked {
		factors = append(factors, "Credentials leaked")
	}
	if data.Details.DataBreach {
		factors = append(factors, "Found in data breach")
	}
	if data.Details.MaliciousActivity {
		factors = append(factors, "Malicious activity detected")
	}
	if data.Details.Spam {
		factors = append(factors, "Associated with spam")
	}
	if data.Details.Disposable {
		factors = append(factors, "Disposable email address")
	}
	if d := data.Details.DaysSinceDomainCreation; d != nil && *d < 30 {
		factors = append(factors, "New domain (< 30 days)")
	}
	return score, factors
}

// Name returns the provider name
func (c *EmailRepClient) Name() string { return "emailrep" }

// Type returns the identifier type served
func (c *EmailRepClient) Type() entity.IdentifierType { return entity.IdentifierEmail }

// IsConfigured returns true if the client has an API key
func (c *EmailRepClient) IsConfigured() bool { return c.apiKey != "" }

// Description returns a short description
func (c *EmailRepClient) Description() string { return "Email reputation, breaches & malicious activity" }
