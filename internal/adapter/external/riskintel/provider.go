package riskintel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kr1s57/lookupx/internal/entity"
)

// DefaultTimeout bounds every provider query
const DefaultTimeout = 5 * time.Second

// maxBodySize caps how much of a provider response is read
const maxBodySize = 1 << 20

// ErrNotConfigured is returned by providers that have no credential
var ErrNotConfigured = errors.New("API key not configured")

// Provider is one external reputation or validation source.
// Query returns the provider's answer already normalized to a 0-100 score.
type Provider interface {
	Name() string
	Type() entity.IdentifierType
	IsConfigured() bool
	Query(ctx context.Context, identifier string) (*ProviderResult, error)
}

// Describer is implemented by providers that document themselves
type Describer interface {
	Description() string
}

// KeylessProvider marks providers that need no credential.
// They report "Active" instead of "Configured" in health checks.
type KeylessProvider interface {
	Keyless() bool
}

// ProviderResult is the outcome of one query attempt
type ProviderResult struct {
	Provider string          `json:"provider"`
	Success  bool            `json:"success"`
	Score    int             `json:"score"` // meaningful only when Success
	Factors  []string        `json:"factors"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	Err      error           `json:"-"`
}

// ErrorKind classifies provider failures
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindStatus     ErrorKind = "status"
	KindMalformed  ErrorKind = "malformed"
	KindCredential ErrorKind = "credential"
	KindTransport  ErrorKind = "transport"
	KindPanic      ErrorKind = "panic"
)

// ProviderError describes why a provider could not contribute
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or "" when err is not a provider error
func KindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, ErrNotConfigured) {
		return KindCredential
	}
	return ""
}

func malformed(provider string, format string, args ...any) error {
	return &ProviderError{Provider: provider, Kind: KindMalformed, Err: fmt.Errorf(format, args...)}
}

func notConfigured(provider string) error {
	return &ProviderError{Provider: provider, Kind: KindCredential, Err: ErrNotConfigured}
}

// doJSON executes req, checks the status and decodes the body into out.
// It returns the compacted body so it can be kept as the raw payload.
func doJSON(client *http.Client, req *http.Request, provider string, out any) (json.RawMessage, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classifyTransportError(provider, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ProviderError{Provider: provider, Kind: KindStatus, StatusCode: resp.StatusCode,
			Err: errors.New("rate limit exceeded")}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{Provider: provider, Kind: KindStatus, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("API error: %s", http.StatusText(resp.StatusCode))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, &ProviderError{Provider: provider, Kind: KindMalformed, Err: fmt.Errorf("decode response: %w", err)}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return nil, &ProviderError{Provider: provider, Kind: KindMalformed, Err: fmt.Errorf("compact response: %w", err)}
	}
	return compact.Bytes(), nil
}

func classifyTransportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Provider: provider, Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProviderError{Provider: provider, Kind: KindTimeout, Err: err}
	}
	return &ProviderError{Provider: provider, Kind: KindTransport, Err: err}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// success builds a successful result, keeping factors non-nil
func success(provider string, score int, factors []string, raw json.RawMessage) *ProviderResult {
	if factors == nil {
		factors = []string{}
	}
	return &ProviderResult{
		Provider: provider,
		Success:  true,
		Score:    score,
		Factors:  factors,
		Raw:      raw,
	}
}
