package entity

import (
	"encoding/json"
	"time"
)

// IdentifierType is the classified kind of a looked-up identifier
type IdentifierType string

const (
	IdentifierIP      IdentifierType = "ip"
	IdentifierEmail   IdentifierType = "email"
	IdentifierPhone   IdentifierType = "phone"
	IdentifierUnknown IdentifierType = "unknown"
)

// IsValid reports whether the type can be looked up
func (t IdentifierType) IsValid() bool {
	switch t {
	case IdentifierIP, IdentifierEmail, IdentifierPhone:
		return true
	}
	return false
}

// Identifier is a raw identifier plus its classification.
// Value holds the normalized form used for provider queries and cache keys.
type Identifier struct {
	Raw   string         `json:"raw"`
	Value string         `json:"value"`
	Type  IdentifierType `json:"type"`
}

// RiskLevel is the coarse bucket derived from a risk score
type RiskLevel string

const (
	RiskMinimal RiskLevel = "MINIMAL"
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
)

// Action is the advice given to the caller
type Action string

const (
	ActionAllow   Action = "ALLOW"
	ActionMonitor Action = "MONITOR"
	ActionReview  Action = "REVIEW"
	ActionBlock   Action = "BLOCK"
)

// Recommendation tells the caller what to do with the identifier
type Recommendation struct {
	Action         Action `json:"action"`
	Message        string `json:"message"`
	RequiresReview bool   `json:"requiresReview"`
}

// NoDataFactor is the only factor of a lookup where no provider answered
const NoDataFactor = "No data available from API sources"

// AggregateResult is the outcome of one lookup.
// It is immutable once produced; cache hits return a copy with Cached set.
type AggregateResult struct {
	Identifier       string                     `json:"identifier"`
	Type             IdentifierType             `json:"type"`
	RiskScore        int                        `json:"riskScore"`
	RiskLevel        RiskLevel                  `json:"riskLevel"`
	Factors          []string                   `json:"factors"`
	Sources          []string                   `json:"sources"`
	Errors           []string                   `json:"errors"`
	Recommendation   Recommendation             `json:"recommendation"`
	Details          map[string]json.RawMessage `json:"details,omitempty"`
	Cached           bool                       `json:"cached"`
	ProcessingTimeMs int64                      `json:"processingTimeMs"`
	Timestamp        time.Time                  `json:"timestamp"`
}

// Clone returns a deep copy so callers can flip Cached/ProcessingTimeMs
// without touching a stored value.
func (r *AggregateResult) Clone() *AggregateResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Factors = append([]string(nil), r.Factors...)
	c.Sources = append([]string(nil), r.Sources...)
	c.Errors = append([]string(nil), r.Errors...)
	if c.Factors == nil {
		c.Factors = []string{}
	}
	if c.Sources == nil {
		c.Sources = []string{}
	}
	if c.Errors == nil {
		c.Errors = []string{}
	}
	if r.Details != nil {
		c.Details = make(map[string]json.RawMessage, len(r.Details))
		for k, v := range r.Details {
			c.Details[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// ProviderStatus describes one provider for health and usage endpoints
type ProviderStatus struct {
	Name            string         `json:"name"`
	Type            IdentifierType `json:"type"`
	Weight          float64        `json:"weight"`
	Configured      bool           `json:"configured"`
	RequiresKey     bool           `json:"requiresKey"`
	TokensRemaining float64        `json:"tokensRemaining"`
	TokensPerPeriod int            `json:"tokensPerInterval"`
	Interval        string         `json:"interval"`
	Description     string         `json:"description"`
}
