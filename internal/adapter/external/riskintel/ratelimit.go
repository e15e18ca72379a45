package riskintel

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Interval names accepted in rate policies
const (
	IntervalMinute = "minute"
	IntervalHour   = "hour"
	IntervalDay    = "day"
	IntervalMonth  = "month"
)

// RatePolicy is the outbound call budget of a provider.
// A zero TokensPerInterval means unlimited.
type RatePolicy struct {
	TokensPerInterval int
	Interval          string
}

// Unlimited is the policy of local rules that make no outbound calls
var Unlimited = RatePolicy{}

// PerDay returns a policy of n calls per day
func PerDay(n int) RatePolicy { return RatePolicy{TokensPerInterval: n, Interval: IntervalDay} }

// PerMonth returns a policy of n calls per month
func PerMonth(n int) RatePolicy { return RatePolicy{TokensPerInterval: n, Interval: IntervalMonth} }

// PerMinute returns a policy of n calls per minute
func PerMinute(n int) RatePolicy { return RatePolicy{TokensPerInterval: n, Interval: IntervalMinute} }

// Duration returns the length of the policy interval
func (p RatePolicy) Duration() (time.Duration, error) {
	switch strings.ToLower(p.Interval) {
	case IntervalMinute:
		return time.Minute, nil
	case IntervalHour:
		return time.Hour, nil
	case IntervalDay, "":
		return 24 * time.Hour, nil
	case IntervalMonth:
		return 30 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown rate interval %q", p.Interval)
	}
}

func (p RatePolicy) String() string {
	if p.TokensPerInterval <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d/%s", p.TokensPerInterval, p.Interval)
}

// RateLimiter is a non-blocking token bucket for one provider.
// The bucket starts full and refills continuously at the nominal rate.
type RateLimiter struct {
	limiter   *rate.Limiter
	unlimited bool
}

// NewRateLimiter creates the bucket for policy
func NewRateLimiter(policy RatePolicy) (*RateLimiter, error) {
	if policy.TokensPerInterval <= 0 {
		return &RateLimiter{unlimited: true}, nil
	}

	interval, err := policy.Duration()
	if err != nil {
		return nil, err
	}

	every := rate.Every(interval / time.Duration(policy.TokensPerInterval))
	return &RateLimiter{
		limiter: rate.NewLimiter(every, policy.TokensPerInterval),
	}, nil
}

// newDisabledLimiter returns a bucket with zero capacity
func newDisabledLimiter() *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(0, 0),
	}
}

// TryAcquire takes one token if available. It never blocks.
func (l *RateLimiter) TryAcquire() bool {
	if l.unlimited {
		return true
	}
	return l.limiter.Allow()
}

// Remaining returns the tokens currently available, or -1 when unlimited
func (l *RateLimiter) Remaining() float64 {
	if l.unlimited {
		return -1
	}
	tokens := l.limiter.Tokens()
	if tokens < 0 {
		return 0
	}
	return tokens
}
