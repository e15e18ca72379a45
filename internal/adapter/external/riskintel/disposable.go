package riskintel

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kr1s57/lookupx/internal/domain/identifier"
	"github.com/kr1s57/lookupx/internal/entity"
)

// DisposableScore is the risk of an address on a throwaway domain
const DisposableScore = 65

// defaultDisposableDomains are well-known temporary mailbox services
var defaultDisposableDomains = []string{
	"mailinator.com",
	"guerrillamail.com",
	"guerrillamail.net",
	"sharklasers.com",
	"temp-mail.org",
	"tempmail.com",
	"10minutemail.com",
	"yopmail.com",
	"trashmail.com",
	"getnada.com",
	"dispostable.com",
	"maildrop.cc",
	"throwawaymail.com",
	"fakeinbox.com",
	"mohmal.com",
}

// DisposableDomainRule flags email addresses on disposable domains.
// It is a local rule: no network, no credential, no rate limit.
type DisposableDomainRule struct {
	domains map[string]struct{}
}

// NewDisposableDomainRule builds the rule from the default list plus extra
func NewDisposableDomainRule(extra []string) *DisposableDomainRule {
	r := &DisposableDomainRule{domains: make(map[string]struct{})}
	for _, d := range defaultDisposableDomains {
		r.domains[d] = struct{}{}
	}
	for _, d := range extra {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			r.domains[d] = struct{}{}
		}
	}
	return r
}

// disposableVerdict is the raw payload recorded in result details
type disposableVerdict struct {
	Domain     string `json:"domain"`
	Disposable bool   `json:"disposable"`
}

// Query checks the domain of email, including parent domains
func (r *DisposableDomainRule) Query(ctx context.Context, email string) (*ProviderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifyTransportError(r.Name(), err)
	}

	domain := identifier.Domain(strings.ToLower(email))
	if domain == "" {
		return nil, malformed(r.Name(), "no domain in %q", email)
	}

	verdict := disposableVerdict{Domain: domain, Disposable: r.IsDisposable(domain)}
	raw, err := json.Marshal(verdict)
	if err != nil {
		return nil, malformed(r.Name(), "encode verdict: %v", err)
	}

	if !verdict.Disposable {
		return success(r.Name(), 0, nil, raw), nil
	}
	return success(r.Name(), DisposableScore, []string{"Temporary email service (disposable domain)"}, raw), nil
}

// IsDisposable reports whether domain or one of its parents is listed
func (r *DisposableDomainRule) IsDisposable(domain string) bool {
	for d := domain; d != ""; {
		if _, ok := r.domains[d]; ok {
			return true
		}
		dot := strings.IndexByte(d, '.')
		if dot < 0 {
			break
		}
		d = d[dot+1:]
	}
	return false
}

// Name returns the provider name
func (r *DisposableDomainRule) Name() string { return "disposable" }

// Type returns the identifier type served
func (r *DisposableDomainRule) Type() entity.IdentifierType { return entity.IdentifierEmail }

// IsConfigured always returns true
func (r *DisposableDomainRule) IsConfigured() bool { return true }

// Keyless marks the rule as credential-free
func (r *DisposableDomainRule) Keyless() bool { return true }

// Description returns a short description
func (r *DisposableDomainRule) Description() string { return "Local disposable/temporary domain list" }
