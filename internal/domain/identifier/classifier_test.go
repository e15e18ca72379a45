package identifier

import (
	"strings"
	"testing"

	"github.com/kr1s57/lookupx/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  entity.IdentifierType
	}{
		{"ipv4", "8.8.8.8", entity.IdentifierIP},
		{"ipv4 with spaces", "  192.168.1.1 ", entity.IdentifierIP},
		{"ipv6 full", "2001:0db8:85a3:0000:0000:8a2e:0370:7334", entity.IdentifierIP},
		{"ipv6 compressed", "2001:db8::1", entity.IdentifierIP},
		{"ipv6 zoned", "fe80::1%eth0", entity.IdentifierUnknown},
		{"email", "temp123@mailinator.com", entity.IdentifierEmail},
		{"email uppercase", "John.Doe@Example.COM", entity.IdentifierEmail},
		{"email without tld", "user@localhost", entity.IdentifierUnknown},
		{"e164 phone", "+14155552671", entity.IdentifierPhone},
		{"formatted phone", "+1 (415) 555-2671", entity.IdentifierPhone},
		{"national phone", "4155552671", entity.IdentifierPhone},
		{"phone leading zero", "0123456789", entity.IdentifierUnknown},
		{"phone too long", "+1234567890123456", entity.IdentifierUnknown},
		{"invalid octets", "999.999.999.999", entity.IdentifierUnknown},
		{"garbage", "not-an-identifier!!", entity.IdentifierUnknown},
		{"empty", "", entity.IdentifierUnknown},
		{"blank", "   ", entity.IdentifierUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	inputs := []string{"8.8.8.8", "a@b.co", "+33 6 12 34 56 78", "not-an-identifier!!", "::1"}
	for _, in := range inputs {
		first := Classify(in)
		for i := 0; i < 50; i++ {
			assert.Equal(t, first, Classify(in), "input %q", in)
		}
	}
}

func TestClassify_OrderPrefersIPOverPhone(t *testing.T) {
	// "::1" would never be a phone, but a bare number must not become an IP
	assert.Equal(t, entity.IdentifierIP, Classify("::1"))
	assert.Equal(t, entity.IdentifierPhone, Classify("12345"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "+14155552671", Normalize("+1 (415) 555-2671", entity.IdentifierPhone))
	assert.Equal(t, "john.doe@example.com", Normalize(" John.Doe@Example.COM ", entity.IdentifierEmail))
	assert.Equal(t, "2001:db8::1", Normalize("2001:0DB8:0000:0000:0000:0000:0000:0001", entity.IdentifierIP))
	assert.Equal(t, "1.2.3.4", Normalize("::ffff:1.2.3.4", entity.IdentifierIP))
}

func TestParse_Override(t *testing.T) {
	id := Parse("+1 415-555-2671", "")
	assert.Equal(t, entity.IdentifierPhone, id.Type)
	assert.Equal(t, "+14155552671", id.Value)
	assert.Equal(t, "+1 415-555-2671", id.Raw)

	id = Parse("12345", entity.IdentifierPhone)
	assert.Equal(t, entity.IdentifierPhone, id.Type)

	id = Parse("8.8.8.8", "bogus")
	assert.Equal(t, entity.IdentifierIP, id.Type)
}

func TestCacheKey(t *testing.T) {
	a := Parse("+1 (415) 555-2671", "")
	b := Parse("+1-415-555-2671", "")
	assert.Equal(t, CacheKey(a), CacheKey(b))

	key := CacheKey(a)
	assert.True(t, strings.HasPrefix(key, "lookup:phone:"))
	assert.NotContains(t, key, "4155552671")
	assert.Len(t, strings.TrimPrefix(key, "lookup:phone:"), 64)

	email := Parse("USER@example.com", "")
	assert.Equal(t, CacheKey(email), CacheKey(Parse("user@example.com", "")))

	// Same value under another type lands in another slot
	assert.NotEqual(t, CacheKey(entity.Identifier{Value: "x", Type: entity.IdentifierIP}),
		CacheKey(entity.Identifier{Value: "x", Type: entity.IdentifierEmail}))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "mailinator.com", Domain("temp123@mailinator.com"))
	assert.Equal(t, "", Domain("nobody"))
	assert.Equal(t, "", Domain("trailing@"))
}
