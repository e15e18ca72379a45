package identifier

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
	"regexp"
	"strings"

	"github.com/kr1s57/lookupx/internal/entity"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

	// Characters a user may type inside a phone number
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// Classify returns the identifier type of raw.
// Checks run in a fixed order: IP literal, email, E.164-like phone.
func Classify(raw string) entity.IdentifierType {
	s := strings.TrimSpace(raw)
	if s == "" {
		return entity.IdentifierUnknown
	}
	if isIPLiteral(s) {
		return entity.IdentifierIP
	}
	if emailPattern.MatchString(s) {
		return entity.IdentifierEmail
	}
	if phonePattern.MatchString(phoneSeparators.Replace(s)) {
		return entity.IdentifierPhone
	}
	return entity.IdentifierUnknown
}

func isIPLiteral(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	// Zoned addresses (fe80::1%eth0) are local and meaningless to reputation feeds
	return addr.Zone() == ""
}

// Normalize returns the canonical form of raw for the given type.
// Two inputs that differ only in formatting normalize to the same string.
func Normalize(raw string, t entity.IdentifierType) string {
	s := strings.TrimSpace(raw)
	switch t {
	case entity.IdentifierIP:
		if addr, err := netip.ParseAddr(s); err == nil {
			return addr.Unmap().String()
		}
		return strings.ToLower(s)
	case entity.IdentifierEmail:
		return strings.ToLower(s)
	case entity.IdentifierPhone:
		return phoneSeparators.Replace(s)
	default:
		return s
	}
}

// Parse classifies and normalizes raw in one step.
// An override type replaces classification when it is a lookup type.
func Parse(raw string, override entity.IdentifierType) entity.Identifier {
	t := override
	if !t.IsValid() {
		t = Classify(raw)
	}
	return entity.Identifier{
		Raw:   raw,
		Value: Normalize(raw, t),
		Type:  t,
	}
}

// CacheKey derives the cache slot for an identifier from its normalized value
func CacheKey(id entity.Identifier) string {
	sum := sha256.Sum256([]byte(id.Value))
	return "lookup:" + string(id.Type) + ":" + hex.EncodeToString(sum[:])
}

// Domain returns the part after '@' of a normalized email, or "".
func Domain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
