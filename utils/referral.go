package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// affiliate code shape: {PREFIX}{4 digits}, e.g. BUDI4821. The prefix is
// derived deterministically from the holder's name (falling back to the email
// local part) so codes stay recognizable; the numeric suffix disambiguates.
const (
	affiliatePrefixLen = 4
	affiliateSuffixMax = 10000
)

// AffiliateCodePrefix derives the deterministic part of an affiliate code
// from a name, falling back to the email local part when the name yields no
// usable characters.
func AffiliateCodePrefix(name, email string) string {
	prefix := sanitizeCodeSource(name)
	if prefix == "" {
		local := email
		if idx := strings.Index(email, "@"); idx > 0 {
			local = email[:idx]
		}
		prefix = sanitizeCodeSource(local)
	}
	if prefix == "" {
		prefix = "AGEN"
	}
	if len(prefix) > affiliatePrefixLen {
		prefix = prefix[:affiliatePrefixLen]
	}
	for len(prefix) < affiliatePrefixLen {
		prefix += "X"
	}
	return prefix
}

// GenerateAffiliateCode returns a new candidate affiliate code. Uniqueness is
// enforced by the store's unique index; callers retry once on collision with
// a fresh suffix.
func GenerateAffiliateCode(name, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(affiliateSuffixMax))
	if err != nil {
		return "", err
	}
	suffix := n.Int64()

	code := AffiliateCodePrefix(name, email)
	digits := []byte{
		byte('0' + suffix/1000%10),
		byte('0' + suffix/100%10),
		byte('0' + suffix/10%10),
		byte('0' + suffix%10),
	}
	return code + string(digits), nil
}

func sanitizeCodeSource(s string) string {
	s = strings.ToUpper(s)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, s)
}
