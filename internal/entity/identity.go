package entity

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultCountryCode    = "91"
	DefaultNationalLength = 10
	DefaultMinDigits      = 7
)

var nonDigit = regexp.MustCompile(`\D`)

// IdentityNormalizer turns a raw contact string into the phone key used as the
// uniqueness axis for leads. It holds no state besides its parameters.
type IdentityNormalizer struct {
	CountryCode    string
	NationalLength int
	MinDigits      int
}

func NewIdentityNormalizer(countryCode string, nationalLength, minDigits int) IdentityNormalizer {
	n := IdentityNormalizer{
		CountryCode:    countryCode,
		NationalLength: nationalLength,
		MinDigits:      minDigits,
	}
	if n.CountryCode == "" {
		n.CountryCode = DefaultCountryCode
	}
	if n.NationalLength <= 0 {
		n.NationalLength = DefaultNationalLength
	}
	if n.MinDigits <= 0 {
		n.MinDigits = DefaultMinDigits
	}
	return n
}

// Normalize returns the canonical key. "+91 98765-43210", "09876543210" and
// "9876543210" all map to "919876543210".
func (n IdentityNormalizer) Normalize(raw string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), `"'`)
	digits := nonDigit.ReplaceAllString(trimmed, "")
	digits = strings.TrimLeft(digits, "0")

	if len(digits) < n.MinDigits {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, raw)
	}

	// Numbers already carrying the country code, and foreign numbers of other
	// lengths, are kept as their digit string.
	if len(digits) == n.NationalLength {
		return n.CountryCode + digits, nil
	}
	return digits, nil
}

var defaultNormalizer = NewIdentityNormalizer(DefaultCountryCode, DefaultNationalLength, DefaultMinDigits)

// NormalizeIdentity uses the default Indian numbering parameters.
func NormalizeIdentity(raw string) (string, error) {
	return defaultNormalizer.Normalize(raw)
}
