// Package phone converts free-form North American phone input into the
// canonical "+1XXXXXXXXXX" storage format and back into "(XXX) XXX-XXXX".
package phone

import "strings"

const (
	CountryPrefix = "+1"
	NationalLen   = 10
)

// Digits strips everything but digits. An 11-digit number with a leading
// country code of 1 loses the 1; otherwise at most the first 10 digits are kept.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == NationalLen+1 && digits[0] == '1' {
		return digits[1:]
	}
	if len(digits) > NationalLen {
		return digits[:NationalLen]
	}
	return digits
}

// Normalize returns the canonical form and whether the number is complete.
// Incomplete input yields "+1" followed by whatever digits were found.
func Normalize(raw string) (string, bool) {
	digits := Digits(raw)
	if digits == "" {
		return "", false
	}
	return CountryPrefix + digits, len(digits) == NationalLen
}

// Canonical is Normalize for callers that only accept complete numbers.
func Canonical(raw string) string {
	canonical, ok := Normalize(raw)
	if !ok {
		return ""
	}
	return canonical
}

// Display renders canonical or partial input progressively:
// "(555", "(555) 123", "(555) 123-4567".
func Display(value string) string {
	digits := Digits(strings.TrimPrefix(value, CountryPrefix))
	switch {
	case len(digits) == 0:
		return ""
	case len(digits) <= 3:
		return "(" + digits
	case len(digits) <= 6:
		return "(" + digits[:3] + ") " + digits[3:]
	default:
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
	}
}

// Mask hides everything but the last four digits.
func Mask(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 4 {
		return "***"
	}
	return "***-***-" + digits[len(digits)-4:]
}
