package npi

import (
	"errors"
	"strings"
)

// ErrNoValidNPIs is returned when pasted input contains no 10-digit NPI.
var ErrNoValidNPIs = errors.New("no valid 10-digit NPIs found")

// ParseNPIs extracts the unique 10-digit NPIs from free-form pasted text.
// Commas and any whitespace separate tokens. Tokens that are not exactly ten
// ASCII digits are dropped. The result keeps first-seen order.
func ParseNPIs(text string) []string {
	fields := strings.Fields(strings.ReplaceAll(text, ",", " "))

	seen := make(map[string]struct{}, len(fields))
	var npis []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if !IsValid(f) {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		npis = append(npis, f)
	}
	return npis
}

// ParseNPIsStrict is ParseNPIs but reports ErrNoValidNPIs for an empty result.
func ParseNPIsStrict(text string) ([]string, error) {
	npis := ParseNPIs(text)
	if len(npis) == 0 {
		return nil, ErrNoValidNPIs
	}
	return npis, nil
}

// IsValid reports whether s is exactly ten ASCII digits.
func IsValid(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
