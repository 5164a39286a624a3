// Package phone turns visitor-typed numbers into the E.164 form leads are
// matched on.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Local numbers without a country code are read as Israeli.
const defaultRegion = "IL"

// NormalizeE164 returns the E.164 form of input. Input that does not parse
// to a valid number comes back trimmed, so callers can still match on it.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
