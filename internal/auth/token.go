package auth

import (
	"regexp"
	"strings"
)

// TokenPrefix is the fixed literal every bearer secret starts with
// (spec §4.8: "hea_<32 hex>").
const TokenPrefix = "hea_"

// PrefixLookupChars is how many hex characters after TokenPrefix are
// used as the cheap lookup identifier before the expensive Argon2
// verification runs (spec §4.8: "looks up candidate ApiKeys by a
// cheap prefix/identifier").
const PrefixLookupChars = 8

var tokenPattern = regexp.MustCompile(`^hea_[0-9a-f]{32}$`)

// ParseBearer extracts the raw secret from an Authorization header
// value of the form "Bearer hea_<32 hex>". Returns false for any
// other shape, including a missing or malformed token.
func ParseBearer(header string) (secret string, ok bool) {
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	if !tokenPattern.MatchString(token) {
		return "", false
	}
	return token, true
}

// LookupPrefix returns the identifier slice of a validated token used
// to narrow the ApiKey candidate set before hash verification.
func LookupPrefix(secret string) string {
	body := strings.TrimPrefix(secret, TokenPrefix)
	if len(body) < PrefixLookupChars {
		return body
	}
	return body[:PrefixLookupChars]
}

// StripBearerPrefix strips the "Bearer " scheme without validating the
// token shape, for callers (the admin JWT gate) whose token isn't a
// hea_ secret.
func StripBearerPrefix(header string) string {
	const bearerPrefix = "Bearer "
	return strings.TrimPrefix(header, bearerPrefix)
}
