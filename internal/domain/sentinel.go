package domain

import "strings"

// Sentinel is a known output substring that identifies a user-actionable
// failure. Matching is case-insensitive.
type Sentinel struct {
	Kind    ErrorKind
	Match   []string
	Message string
}

// Sentinels lists the recognized failure markers, checked in order.
var Sentinels = []Sentinel{
	{
		Kind:    ErrorTokenExpired,
		Match:   []string{"token expired", "token is expired", "password token"},
		Message: "Apple ID session expired, sign in again",
	},
	{
		Kind:    ErrorLicenseRequired,
		Match:   []string{"license required", "license is required"},
		Message: "a license is required, purchase the app first",
	},
}

// MatchSentinel returns the first sentinel found in text.
func MatchSentinel(text string) (Sentinel, bool) {
	lower := strings.ToLower(text)
	for _, s := range Sentinels {
		for _, m := range s.Match {
			if strings.Contains(lower, m) {
				return s, true
			}
		}
	}
	return Sentinel{}, false
}
