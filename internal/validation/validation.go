// Package validation holds the pure input predicates used by the submission
// flow. No side effects, no error values; callers turn false results into
// user-facing messages.
package validation

import (
	"net/url"
	"regexp"
)

const (
	// MinValidityMinutes and MaxValidityMinutes bound an alias's validity
	// period (one minute up to one week).
	MinValidityMinutes = 1
	MaxValidityMinutes = 10080
)

var shortcodeRE = regexp.MustCompile(`^[A-Za-z0-9]{3,10}$`)

// IsValidURL reports whether s parses as an absolute URL with scheme http
// or https. Parse failures are simply false.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// IsValidShortcode reports whether s is 3-10 alphanumeric characters.
func IsValidShortcode(s string) bool {
	return shortcodeRE.MatchString(s)
}

// IsValidValidityPeriod reports whether n is within [1, 10080] minutes.
func IsValidValidityPeriod(n int) bool {
	return n >= MinValidityMinutes && n <= MaxValidityMinutes
}
