// Package pattern derives canonical lookup keys from free-text merchant and
// description strings.
//
// Every producer and consumer of mapping keys has to use this package. If
// two call sites normalize differently, learned mappings silently stop
// matching.
package pattern

import (
	"regexp"
	"strings"
)

var (
	invalidChars = regexp.MustCompile(`[^A-Z0-9\s]+`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Normalize converts free text into a canonical pattern key: uppercased,
// reduced to A-Z, 0-9 and single spaces, trimmed.
//
// It is total and idempotent. Input without any pattern characters yields
// the empty string.
func Normalize(s string) string {
	s = strings.ToUpper(s)
	s = invalidChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// Derive returns the lookup pattern for a transaction, preferring the
// merchant over the description. The empty string means no valid pattern
// key can be derived.
func Derive(merchant, description string) string {
	if p := Normalize(merchant); p != "" {
		return p
	}

	return Normalize(description)
}
