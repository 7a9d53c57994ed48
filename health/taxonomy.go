// Package health classifies adapter error strings into the error taxonomy
// of spec.md §4.2 and drives ProviderStatus mutations in response.
package health

import (
	"regexp"
	"strings"
)

// Class is the outcome of classifying an adapter error string.
type Class int

const (
	// ClassNone means no error occurred.
	ClassNone Class = iota
	// ClassQuota marks the provider exhausted for a cooldown.
	ClassQuota
	// ClassTransient advances to the next provider in the chain.
	ClassTransient
	// ClassAuth (401/403) advances to the next provider in the chain.
	ClassAuth
	// ClassBadRequest (400) aborts the whole chain.
	ClassBadRequest
	// ClassOther advances to the next provider in the chain.
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassQuota:
		return "quota"
	case ClassTransient:
		return "transient"
	case ClassAuth:
		return "auth"
	case ClassBadRequest:
		return "bad_request"
	case ClassOther:
		return "other"
	default:
		return "none"
	}
}

// quotaPatterns is the versioned, closed vocabulary for the Quota class.
// Kept as a single source of truth per spec.md §9 ("treat the vocabularies
// ... as versioned data ... not scattered in provider code").
var quotaPatterns = []string{
	"credit balance too low",
	"insufficient_quota",
	"quota exceeded",
	"billing hard limit",
	"exceeded your current quota",
	"out of credits",
	"subscription expired",
	"api key expired",
	"exceeded monthly limit",
}

// transientPatterns is the closed vocabulary for the Transient class.
var transientPatterns = []string{
	"timeout",
	"connection reset",
	"network error",
	"temporarily unavailable",
	"service overloaded",
	"internal server error",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
}

// authStatusPattern matches a 401 or 403 HTTP status substring, as placed
// by adapters into the error message (see spec.md §4.3: "surfaced as an
// error whose message includes the numeric status").
var authStatusPattern = regexp.MustCompile(`\b(401|403)\b`)

// badRequestStatusPattern matches a 400 HTTP status substring.
var badRequestStatusPattern = regexp.MustCompile(`\b400\b`)

// Classify case-insensitively substring-matches err against the closed
// vocabularies, per spec.md §4.2's table, in the table's own precedence
// order (quota, then transient, then auth, then bad-request, else other).
func Classify(errMsg string) Class {
	if errMsg == "" {
		return ClassNone
	}
	lower := strings.ToLower(errMsg)
	for _, p := range quotaPatterns {
		if strings.Contains(lower, p) {
			return ClassQuota
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(lower, p) {
			return ClassTransient
		}
	}
	if authStatusPattern.MatchString(errMsg) {
		return ClassAuth
	}
	if badRequestStatusPattern.MatchString(errMsg) {
		return ClassBadRequest
	}
	return ClassOther
}
