// Package validator implements the defense-in-depth Failure-Indicator
// Validator of spec.md §4.11 step 5 and §8 property 6: normalizes an
// output's quoting, case-folds it, and searches for a closed vocabulary of
// "couldn't find" / "unable to" / "not found" style phrases. A match, or an
// output shorter than the minimum useful length, downgrades a reported
// success to failure.
package validator

import "strings"

// MinUsefulOutputLength is spec.md §4.11's minimum trimmed-character
// threshold; shorter successful outputs are downgraded.
const MinUsefulOutputLength = 100

// Indicators is the closed, versioned vocabulary consolidated from the
// GLOSSARY's documented superset (spec.md §9 Open Questions: "the source's
// failure-indicator vocabulary is duplicated in several modules with
// slight divergences; the specification defines the superset").
var Indicators = []string{
	"couldn't find",
	"could not find",
	"not found",
	"unable to",
	"does not exist",
	"doesn't exist",
	"file not found",
	"nothing to commit",
	"requires setup",
	"placeholder",
	"stub",
	"todo:",
	"reference doesn't have a corresponding file",
	"no such file",
	"cannot locate",
	"i don't have access",
	"i do not have access",
}

var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", // single typographic quotes
	"“", "\"", "”", "\"", // double typographic quotes
)

// normalizeQuotes replaces typographic single/double quotes with their
// ASCII equivalents, per spec.md §4.11 step 5(a).
func normalizeQuotes(s string) string {
	return quoteReplacer.Replace(s)
}

// Result is the validator's verdict.
type Result struct {
	Downgraded bool
	Reason     string
}

// Validate implements spec.md §4.11 step 5 and §8 property 6: the output
// fails validation iff some indicator is a substring of
// lowercase(normalizeQuotes(output)), OR the trimmed output is shorter than
// MinUsefulOutputLength.
func Validate(output string) Result {
	trimmed := strings.TrimSpace(output)
	if len(trimmed) < MinUsefulOutputLength {
		return Result{Downgraded: true, Reason: trimmed}
	}
	normalized := strings.ToLower(normalizeQuotes(output))
	for _, indicator := range Indicators {
		if strings.Contains(normalized, indicator) {
			return Result{Downgraded: true, Reason: "Response indicates task was not completed"}
		}
	}
	return Result{Downgraded: false}
}
