package health

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestClassify_Empty(t *testing.T) {
	if got := Classify(""); got != ClassNone {
		t.Fatalf("Classify(\"\") = %v, want ClassNone", got)
	}
}

func TestClassify_Precedence(t *testing.T) {
	cases := []struct {
		name string
		err  string
		want Class
	}{
		{"quota", "Error: insufficient_quota for this request", ClassQuota},
		{"transient", "upstream gateway timeout occurred", ClassTransient},
		{"auth_401", "request rejected with status 401", ClassAuth},
		{"auth_403", "request rejected with status 403", ClassAuth},
		{"bad_request_400", "request rejected with status 400", ClassBadRequest},
		{"other", "something unexpected happened", ClassOther},
		{"quota_wins_over_transient", "quota exceeded, connection reset", ClassQuota},
		{"case_insensitive", "QUOTA EXCEEDED", ClassQuota},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(c.err); got != c.want {
				t.Fatalf("Classify(%q) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}

// TestClassify_VocabularyAlwaysWins asserts spec.md §4.2's precedence order
// holds for any message built by concatenating one pattern from each
// vocabulary the classifier recognizes: quota is checked first and always
// wins regardless of what other patterns also appear in the string.
func TestClassify_VocabularyAlwaysWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		quota := rapid.SampledFrom(quotaPatterns).Draw(t, "quota")
		transient := rapid.SampledFrom(transientPatterns).Draw(t, "transient")
		noise := rapid.StringMatching(`[a-zA-Z0-9 ]{0,20}`).Draw(t, "noise")

		msg := noise + " " + quota + " " + transient
		if got := Classify(msg); got != ClassQuota {
			t.Fatalf("Classify(%q) = %v, want ClassQuota (quota pattern present)", msg, got)
		}
	})
}

// TestClassify_TransientWithoutQuota checks the second precedence tier in
// isolation: a message containing only a transient pattern (no quota
// vocabulary, no status code) classifies as ClassTransient.
func TestClassify_TransientWithoutQuota(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pattern := rapid.SampledFrom(transientPatterns).Draw(t, "pattern")
		noise := rapid.StringMatching(`[a-zA-Z ]{0,15}`).Draw(t, "noise")
		msg := noise + " " + pattern

		for _, q := range quotaPatterns {
			if strings.Contains(strings.ToLower(msg), q) {
				t.Skip("generated noise accidentally contains a quota pattern")
			}
		}
		if got := Classify(msg); got != ClassTransient {
			t.Fatalf("Classify(%q) = %v, want ClassTransient", msg, got)
		}
	})
}
