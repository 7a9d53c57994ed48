package validator

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestValidate_ShortOutputDowngraded(t *testing.T) {
	got := Validate("done")
	if !got.Downgraded {
		t.Fatalf("expected short output to be downgraded")
	}
}

func TestValidate_IndicatorDowngraded(t *testing.T) {
	output := strings.Repeat("x", MinUsefulOutputLength) + " I couldn't find the requested file anywhere in the repo."
	got := Validate(output)
	if !got.Downgraded {
		t.Fatalf("expected indicator phrase to downgrade a long output")
	}
}

func TestValidate_TypographicQuotesNormalized(t *testing.T) {
	output := strings.Repeat("y", MinUsefulOutputLength) + " I don’t have access to that resource."
	got := Validate(output)
	if !got.Downgraded {
		t.Fatalf("expected typographic-quote variant of an indicator to downgrade")
	}
}

func TestValidate_LongCleanOutputPasses(t *testing.T) {
	output := strings.Repeat("the task finished successfully and produced real output. ", 3)
	got := Validate(output)
	if got.Downgraded {
		t.Fatalf("expected long output with no indicator to pass, got reason %q", got.Reason)
	}
}

// TestValidate_ShortnessAlwaysDowngrades implements spec.md §8 property 6's
// length half: any output whose trimmed length is under
// MinUsefulOutputLength downgrades, regardless of content.
func TestValidate_ShortnessAlwaysDowngrades(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, MinUsefulOutputLength-1).Draw(t, "n")
		output := strings.Repeat("a", n)

		got := Validate(output)
		if !got.Downgraded {
			t.Fatalf("Validate(%q) not downgraded, want downgraded (len %d < %d)",
				output, len(strings.TrimSpace(output)), MinUsefulOutputLength)
		}
	})
}

// TestValidate_IndicatorAlwaysDowngradesRegardlessOfCase implements spec.md
// §8 property 6's vocabulary half: any sufficiently long output embedding
// one of the closed indicators, in any case, downgrades.
func TestValidate_IndicatorAlwaysDowngradesRegardlessOfCase(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		indicator := rapid.SampledFrom(Indicators).Draw(t, "indicator")
		prefix := rapid.StringMatching(`[a-zA-Z ]{0,200}`).Draw(t, "prefix")
		upper := rapid.Bool().Draw(t, "upper")

		phrase := indicator
		if upper {
			phrase = strings.ToUpper(indicator)
		}
		output := prefix + " " + phrase + " " + strings.Repeat("z", MinUsefulOutputLength)

		got := Validate(output)
		if !got.Downgraded {
			t.Fatalf("Validate(%q) not downgraded, want downgraded (contains indicator %q)", output, indicator)
		}
	})
}
