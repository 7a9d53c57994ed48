package classifier

// TextOnlyWaterfall is the text-only tier's own short, hardcoded waterfall
// of providers to try, per spec.md §4.7: "The text-only path has its own
// short, hardcoded waterfall of providers to try; failures fall through to
// the standard chain." Kept as data, not logic, so it can be swapped
// without touching Classify.
var TextOnlyWaterfall = []string{"anthropic", "openai"}
