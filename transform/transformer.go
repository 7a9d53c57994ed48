// Package transform implements the per-provider Prompt Transformer of
// spec.md §4.4: prompt rewriting and system-prompt injection keyed by
// (worker, provider, model, task_type, capabilities_needed). Grounded on
// the teacher's llm/middleware.RewriterChain pattern, reshaped into a
// single dispatch table instead of a chained pipeline since each
// transformer here targets a disjoint provider set.
package transform

import (
	"regexp"
	"strings"

	"github.com/novaroute/router/types"
)

// Request is the transformer's input: the worker/provider/model context
// plus the task and capability hints the Selector/Router already resolved.
type Request struct {
	Worker               string
	Provider             string
	Model                string
	TaskType             string
	RequiredCapabilities []string
}

// Transform rewrites prompt and/or supplies a missing system prompt. It is
// idempotent: if nothing needs to change it returns the inputs unchanged.
// System prompts are injected only when the caller did not already supply
// one (options.SystemPrompt == "").
type Transform func(prompt string, options types.MediaOptions, req Request) (string, types.MediaOptions)

// reasoningProviders get a <task> scaffold plus an explicit chain-of-
// thought instruction when reasoning/analysis capability is requested.
var reasoningProviders = map[string]struct{}{
	"anthropic": {},
}

// ttsProviders get markdown/code stripped from the prompt before synthesis.
var ttsProviders = map[string]struct{}{
	"elevenlabs": {},
}

// imageProviders get quality boosters appended if not already present.
var imageProviders = map[string]struct{}{
	"ideogram":  {},
	"replicate": {},
}

var qualityBoosters = []string{"high quality, detailed", "professional lighting"}

// Apply is the transformer dispatch entry point used by the Simple Router.
func Apply(prompt string, options types.MediaOptions, req Request) (string, types.MediaOptions) {
	if _, ok := reasoningProviders[req.Provider]; ok {
		prompt, options = applyReasoningScaffold(prompt, options, req)
	}
	if _, ok := ttsProviders[req.Provider]; ok && req.Worker == "audio-gen" {
		prompt = stripMarkdown(prompt)
	}
	if _, ok := imageProviders[req.Provider]; ok && req.Worker == "image-gen" {
		prompt = appendQualityBoosters(prompt)
	}
	return prompt, options
}

func hasCapability(caps []string, want string) bool {
	for _, c := range caps {
		if c == want {
			return true
		}
	}
	return false
}

func applyReasoningScaffold(prompt string, options types.MediaOptions, req Request) (string, types.MediaOptions) {
	if !strings.HasPrefix(strings.TrimSpace(prompt), "<task>") {
		prompt = "<task>\n" + prompt + "\n</task>"
	}
	if hasCapability(req.RequiredCapabilities, "reasoning") || hasCapability(req.RequiredCapabilities, "analysis") {
		cot := "Think step by step before producing your final answer."
		if !strings.Contains(prompt, cot) {
			prompt += "\n" + cot
		}
	}
	return prompt, options
}

func appendQualityBoosters(prompt string) string {
	lower := strings.ToLower(prompt)
	missing := make([]string, 0, len(qualityBoosters))
	for _, b := range qualityBoosters {
		if !strings.Contains(lower, strings.ToLower(b)) {
			missing = append(missing, b)
		}
	}
	if len(missing) == 0 {
		return prompt
	}
	return prompt + ", " + strings.Join(missing, ", ")
}

var (
	fencedCodeBlockPattern = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern      = regexp.MustCompile("`[^`]*`")
	markdownLinkPattern    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingPattern         = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	boldItalicPattern      = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`)
	excessNewlinesPattern  = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes fenced code blocks, inline code, link syntax, and
// residual markdown formatting, collapsing 3+ newlines to 2 — per
// spec.md §4.4's TTS provider contract.
func stripMarkdown(prompt string) string {
	out := fencedCodeBlockPattern.ReplaceAllString(prompt, "")
	out = inlineCodePattern.ReplaceAllString(out, "")
	out = markdownLinkPattern.ReplaceAllString(out, "$1")
	out = headingPattern.ReplaceAllString(out, "")
	out = boldItalicPattern.ReplaceAllString(out, "$1")
	out = excessNewlinesPattern.ReplaceAllString(out, "\n\n")
	return out
}
