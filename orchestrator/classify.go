package orchestrator

import (
	"regexp"
	"strings"
)

var titleTagPattern = regexp.MustCompile(`\[([a-z-]+)\]`)

var titleTagToType = map[string]TaskType{
	"implement": TaskCode, "bugfix": TaskCode, "cc": TaskCode, "code": TaskCode,
	"fix": TaskCode, "refactor": TaskCode, "debug": TaskCode,
	"research": TaskText, "analyze": TaskText, "write": TaskText,
	"summarize": TaskText, "explain": TaskText,
	"video": TaskVideo, "render": TaskVideo, "animate": TaskVideo,
	"image": TaskImage, "picture": TaskImage, "illustration": TaskImage, "generate-image": TaskImage,
	"audio": TaskAudio, "speech": TaskAudio, "tts": TaskAudio, "voice": TaskAudio, "synthesize": TaskAudio,
}

var codeVerbPattern = regexp.MustCompile(`\b(implement|fix|refactor|debug|patch|deploy|build|compile|test)\b`)

var hintToType = map[string]TaskType{
	"code-execution":     TaskCode,
	"text-generation":    TaskText,
	"video-render":       TaskVideo,
	"image-generation":   TaskImage,
	"audio-generation":   TaskAudio,
	"shipping-research":  TaskShippingResearch,
}

// Classify implements spec.md §4.10 step 2's strict precedence order: strong
// context signals, then bracketed title tags, then a content keyword scan,
// then caller hints, defaulting to text.
func Classify(params PrimeWorkflowParams) TaskType {
	if params.Context.Repo != "" {
		return TaskCode
	}
	if params.Context.Timeline != "" {
		return TaskVideo
	}
	if params.Context.Product != "" {
		return TaskShippingResearch
	}

	if m := titleTagPattern.FindAllStringSubmatch(strings.ToLower(params.Title), -1); m != nil {
		for _, match := range m {
			if t, ok := titleTagToType[match[1]]; ok {
				return t
			}
		}
	}

	content := strings.ToLower(params.Title + " " + params.Description)
	if codeVerbPattern.MatchString(content) {
		return TaskCode
	}

	if t, ok := hintToType[strings.ToLower(params.Hints.Workflow)]; ok {
		return t
	}

	return TaskText
}
