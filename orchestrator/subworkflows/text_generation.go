package subworkflows

import "go.uber.org/zap"

// NewTextGeneration builds the default text-task sub-workflow by reusing
// MediaGeneration's validate→generate-with-retries→callback shape against
// the text-gen worker: spec.md §4.11 only calls out code/video/image/audio/
// shipping-research by name, but the default "text" task type (spec.md
// §4.10 step 2) needs a sub-workflow too, and its shape is identical.
func NewTextGeneration(router Router, maxRetries int, logger *zap.Logger) *MediaGeneration {
	return NewMediaGeneration("text-gen", router, maxRetries, logger)
}
