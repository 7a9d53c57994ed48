package subworkflows

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/novaroute/router/orchestrator"
)

// shippingResearchModel is the single external model spec.md §4.11 names
// as supported for this sub-workflow: "call the single supported external
// model with a deterministic prompt".
const shippingResearchModel = "claude-sonnet-4"

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

var validConfidence = map[string]bool{"low": true, "medium": true, "high": true}

// Dimensions is the extracted shipping-research result, per spec.md §4.11:
// "validate numeric fields and a bounded confidence enum".
type Dimensions struct {
	LengthCM   float64 `json:"length_cm"`
	WidthCM    float64 `json:"width_cm"`
	HeightCM   float64 `json:"height_cm"`
	WeightKG   float64 `json:"weight_kg"`
	Confidence string  `json:"confidence"`
}

func (d Dimensions) validate() error {
	if d.LengthCM <= 0 || d.WidthCM <= 0 || d.HeightCM <= 0 || d.WeightKG <= 0 {
		return fmt.Errorf("shipping-research: non-positive dimension field")
	}
	if !validConfidence[strings.ToLower(d.Confidence)] {
		return fmt.Errorf("shipping-research: confidence %q is not one of low/medium/high", d.Confidence)
	}
	return nil
}

// ShippingResearch implements spec.md §4.11's shipping-research pipeline:
// validate product → call the single supported external model with a
// deterministic prompt → extract a JSON object of dimensions.
type ShippingResearch struct {
	executor ModelExecutor
	jobs     *jobTable
	logger   *zap.Logger
}

// NewShippingResearch constructs a ShippingResearch sub-workflow.
func NewShippingResearch(executor ModelExecutor, logger *zap.Logger) *ShippingResearch {
	return &ShippingResearch{executor: executor, jobs: newJobTable(), logger: logger}
}

func (s *ShippingResearch) Launch(ctx context.Context, executionID string, params orchestrator.PrimeWorkflowParams) error {
	product := strings.TrimSpace(params.Product)
	if product == "" {
		product = strings.TrimSpace(params.Context.Product)
	}
	if product == "" {
		s.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusErrored, Error: "validate: product is required"})
		return fmt.Errorf("shipping-research: validate: product is required")
	}
	s.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusRunning})
	go s.run(ctx, executionID, product)
	return nil
}

func (s *ShippingResearch) Poll(_ context.Context, executionID string) (orchestrator.JobStatus, error) {
	status, ok := s.jobs.get(executionID)
	if !ok {
		return orchestrator.JobStatus{}, errJobNotFound(executionID)
	}
	return status, nil
}

func (s *ShippingResearch) run(ctx context.Context, executionID, product string) {
	prompt := deterministicPrompt(product)
	result, err := s.executor.Execute(ctx, shippingResearchModel, prompt)
	if err != nil {
		s.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusErrored, Error: err.Error()})
		return
	}

	dims, err := extractDimensions(result.Text)
	if err != nil {
		s.logger.Info("shipping-research: extraction failed", zap.String("execution_id", executionID), zap.Error(err))
		s.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusErrored, Error: err.Error()})
		return
	}

	body, _ := json.Marshal(dims)
	s.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusComplete, Output: string(body), RunnerUsed: shippingResearchModel})
}

func deterministicPrompt(product string) string {
	return fmt.Sprintf(
		"Estimate the shipping dimensions and weight for the product %q. "+
			"Respond with a single JSON object: {\"length_cm\": number, \"width_cm\": number, "+
			"\"height_cm\": number, \"weight_kg\": number, \"confidence\": \"low\"|\"medium\"|\"high\"}.",
		product,
	)
}

// extractDimensions implements spec.md §4.11's extraction algorithm: strip
// markdown fences, regex-extract the first `{...}` object, validate it.
func extractDimensions(raw string) (Dimensions, error) {
	text := raw
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	obj := jsonObjectPattern.FindString(text)
	if obj == "" {
		return Dimensions{}, fmt.Errorf("shipping-research: no JSON object found in model output")
	}
	var dims Dimensions
	if err := json.Unmarshal([]byte(obj), &dims); err != nil {
		return Dimensions{}, fmt.Errorf("shipping-research: invalid JSON object: %w", err)
	}
	if err := dims.validate(); err != nil {
		return Dimensions{}, err
	}
	return dims, nil
}
