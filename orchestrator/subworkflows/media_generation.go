package subworkflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/novaroute/router/orchestrator"
	"github.com/novaroute/router/simplerouter"
	"github.com/novaroute/router/types"
)

// Router is the subset of simplerouter.Router a media-generation
// sub-workflow needs.
type Router interface {
	Route(ctx context.Context, req simplerouter.SimpleRequest) types.RouterResponse
}

var _ Router = (*simplerouter.Router)(nil)

// MediaGeneration implements spec.md §4.11's image-generation /
// audio-generation shape: validate → generate (with retries) → callback.
// The worker field ("image-gen" or "audio-gen") distinguishes the two.
type MediaGeneration struct {
	worker     string
	router     Router
	maxRetries int
	jobs       *jobTable
	logger     *zap.Logger
}

// NewMediaGeneration constructs a MediaGeneration sub-workflow for worker
// (must be "image-gen" or "audio-gen").
func NewMediaGeneration(worker string, router Router, maxRetries int, logger *zap.Logger) *MediaGeneration {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &MediaGeneration{worker: worker, router: router, maxRetries: maxRetries, jobs: newJobTable(), logger: logger}
}

func (m *MediaGeneration) Launch(ctx context.Context, executionID string, params orchestrator.PrimeWorkflowParams) error {
	prompt := strings.TrimSpace(params.Description)
	if prompt == "" {
		m.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusErrored, Error: "empty prompt"})
		return fmt.Errorf("%s: validate: empty prompt", m.worker)
	}
	m.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusRunning})
	go m.run(ctx, executionID, prompt)
	return nil
}

func (m *MediaGeneration) Poll(_ context.Context, executionID string) (orchestrator.JobStatus, error) {
	status, ok := m.jobs.get(executionID)
	if !ok {
		return orchestrator.JobStatus{}, errJobNotFound(executionID)
	}
	return status, nil
}

func (m *MediaGeneration) run(ctx context.Context, executionID, prompt string) {
	var lastErr string
	backoff := time.Second
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}
		resp := m.router.Route(ctx, simplerouter.SimpleRequest{Worker: m.worker, Prompt: prompt})
		if resp.Success {
			result := resp.Results["result"]
			m.jobs.set(executionID, orchestrator.JobStatus{
				Status: orchestrator.StatusComplete,
				Output: firstNonEmpty(result.URL, result.Base64, result.Text),
			})
			return
		}
		lastErr = resp.Error
		m.logger.Info("media-generation: attempt failed",
			zap.String("execution_id", executionID), zap.Int("attempt", attempt), zap.String("worker", m.worker), zap.String("error", lastErr))
	}
	m.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusErrored, Error: lastErr})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
