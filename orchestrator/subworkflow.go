package orchestrator

import "context"

// JobStatus is one sub-workflow's point-in-time status, as observed by a
// Poll call.
type JobStatus struct {
	Status     Status
	Output     string
	RunnerUsed string
	Error      string
}

// SubWorkflow is the Entry Orchestrator's view of a sub-workflow
// implementation: an asynchronous job it can launch and poll, per spec.md
// §4.11. Concrete sub-workflows (code-execution, video-render,
// image-generation, audio-generation, shipping-research, text) live in
// subpackages and are wired in by TaskType at construction time.
type SubWorkflow interface {
	// Launch starts the job for executionID and returns immediately;
	// progress is observed exclusively through Poll, per spec.md §5's
	// "drives them via status polling, not holding ownership".
	Launch(ctx context.Context, executionID string, params PrimeWorkflowParams) error
	Poll(ctx context.Context, executionID string) (JobStatus, error)
}
