// Package orchestrator implements the Entry Orchestrator of spec.md §4.10
// (PrimeWorkflow semantics) and hosts the sub-workflows of §4.11.
package orchestrator

import "time"

// TaskType is the Entry Orchestrator's classification outcome.
type TaskType string

const (
	TaskCode             TaskType = "code"
	TaskText             TaskType = "text"
	TaskVideo            TaskType = "video"
	TaskImage            TaskType = "image"
	TaskAudio            TaskType = "audio"
	TaskShippingResearch TaskType = "shipping-research"
)

// Context carries the strong context signals of spec.md §4.10 step 2.
type Context struct {
	Repo     string `json:"repo,omitempty"`
	Timeline string `json:"timeline,omitempty"`
	Product  string `json:"product,omitempty"`
}

// Hints carries caller-supplied last-resort tiebreakers.
type Hints struct {
	Workflow string `json:"workflow,omitempty"`
}

// PrimeWorkflowParams is the uniform parameter envelope for /execute.
type PrimeWorkflowParams struct {
	TaskID      string  `json:"task_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Context     Context `json:"context,omitempty"`
	Hints       Hints   `json:"hints,omitempty"`
	CallbackURL string  `json:"callback_url,omitempty"`

	// code-execution-only fields, consulted by the Waterfall Resolver.
	OverrideUntil     *time.Time `json:"override_until,omitempty"`
	OverrideWaterfall []string   `json:"override_waterfall,omitempty"`
	ModelWaterfall    []string   `json:"model_waterfall,omitempty"`
	PrimaryModel      string     `json:"primary_model,omitempty"`
	PreferredExecutor string     `json:"preferred_executor,omitempty"`

	// image/audio/video/shipping-research fields.
	Product string `json:"product,omitempty"`
}

// Status is the Entry Orchestrator's terminal/non-terminal status vocabulary.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusRunning    Status = "running"
	StatusPaused     Status = "paused"
	StatusComplete   Status = "complete"
	StatusErrored    Status = "errored"
	StatusTerminated Status = "terminated"
	StatusWaiting    Status = "waiting"
	// StatusQuarantined is the code-execution-only terminal state of
	// spec.md §4.11: reached when every model in the waterfall fails.
	StatusQuarantined Status = "quarantined"
)

func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusErrored || s == StatusTerminated || s == StatusQuarantined
}

// Execution is the Entry Orchestrator's tracked record for one task_id.
type Execution struct {
	ID          string
	TaskID      string
	TaskType    TaskType
	Status      Status
	Output      string
	Error       string
	RunnerUsed  string
	CallbackURL string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// CallbackEnvelope is posted to the caller-supplied URL on completion, per
// spec.md §4.10 step 6 / §6.
type CallbackEnvelope struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	TaskType   string `json:"task_type"`
	RunnerUsed string `json:"runner_used,omitempty"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Timestamp  int64  `json:"timestamp"`
}
