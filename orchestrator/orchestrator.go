// Package orchestrator implements the Entry Orchestrator of spec.md §4.10
// (PrimeWorkflow semantics): the single public entry point that validates,
// classifies a task, launches the matching sub-workflow, polls it to a
// terminal state, applies the defense-in-depth Failure-Indicator Validator,
// and delivers an optional callback.
//
// Grounded on the teacher's internal/server connection-lifecycle manager
// for the "accept, track by id, run to completion in the background,
// expose status by id" shape, generalized here from a websocket session
// table to a polled job table.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/novaroute/router/types"
	"github.com/novaroute/router/validator"
)

// Config carries the Entry Orchestrator's tunables, all of which spec.md §9
// Open Questions flags as hard-coded in the source and recommends making
// configurable.
type Config struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	CallbackSecret  string
	CallbackRetries int
}

// DefaultConfig returns spec.md §4.10 step 4's literal defaults (5s / 60
// attempts = 5 minutes).
func DefaultConfig() Config {
	return Config{PollInterval: 5 * time.Second, MaxPollAttempts: 60, CallbackRetries: 3}
}

// Orchestrator wires a Store, Dedup guard, a CallbackPoster, and one
// SubWorkflow per TaskType.
type Orchestrator struct {
	store       Store
	dedup       Dedup
	callback    *CallbackPoster
	subworkflow map[TaskType]SubWorkflow
	cfg         Config
	logger      *zap.Logger
}

// New constructs an Orchestrator. subworkflows maps each TaskType to its
// launcher/poller; a TaskType with no entry fails launches with
// InstanceNotFound.
func New(store Store, dedup Dedup, callback *CallbackPoster, subworkflows map[TaskType]SubWorkflow, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = DefaultConfig().MaxPollAttempts
	}
	return &Orchestrator{store: store, dedup: dedup, callback: callback, subworkflow: subworkflows, cfg: cfg, logger: logger}
}

// Submit implements spec.md §4.10 steps 1-3 synchronously and kicks off
// steps 4-6 in the background, returning immediately so `POST /execute`
// can reply `{success, execution_id, status: "accepted"}` without blocking
// on the sub-workflow's wall-clock time.
func (o *Orchestrator) Submit(ctx context.Context, id string, params PrimeWorkflowParams) (TaskType, error) {
	if params.TaskID == "" || params.Title == "" {
		return "", types.NewError(types.ErrValidationError, "task_id and title are required").WithHTTPStatus(400)
	}

	claimed, err := o.dedup.Claim(ctx, id)
	if err != nil {
		return "", types.NewError(types.ErrValidationError, "dedup check failed: "+err.Error()).WithHTTPStatus(500)
	}
	if !claimed {
		return "", types.NewError(types.ErrDuplicateExecution, "execution already accepted for this id").WithHTTPStatus(409)
	}

	taskType := Classify(params)
	sub, ok := o.subworkflow[taskType]
	if !ok {
		return "", types.NewError(types.ErrInstanceNotFound,
			"no sub-workflow registered for task type "+string(taskType)).WithHTTPStatus(404)
	}

	now := time.Now()
	if err := o.store.Create(Execution{
		ID: id, TaskID: params.TaskID, TaskType: taskType, Status: StatusQueued,
		CallbackURL: params.CallbackURL, StartedAt: now,
	}); err != nil {
		return "", err
	}

	go o.run(context.WithoutCancel(ctx), id, taskType, sub, params)

	return taskType, nil
}

// run implements spec.md §4.10 steps 3-6 in the background.
func (o *Orchestrator) run(ctx context.Context, id string, taskType TaskType, sub SubWorkflow, params PrimeWorkflowParams) {
	if err := sub.Launch(ctx, id, params); err != nil {
		o.finish(id, taskType, StatusErrored, "", "", err.Error(), time.Now())
		return
	}
	_ = o.store.Update(id, func(e *Execution) { e.Status = StatusRunning })

	for attempt := 0; attempt < o.cfg.MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			o.finish(id, taskType, StatusErrored, "", "", "orchestrator: context cancelled", time.Now())
			return
		case <-time.After(o.cfg.PollInterval):
		}

		status, err := sub.Poll(ctx, id)
		if err != nil {
			o.logger.Info("orchestrator: poll attempt failed, tolerated",
				zap.String("execution_id", id), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if status.Status.Terminal() {
			o.finish(id, taskType, status.Status, status.Output, status.RunnerUsed, status.Error, time.Now())
			return
		}
	}

	o.finish(id, taskType, StatusErrored, "", "",
		"Workflow polling exceeded budget", time.Now())
}

// finish applies the defense-in-depth validator to a reported success,
// persists the final Execution, and fires the callback, implementing
// spec.md §4.10 steps 5-6.
func (o *Orchestrator) finish(id string, taskType TaskType, status Status, output, runnerUsed, errMsg string, finishedAt time.Time) {
	if status == StatusComplete {
		if v := validator.Validate(output); v.Downgraded {
			status = StatusErrored
			errMsg = "Response indicates task was not completed"
		}
	}

	_ = o.store.Update(id, func(e *Execution) {
		e.Status = status
		e.Output = output
		e.Error = errMsg
		e.RunnerUsed = runnerUsed
		e.FinishedAt = &finishedAt
	})

	exec, ok := o.store.Get(id)
	if !ok || exec.CallbackURL == "" {
		return
	}

	envelopeStatus := "completed"
	switch status {
	case StatusComplete:
		envelopeStatus = "completed"
	case StatusQuarantined:
		envelopeStatus = "quarantined"
	default:
		envelopeStatus = "failed"
	}
	duration := int64(0)
	if exec.FinishedAt != nil {
		duration = exec.FinishedAt.Sub(exec.StartedAt).Milliseconds()
	}

	go o.callback.Post(context.Background(), exec.CallbackURL, CallbackEnvelope{
		TaskID:     exec.TaskID,
		Status:     envelopeStatus,
		TaskType:   string(taskType),
		RunnerUsed: exec.RunnerUsed,
		Output:     exec.Output,
		Error:      exec.Error,
		DurationMs: duration,
		Timestamp:  exec.FinishedAt.Unix(),
	})
}

// Status returns the current Execution for GET /status/:id.
func (o *Orchestrator) Status(id string) (Execution, bool) {
	return o.store.Get(id)
}
