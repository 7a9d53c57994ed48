package subworkflows

import (
	"context"

	"go.uber.org/zap"

	"github.com/novaroute/router/orchestrator"
	"github.com/novaroute/router/waterfall"
)

// CodeExecution implements spec.md §4.11's code-execution pipeline:
// log-request → execute-primary → (on failure) execute-fallback →
// report-result → send-callback. Waterfall positions are recorded; if
// every model in the waterfall fails, the task is marked quarantined.
type CodeExecution struct {
	executor         ModelExecutor
	envDefaultModels string
	catalog          waterfall.CatalogValidator
	jobs             *jobTable
	logger           *zap.Logger
}

// NewCodeExecution constructs a CodeExecution sub-workflow.
func NewCodeExecution(executor ModelExecutor, envDefaultModels string, catalog waterfall.CatalogValidator, logger *zap.Logger) *CodeExecution {
	return &CodeExecution{executor: executor, envDefaultModels: envDefaultModels, catalog: catalog, jobs: newJobTable(), logger: logger}
}

func (c *CodeExecution) Launch(ctx context.Context, executionID string, params orchestrator.PrimeWorkflowParams) error {
	c.jobs.set(executionID, orchestrator.JobStatus{Status: orchestrator.StatusRunning})
	go c.run(ctx, executionID, params)
	return nil
}

func (c *CodeExecution) Poll(_ context.Context, executionID string) (orchestrator.JobStatus, error) {
	status, ok := c.jobs.get(executionID)
	if !ok {
		return orchestrator.JobStatus{}, errJobNotFound(executionID)
	}
	return status, nil
}

func (c *CodeExecution) run(ctx context.Context, executionID string, params orchestrator.PrimeWorkflowParams) {
	models := waterfall.Resolve(waterfall.Request{
		OverrideUntil:     params.OverrideUntil,
		OverrideWaterfall: params.OverrideWaterfall,
		ModelWaterfall:    params.ModelWaterfall,
		PrimaryModel:      params.PrimaryModel,
		PreferredExecutor: params.PreferredExecutor,
	}, c.envDefaultModels, c.catalog)

	c.logger.Info("code-execution: log-request",
		zap.String("execution_id", executionID), zap.Strings("waterfall", models))

	attempted := make([]string, 0, len(models))
	var lastErr error
	for position, model := range models {
		attempted = append(attempted, model)
		result, err := c.executor.Execute(ctx, model, params.Description)
		if err == nil {
			c.logger.Info("code-execution: report-result",
				zap.String("execution_id", executionID), zap.String("model", model), zap.Int("waterfall_position", position))
			c.jobs.set(executionID, orchestrator.JobStatus{
				Status: orchestrator.StatusComplete, Output: result.Text, RunnerUsed: model,
			})
			return
		}
		lastErr = err
		c.logger.Info("code-execution: execute-fallback",
			zap.String("execution_id", executionID), zap.String("model", model), zap.Error(err))
	}

	c.logger.Warn("code-execution: quarantined, waterfall exhausted",
		zap.String("execution_id", executionID), zap.Strings("attempted_models", attempted))
	c.jobs.set(executionID, orchestrator.JobStatus{
		Status: orchestrator.StatusQuarantined,
		Error:  errOrEmpty(lastErr),
	})
}

func errOrEmpty(err error) string {
	if err == nil {
		return "all models in waterfall failed"
	}
	return err.Error()
}
