// Package workflowengine implements the Workflow Engine of spec.md §4.9:
// executes a DAG of steps, grouping by dependency, running each group
// concurrently and groups sequentially, expanding `{{var}}` templates from
// request variables plus accumulated step outputs, and feeding each step
// into the Simple Router.
//
// Grounded on the teacher's workflow/dag_executor.go for the
// fan-out/fan-in shape (goroutines joined before the next phase starts),
// kept as a WaitGroup+mutex rather than errgroup so a failing step never
// cancels its siblings; go.uber.org/multierr combines every failure in a
// group into one error instead of reporting only the first, and
// golang.org/x/sync/semaphore bounds how many steps of a wide group
// dispatch to providers at once. Simplified to the step/group model
// spec.md defines rather than the teacher's more general
// condition/loop/subgraph/checkpoint node types (see DESIGN.md).
package workflowengine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/novaroute/router/catalog"
	"github.com/novaroute/router/simplerouter"
	"github.com/novaroute/router/types"
)

// maxConcurrentSteps bounds how many steps of one parallel group dispatch
// to providers at once, so a wide group doesn't burst every adapter at
// the same instant.
const maxConcurrentSteps = 8

// Router is the subset of simplerouter.Router the engine needs.
type Router interface {
	Route(ctx context.Context, req simplerouter.SimpleRequest) types.RouterResponse
}

var _ Router = (*simplerouter.Router)(nil)

// Engine executes catalog.WorkflowSpec definitions.
type Engine struct {
	router Router
	logger *zap.Logger
	tracer trace.Tracer
}

// New constructs an Engine.
func New(router Router, logger *zap.Logger) *Engine {
	return &Engine{router: router, logger: logger, tracer: otel.Tracer("github.com/novaroute/router/workflowengine")}
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// expandTemplate implements spec.md §4.9 step 1 / §8 property 5: every
// `{{name}}` with a defined value is replaced by its stringified value;
// every `{{name}}` left undefined is kept literal, and logged.
func expandTemplate(template string, context map[string]string, logger *zap.Logger) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := context[name]; ok {
			return v
		}
		logger.Debug("workflowengine: unresolved template placeholder", zap.String("name", name))
		return match
	})
}

func stringifyResult(r types.MediaResult) string {
	if r.Text != "" {
		return r.Text
	}
	if r.URL != "" {
		return r.URL
	}
	return r.Base64
}

// computeGroups implements spec.md §4.9's group-derivation algorithm: if
// the definition carries parallel_groups, use it verbatim; otherwise
// repeatedly batch steps whose input_from is satisfied.
func computeGroups(spec catalog.WorkflowSpec) ([][]string, error) {
	if len(spec.ParallelGroups) > 0 {
		return spec.ParallelGroups, nil
	}

	byID := make(map[string]catalog.WorkflowStep, len(spec.Steps))
	for _, s := range spec.Steps {
		byID[s.ID] = s
	}
	completed := make(map[string]bool, len(spec.Steps))
	var groups [][]string

	for len(completed) < len(spec.Steps) {
		var group []string
		for _, s := range spec.Steps {
			if completed[s.ID] {
				continue
			}
			if dependencySatisfied(s.InputFrom, completed) {
				group = append(group, s.ID)
			}
		}
		if len(group) == 0 {
			return nil, fmt.Errorf("workflowengine: Cannot resolve workflow dependencies")
		}
		for _, id := range group {
			completed[id] = true
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func dependencySatisfied(inputFrom string, completed map[string]bool) bool {
	if inputFrom == "" || inputFrom == "request" {
		return true
	}
	const prefix = "step:"
	if len(inputFrom) > len(prefix) && inputFrom[:len(prefix)] == prefix {
		return completed[inputFrom[len(prefix):]]
	}
	return true
}

// Execute runs spec against variables, producing a RouterResponse keyed by
// each step's output_key.
func (e *Engine) Execute(ctx context.Context, spec catalog.WorkflowSpec, variables map[string]string, globalConstraints types.RequestConstraints) types.RouterResponse {
	groups, err := computeGroups(spec)
	if err != nil {
		return types.RouterResponse{Success: false, Error: err.Error(), ErrorCode: types.ErrCannotResolveDeps}
	}

	byID := make(map[string]catalog.WorkflowStep, len(spec.Steps))
	for _, s := range spec.Steps {
		byID[s.ID] = s
	}

	outputs := map[string]types.MediaResult{}
	templateCtx := map[string]string{}
	for k, v := range variables {
		templateCtx[k] = v
	}
	meta := map[string]types.StepMeta{}

	var mu sync.Mutex
	sem := semaphore.NewWeighted(maxConcurrentSteps)

	for _, group := range groups {
		var wg sync.WaitGroup
		var groupErr error

		for _, stepID := range group {
			step, ok := byID[stepID]
			if !ok {
				continue
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				groupErr = multierr.Append(groupErr, fmt.Errorf("step %s: %w", step.ID, err))
				mu.Unlock()
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				stepCtx, span := e.tracer.Start(ctx, "workflow.step",
					trace.WithAttributes(attribute.String("step_id", step.ID), attribute.String("worker", step.Worker)))
				defer span.End()

				prompt := expandTemplate(step.PromptTemplate, snapshot(templateCtx, &mu), e.logger)
				if strings.TrimSpace(prompt) == "" {
					span.SetStatus(codes.Error, "empty prompt")
					mu.Lock()
					groupErr = multierr.Append(groupErr, fmt.Errorf("step %s: %w", step.ID, types.NewError(types.ErrInvalidRequest, "expanded prompt is empty")))
					mu.Unlock()
					return
				}

				constraints := globalConstraints
				if step.Constraints != nil {
					constraints = globalConstraints.Merge(*step.Constraints)
				}
				options := types.MediaOptions{}
				if step.Options != nil {
					options = *step.Options
				}

				resp := e.router.Route(stepCtx, simplerouter.SimpleRequest{
					Worker:      step.Worker,
					Prompt:      prompt,
					Constraints: constraints,
					Options:     options,
				})

				mu.Lock()
				defer mu.Unlock()
				if !resp.Success {
					span.SetStatus(codes.Error, resp.Error)
					groupErr = multierr.Append(groupErr, fmt.Errorf("step %s failed: %s", step.ID, resp.Error))
					return
				}
				result := resp.Results["result"]
				outputs[step.OutputKey] = result
				templateCtx[step.OutputKey] = stringifyResult(result)
				for k, v := range resp.Meta {
					meta[step.ID+"."+k] = v
				}
			}()
		}
		wg.Wait()

		// Every step in the group runs to completion even if a sibling
		// fails, so an independent step's failure never hides another
		// sibling's result or error — multierr.Append collects every
		// failure in the group, reported at once instead of only the first.
		if groupErr != nil {
			return types.RouterResponse{
				Success:        false,
				Error:          groupErr.Error(),
				ErrorCode:      types.ErrWorkflowStepFailed,
				PartialResults: outputs,
				Meta:           meta,
			}
		}
	}

	return types.RouterResponse{Success: true, Results: outputs, Meta: meta}
}

func snapshot(m map[string]string, mu *sync.Mutex) map[string]string {
	mu.Lock()
	defer mu.Unlock()
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
