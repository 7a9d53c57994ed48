// Package simplerouter implements the Simple Router of spec.md §4.6: it
// drives the Selector's chain, invokes the Adapter for each attempt,
// interprets errors via the Health Tracker, and returns on first success
// or after the chain is exhausted.
package simplerouter

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/novaroute/router/adapters"
	"github.com/novaroute/router/credentials"
	"github.com/novaroute/router/health"
	"github.com/novaroute/router/selector"
	"github.com/novaroute/router/transform"
	"github.com/novaroute/router/types"
)

// SimpleRequest is one routed request: a worker, prompt, constraints, and
// worker-tagged options.
type SimpleRequest struct {
	Worker      string
	Prompt      string
	Constraints types.RequestConstraints
	Options     types.MediaOptions
}

// gatewaySupported is the closed list of providers the configured gateway
// is known to proxy, per spec.md §9: "Providers not supported by the
// gateway (e.g. z.ai) always take the direct path — this is a closed,
// configured list, not a runtime discovery."
var gatewaySupported = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"ideogram":  true,
	"elevenlabs": true,
	"replicate": true,
	"z.ai":      false,
}

// Router ties the Selector, adapter Registry, credential Store, and
// Health Tracker together.
type Router struct {
	selector *selector.Selector
	adapters *adapters.Registry
	creds    *credentials.Store
	tracker  *health.Tracker
	logger   *zap.Logger
	tracer   trace.Tracer
}

// New constructs a Router.
func New(sel *selector.Selector, adapterRegistry *adapters.Registry, creds *credentials.Store, tracker *health.Tracker, logger *zap.Logger) *Router {
	return &Router{
		selector: sel, adapters: adapterRegistry, creds: creds, tracker: tracker, logger: logger,
		tracer: otel.Tracer("github.com/novaroute/router/simplerouter"),
	}
}

// Route implements spec.md §4.6's contract. Requests are iterated strictly
// sequentially over the chain (never in parallel) so a success returns
// immediately without consuming downstream quota, per spec.md §5.
func (r *Router) Route(ctx context.Context, req SimpleRequest) types.RouterResponse {
	if strings.TrimSpace(req.Prompt) == "" {
		return errorResponse(types.NewError(types.ErrInvalidRequest, "prompt must not be empty").WithHTTPStatus(400))
	}

	chain, err := r.selector.Select(req.Worker, req.Constraints)
	if err != nil {
		return errorResponse(err)
	}

	attempted := make([]string, 0, len(chain))
	for _, pair := range chain {
		attempted = append(attempted, pair.Provider.ID)

		adapter, err := r.adapters.Get(pair.Provider.ID)
		if err != nil {
			r.logger.Warn("simplerouter: no adapter for provider, skipping",
				zap.String("provider", pair.Provider.ID), zap.Error(err))
			continue
		}

		resolved, ok := r.creds.ResolveGatewayPreferred(pair.Provider.AuthSecretName, gatewaySupported[pair.Provider.ID])
		apiKey := ""
		gateway := false
		if pair.Provider.Kind != types.ProviderKindLocal {
			if !ok {
				return errorResponse(types.NewError(types.ErrMissingAPIKey,
					fmt.Sprintf("no credential resolvable for provider %s", pair.Provider.ID)).WithHTTPStatus(500))
			}
			apiKey = resolved.Value
			gateway = resolved.Gateway
		}

		prompt, options := transform.Apply(req.Prompt, req.Options, transform.Request{
			Worker:               req.Worker,
			Provider:             pair.Provider.ID,
			Model:                pair.Model.ModelID,
			TaskType:             req.Options.TaskType,
			RequiredCapabilities: req.Constraints.RequireCapabilities,
		})
		if options.SystemPrompt == "" {
			options.SystemPrompt = defaultSystemPrompt(req.Worker)
		}

		attemptCtx, span := r.tracer.Start(ctx, "adapter.execute",
			trace.WithAttributes(
				attribute.String("provider", pair.Provider.ID),
				attribute.String("model", pair.Model.ModelID),
				attribute.String("worker", req.Worker),
			))

		start := time.Now()
		result, err := adapter.Execute(attemptCtx, adapters.ExecuteRequest{
			Prompt:  prompt,
			Options: options,
			Worker:  req.Worker,
			ModelID: pair.Model.ModelID,
			APIKey:  apiKey,
			Gateway: gateway,
		})
		latency := time.Since(start)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if err == nil {
			if recErr := r.tracker.RecordSuccess(pair.Provider.ID); recErr != nil {
				r.logger.Warn("simplerouter: failed to record success", zap.Error(recErr))
			}
			return successResponse(result, pair, latency, attempted, prompt)
		}

		outcome, recErr := r.tracker.RecordFailure(pair.Provider.ID, err.Error())
		if recErr != nil {
			r.logger.Warn("simplerouter: failed to record failure", zap.Error(recErr))
		}
		r.logger.Info("simplerouter: adapter attempt failed",
			zap.String("provider", pair.Provider.ID), zap.String("class", outcome.Class.String()), zap.Error(err))

		if outcome.Abort {
			return errorResponse(types.NewError(types.ErrProviderBadRequest, err.Error()).WithHTTPStatus(400).WithProvider(pair.Provider.ID))
		}
	}

	return types.RouterResponse{
		Success:   false,
		Error:     "all providers failed",
		ErrorCode: types.ErrAllProvidersFailed,
		Meta: map[string]types.StepMeta{
			"_chain": {AttemptedProviders: attempted},
		},
	}
}

func defaultSystemPrompt(worker string) string {
	if worker == "text-gen" {
		return "You are a helpful assistant."
	}
	return ""
}

func successResponse(result types.MediaResult, pair selector.Pair, latency time.Duration, attempted []string, prompt string) types.RouterResponse {
	tokensUsed := result.TokensUsed
	if tokensUsed <= 0 && result.Text != "" {
		tokensUsed = estimateTokens(prompt) + estimateTokens(result.Text)
	}
	cost := estimateCostCents(tokensUsed, pair.Model.CostInputPer1k, pair.Model.CostOutputPer1k)
	return types.RouterResponse{
		Success: true,
		Results: map[string]types.MediaResult{"result": result},
		Meta: map[string]types.StepMeta{
			"result": {
				Provider:           pair.Provider.ID,
				Model:              pair.Model.ModelID,
				LatencyMs:          latency.Milliseconds(),
				TokensUsed:         tokensUsed,
				CostCents:          cost,
				AttemptedProviders: attempted,
			},
		},
	}
}

// estimateTokens falls back to tiktoken-go's cl100k_base encoding to count
// tokens when an adapter's response omits usage figures, per spec.md
// §4.6's cost-estimate formula. Returns 0 rather than erroring if the
// encoding can't be loaded, since cost reporting is best-effort.
func estimateTokens(text string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}

// estimateCostCents implements spec.md §4.6's formula: round((tokens/2/1000)
// * (in_rate+out_rate) * 100) / 100 cents, assuming a 50/50 input/output
// split when only the total token count is known.
func estimateCostCents(tokensUsed int, inRate, outRate float64) float64 {
	if tokensUsed <= 0 {
		return 0
	}
	raw := (float64(tokensUsed) / 2 / 1000) * (inRate + outRate) * 100
	return math.Round(raw) / 100
}

func errorResponse(err error) types.RouterResponse {
	if typedErr, ok := err.(*types.Error); ok {
		return types.RouterResponse{Success: false, Error: typedErr.Message, ErrorCode: typedErr.Code}
	}
	return types.RouterResponse{Success: false, Error: err.Error()}
}
