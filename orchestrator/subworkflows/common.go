// Package subworkflows implements the concrete sub-workflow step sequences
// of spec.md §4.11: linear step sequences with bounded retries, each driven
// to completion in its own goroutine and observed by the Entry Orchestrator
// through Poll.
//
// Grounded on the teacher's workflow.DAGExecutor (sequential node
// execution, per-node result map, structured zap logging at each step) and
// workflow.CircuitBreakerRegistry (bounded-retry-then-give-up shape),
// generalized from the teacher's general node graph down to the fixed
// linear pipelines spec.md §4.11 names.
package subworkflows

import (
	"context"
	"fmt"
	"sync"

	"github.com/novaroute/router/adapters"
	"github.com/novaroute/router/catalog"
	"github.com/novaroute/router/credentials"
	"github.com/novaroute/router/orchestrator"
	"github.com/novaroute/router/types"
)

// ModelExecutor runs a single named model directly, bypassing the
// Selector's ranked chain: the code-execution sub-workflow walks an
// explicit waterfall of model names (spec.md §4.8), not provider priority.
type ModelExecutor interface {
	Execute(ctx context.Context, modelName, prompt string) (types.MediaResult, error)
}

// CatalogExecutor resolves a model name through the Registry and invokes
// its owning provider's Adapter directly, reusing the same credential
// resolution the Simple Router applies (gateway-preferred BYOK, per
// spec.md §9).
type CatalogExecutor struct {
	registry *catalog.Registry
	adapters *adapters.Registry
	creds    *credentials.Store
	gatewaySupported map[string]bool
}

// NewCatalogExecutor constructs a CatalogExecutor.
func NewCatalogExecutor(registry *catalog.Registry, adapterRegistry *adapters.Registry, creds *credentials.Store, gatewaySupported map[string]bool) *CatalogExecutor {
	return &CatalogExecutor{registry: registry, adapters: adapterRegistry, creds: creds, gatewaySupported: gatewaySupported}
}

func (e *CatalogExecutor) Execute(ctx context.Context, modelName, prompt string) (types.MediaResult, error) {
	model, provider, err := e.registry.FindModelByModelID(modelName)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("code-execution: model %s not found: %w", modelName, err)
	}
	adapter, err := e.adapters.Get(provider.ID)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("code-execution: no adapter for provider %s: %w", provider.ID, err)
	}

	apiKey, gateway := "", false
	if provider.Kind != types.ProviderKindLocal {
		resolved, ok := e.creds.ResolveGatewayPreferred(provider.AuthSecretName, e.gatewaySupported[provider.ID])
		if !ok {
			return types.MediaResult{}, fmt.Errorf("code-execution: no credential resolvable for provider %s", provider.ID)
		}
		apiKey, gateway = resolved.Value, resolved.Gateway
	}

	return adapter.Execute(ctx, adapters.ExecuteRequest{
		Prompt:  prompt,
		Options: types.MediaOptions{},
		Worker:  "text-gen",
		ModelID: model.ModelID,
		APIKey:  apiKey,
		Gateway: gateway,
	})
}

// jobTable is the shared "launched, not yet terminal" bookkeeping every
// concrete sub-workflow in this package needs: Launch starts a goroutine
// that writes into the table as it advances; Poll reads the latest entry.
type jobTable struct {
	mu   sync.RWMutex
	jobs map[string]orchestrator.JobStatus
}

func newJobTable() *jobTable {
	return &jobTable{jobs: make(map[string]orchestrator.JobStatus)}
}

func (t *jobTable) set(id string, status orchestrator.JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[id] = status
}

func (t *jobTable) get(id string) (orchestrator.JobStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.jobs[id]
	return s, ok
}

type jobNotFoundError string

func (e jobNotFoundError) Error() string { return string(e) }

func errJobNotFound(id string) error {
	return jobNotFoundError("subworkflows: no job tracked for execution " + id)
}
