package simplerouter

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/novaroute/router/adapters"
	"github.com/novaroute/router/catalog"
	"github.com/novaroute/router/credentials"
	"github.com/novaroute/router/health"
	"github.com/novaroute/router/selector"
	"github.com/novaroute/router/types"
)

// failingCatalog returns no providers and no models for every lookup, so
// any Route call that reaches the selector in these tests fails with a
// selector-level no-available-provider error rather than quietly
// succeeding.
type failingCatalog struct{}

func (failingCatalog) GetAvailableProviders(workerID string) ([]catalog.RankedProvider, error) {
	return nil, nil
}

func (failingCatalog) GetModelsForProvider(providerID, workerID string) ([]catalog.Model, error) {
	return nil, nil
}

func newTestRouter() *Router {
	sel := selector.New(failingCatalog{}, zap.NewNop())
	adapterRegistry := adapters.NewRegistry()
	creds := credentials.NewStore(nil, nil, "", "", "")
	tracker := health.NewTracker(noopMutator{}, 0, zap.NewNop())
	return New(sel, adapterRegistry, creds, tracker, zap.NewNop())
}

type noopMutator struct{}

func (noopMutator) MarkProviderExhausted(providerID string, until time.Time) error { return nil }
func (noopMutator) MarkProviderHealthy(providerID string) error                   { return nil }
func (noopMutator) IncrementProviderFailures(providerID string) error             { return nil }

func TestRoute_EmptyPromptRejectedBeforeDispatch(t *testing.T) {
	r := newTestRouter()

	resp := r.Route(context.Background(), SimpleRequest{Worker: "text-gen", Prompt: ""})

	if resp.Success {
		t.Fatalf("expected empty prompt to fail")
	}
	if resp.ErrorCode != types.ErrInvalidRequest {
		t.Fatalf("got error code %v, want %v", resp.ErrorCode, types.ErrInvalidRequest)
	}
}

func TestRoute_WhitespaceOnlyPromptRejected(t *testing.T) {
	r := newTestRouter()

	resp := r.Route(context.Background(), SimpleRequest{Worker: "text-gen", Prompt: "   \t\n  "})

	if resp.Success {
		t.Fatalf("expected whitespace-only prompt to fail")
	}
	if resp.ErrorCode != types.ErrInvalidRequest {
		t.Fatalf("got error code %v, want %v", resp.ErrorCode, types.ErrInvalidRequest)
	}
}

func TestRoute_NoAvailableProviderWhenPromptNonEmpty(t *testing.T) {
	r := newTestRouter()

	resp := r.Route(context.Background(), SimpleRequest{Worker: "text-gen", Prompt: "hello"})

	if resp.Success {
		t.Fatalf("expected failure from the empty provider catalog")
	}
	if resp.ErrorCode == types.ErrInvalidRequest {
		t.Fatalf("non-empty prompt must not trip INVALID_REQUEST")
	}
}
