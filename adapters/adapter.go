// Package adapters defines the polymorphic per-provider Adapter contract
// of spec.md §4.3 and a registry keyed by provider id.
package adapters

import (
	"context"
	"fmt"
	"sync"

	"github.com/novaroute/router/types"
)

// ExecuteRequest is what the Simple Router passes into an adapter after
// prompt transformation and system-prompt injection.
type ExecuteRequest struct {
	Prompt   string
	Options  types.MediaOptions
	Worker   string
	ModelID  string // provider-native model id
	APIKey   string // resolved credential, empty for local/no-auth providers
	Gateway  bool   // true if APIKey is a gateway bearer token, not a direct key
}

// StreamDelta is one uniform streaming chunk, per spec.md §4.3.
type StreamDelta struct {
	Text      string
	Done      bool
	RequestID string
}

// HealthStatus is the result of a provider health probe.
type HealthStatus struct {
	Healthy bool
	Detail  string
}

// Adapter is the polymorphic per-provider translator of spec.md §4.3.
type Adapter interface {
	ProviderID() string
	SupportedWorkers() []string
	Execute(ctx context.Context, req ExecuteRequest) (types.MediaResult, error)
	CheckHealth(ctx context.Context) HealthStatus
}

// StreamingAdapter is implemented by text adapters that support a lazy
// delta sequence instead of (or in addition to) Execute.
type StreamingAdapter interface {
	Adapter
	Stream(ctx context.Context, req ExecuteRequest) (<-chan StreamDelta, error)
}

// Registry is a thread-safe map of provider id to Adapter, grounded on the
// teacher's llm.ProviderRegistry shape.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry constructs an empty adapter Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds or replaces an adapter under its own ProviderID.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ProviderID()] = a
}

// Get looks up an adapter by provider id.
func (r *Registry) Get(providerID string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[providerID]
	if !ok {
		return nil, fmt.Errorf("adapters: no adapter registered for provider %q", providerID)
	}
	return a, nil
}

// List returns every registered provider id.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}
