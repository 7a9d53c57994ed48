// Package selector builds the ordered provider-model chain the Simple
// Router attempts, per spec.md §4.5.
package selector

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/novaroute/router/catalog"
	"github.com/novaroute/router/types"
)

// Pair is one (provider, model) attempt in a chain.
type Pair struct {
	Provider catalog.Provider
	Model    catalog.Model
}

// CatalogSource is the subset of catalog.Registry the Selector reads.
type CatalogSource interface {
	GetAvailableProviders(workerID string) ([]catalog.RankedProvider, error)
	GetModelsForProvider(providerID, workerID string) ([]catalog.Model, error)
}

var _ CatalogSource = (*catalog.Registry)(nil)

// Selector implements spec.md §4.5's algorithm.
type Selector struct {
	catalog CatalogSource
	logger  *zap.Logger
}

// New constructs a Selector.
func New(catalog CatalogSource, logger *zap.Logger) *Selector {
	return &Selector{catalog: catalog, logger: logger}
}

// Select returns the ordered chain of (provider, model) pairs for workerID
// honoring constraints, or a NoAvailableProvider *types.Error if the
// initial provider fetch is empty.
func (s *Selector) Select(workerID string, constraints types.RequestConstraints) ([]Pair, error) {
	providers, err := s.catalog.GetAvailableProviders(workerID)
	if err != nil {
		return nil, fmt.Errorf("selector: fetch providers for %s: %w", workerID, err)
	}
	if len(providers) == 0 {
		return nil, types.NewError(types.ErrNoAvailableProvider,
			fmt.Sprintf("no available provider for worker %s", workerID)).WithHTTPStatus(503)
	}

	excluded := toSet(constraints.ExcludeProviders)

	chain := make([]Pair, 0, len(providers)*2)
	for _, rp := range providers {
		if _, skip := excluded[rp.ID]; skip {
			continue
		}
		if constraints.RequireLocal && rp.Kind != types.ProviderKindLocal {
			continue
		}
		models, err := s.catalog.GetModelsForProvider(rp.ID, workerID)
		if err != nil {
			s.logger.Warn("selector: model fetch failed, skipping provider",
				zap.String("provider", rp.ID), zap.Error(err))
			continue
		}
		for _, m := range models {
			if !m.HasAllCapabilities(constraints.RequireCapabilities) {
				continue
			}
			if constraints.MinQuality != "" && !m.QualityTier.AtLeast(constraints.MinQuality) {
				continue
			}
			chain = append(chain, Pair{Provider: rp.Provider, Model: m})
		}
	}

	chain = applyPreferences(chain, constraints.PreferredProviderID, constraints.PreferredModelID)
	return chain, nil
}

// applyPreferences moves the caller's preferred provider's pairs to the
// front (stable within that provider), then does the same for the
// preferred model, per spec.md §4.5 step 4.
func applyPreferences(chain []Pair, preferredProvider, preferredModel string) []Pair {
	if preferredProvider != "" {
		chain = stablePartition(chain, func(p Pair) bool { return p.Provider.ID == preferredProvider })
	}
	if preferredModel != "" {
		chain = stablePartition(chain, func(p Pair) bool { return p.Model.ID == preferredModel })
	}
	return chain
}

func stablePartition(chain []Pair, match func(Pair) bool) []Pair {
	front := make([]Pair, 0, len(chain))
	back := make([]Pair, 0, len(chain))
	for _, p := range chain {
		if match(p) {
			front = append(front, p)
		} else {
			back = append(back, p)
		}
	}
	return append(front, back...)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, i := range items {
		set[i] = struct{}{}
	}
	return set
}
