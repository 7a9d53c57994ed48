package simplerouter

import (
	"context"

	"go.uber.org/zap"

	"github.com/novaroute/router/catalog"
	"github.com/novaroute/router/classifier"
	"github.com/novaroute/router/types"
)

// CatalogLister is the subset of catalog.Registry the text-only fast path
// needs to know which providers exist, so it can exclude everything outside
// the hardcoded waterfall.
type CatalogLister interface {
	GetAvailableProviders(workerID string) ([]catalog.RankedProvider, error)
}

// TextOnlyRouter implements spec.md §4.7's optional fast path: when the
// Text-Only Tier Classifier tags a request text-only, try only
// classifier.TextOnlyWaterfall's short provider list first; any failure
// there falls through to the standard Simple Router chain unrestricted.
type TextOnlyRouter struct {
	router     *Router
	classifier *classifier.Classifier
	catalog    CatalogLister
	logger     *zap.Logger
}

// NewTextOnlyRouter constructs a TextOnlyRouter.
func NewTextOnlyRouter(router *Router, cls *classifier.Classifier, catalog CatalogLister, logger *zap.Logger) *TextOnlyRouter {
	return &TextOnlyRouter{router: router, classifier: cls, catalog: catalog, logger: logger}
}

// Route classifies req, attempts the text-only fast path when applicable,
// and falls through to the standard chain otherwise or on fast-path
// exhaustion.
func (t *TextOnlyRouter) Route(ctx context.Context, req SimpleRequest) types.RouterResponse {
	if req.Worker != "text-gen" {
		return t.router.Route(ctx, req)
	}

	tier := t.classifier.Classify(ctx, req.Prompt, req.Options)
	if tier != types.RoutingTextOnly {
		return t.router.Route(ctx, req)
	}

	fastReq := req
	fastReq.Constraints.ExcludeProviders = append(
		append([]string{}, req.Constraints.ExcludeProviders...),
		t.excludedForFastPath()...,
	)
	resp := t.router.Route(ctx, fastReq)
	if resp.Success {
		return resp
	}

	t.logger.Info("simplerouter: text-only fast path exhausted, falling through to standard chain")
	return t.router.Route(ctx, req)
}

func (t *TextOnlyRouter) excludedForFastPath() []string {
	fast := make(map[string]bool, len(classifier.TextOnlyWaterfall))
	for _, id := range classifier.TextOnlyWaterfall {
		fast[id] = true
	}
	providers, err := t.catalog.GetAvailableProviders("text-gen")
	if err != nil {
		return nil
	}
	excluded := make([]string, 0, len(providers))
	for _, p := range providers {
		if !fast[p.ID] {
			excluded = append(excluded, p.ID)
		}
	}
	return excluded
}
