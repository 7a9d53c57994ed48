package selector

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/novaroute/router/catalog"
	"github.com/novaroute/router/types"
)

type fakeCatalog struct {
	providers map[string][]catalog.RankedProvider
	models    map[string][]catalog.Model
	modelErr  error
}

func (f *fakeCatalog) GetAvailableProviders(workerID string) ([]catalog.RankedProvider, error) {
	return f.providers[workerID], nil
}

func (f *fakeCatalog) GetModelsForProvider(providerID, workerID string) ([]catalog.Model, error) {
	if f.modelErr != nil {
		return nil, f.modelErr
	}
	return f.models[providerID], nil
}

func rankedProvider(id string, kind types.ProviderKind) catalog.RankedProvider {
	return catalog.RankedProvider{Provider: catalog.Provider{ID: id, Kind: kind}}
}

func model(id, providerID string, quality types.QualityTier, caps string) catalog.Model {
	return catalog.Model{ID: id, ProviderID: providerID, ModelID: id, QualityTier: quality, Capabilities: caps}
}

func TestSelect_NoAvailableProvider(t *testing.T) {
	src := &fakeCatalog{providers: map[string][]catalog.RankedProvider{}}
	sel := New(src, zap.NewNop())

	_, err := sel.Select("text-gen", types.RequestConstraints{})
	if err == nil {
		t.Fatal("expected error for empty provider list")
	}
	if types.GetErrorCode(err) != types.ErrNoAvailableProvider {
		t.Fatalf("got code %v, want %v", types.GetErrorCode(err), types.ErrNoAvailableProvider)
	}
}

func TestSelect_ExcludesProvider(t *testing.T) {
	src := &fakeCatalog{
		providers: map[string][]catalog.RankedProvider{
			"text-gen": {rankedProvider("a", types.ProviderKindAPI), rankedProvider("b", types.ProviderKindAPI)},
		},
		models: map[string][]catalog.Model{
			"a": {model("a-1", "a", types.QualityStandard, `[]`)},
			"b": {model("b-1", "b", types.QualityStandard, `[]`)},
		},
	}
	sel := New(src, zap.NewNop())

	chain, err := sel.Select("text-gen", types.RequestConstraints{ExcludeProviders: []string{"a"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, pair := range chain {
		if pair.Provider.ID == "a" {
			t.Fatalf("excluded provider %q present in chain", "a")
		}
	}
	if len(chain) != 1 || chain[0].Provider.ID != "b" {
		t.Fatalf("unexpected chain: %+v", chain)
	}
}

func TestSelect_RequireLocalFiltersRemote(t *testing.T) {
	src := &fakeCatalog{
		providers: map[string][]catalog.RankedProvider{
			"text-gen": {rankedProvider("remote", types.ProviderKindAPI), rankedProvider("local", types.ProviderKindLocal)},
		},
		models: map[string][]catalog.Model{
			"remote": {model("r-1", "remote", types.QualityStandard, `[]`)},
			"local":  {model("l-1", "local", types.QualityStandard, `[]`)},
		},
	}
	sel := New(src, zap.NewNop())

	chain, err := sel.Select("text-gen", types.RequestConstraints{RequireLocal: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 1 || chain[0].Provider.ID != "local" {
		t.Fatalf("expected only the local provider, got %+v", chain)
	}
}

func TestSelect_FiltersByCapabilityAndQuality(t *testing.T) {
	src := &fakeCatalog{
		providers: map[string][]catalog.RankedProvider{
			"text-gen": {rankedProvider("a", types.ProviderKindAPI)},
		},
		models: map[string][]catalog.Model{
			"a": {
				model("a-vision-premium", "a", types.QualityPremium, `["vision"]`),
				model("a-draft", "a", types.QualityDraft, `[]`),
			},
		},
	}
	sel := New(src, zap.NewNop())

	chain, err := sel.Select("text-gen", types.RequestConstraints{
		RequireCapabilities: []string{"vision"},
		MinQuality:          types.QualityStandard,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 1 || chain[0].Model.ID != "a-vision-premium" {
		t.Fatalf("expected only the capable, high-quality model, got %+v", chain)
	}
}

func TestSelect_PreferredProviderAndModelFront(t *testing.T) {
	src := &fakeCatalog{
		providers: map[string][]catalog.RankedProvider{
			"text-gen": {rankedProvider("a", types.ProviderKindAPI), rankedProvider("b", types.ProviderKindAPI)},
		},
		models: map[string][]catalog.Model{
			"a": {model("a-1", "a", types.QualityStandard, `[]`)},
			"b": {model("b-1", "b", types.QualityStandard, `[]`), model("b-2", "b", types.QualityStandard, `[]`)},
		},
	}
	sel := New(src, zap.NewNop())

	chain, err := sel.Select("text-gen", types.RequestConstraints{
		PreferredProviderID: "b", PreferredModelID: "b-2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chain[0].Model.ID != "b-2" {
		t.Fatalf("expected preferred model first, got %+v", chain)
	}
}

func TestSelect_SkipsProviderOnModelFetchError(t *testing.T) {
	src := &fakeCatalog{
		providers: map[string][]catalog.RankedProvider{
			"text-gen": {rankedProvider("a", types.ProviderKindAPI)},
		},
		modelErr: errors.New("db unavailable"),
	}
	sel := New(src, zap.NewNop())

	chain, err := sel.Select("text-gen", types.RequestConstraints{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 0 {
		t.Fatalf("expected empty chain when model fetch fails, got %+v", chain)
	}
}
