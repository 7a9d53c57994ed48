package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/novaroute/router/types"
)

// CredentialSource answers whether a credential is available for a given
// provider, without the registry needing to know how secrets are stored.
// Grounded on spec.md §6 "Environment / credentials" and §4.1's
// getAvailableProviders eligibility rule.
type CredentialSource interface {
	// HasProviderKey reports whether the named secret (Provider.AuthSecretName)
	// resolves to a non-empty credential.
	HasProviderKey(secretName string) bool
	// HasGatewayToken reports whether a gateway bearer token is configured.
	HasGatewayToken() bool
	// HasLocalBaseURL reports whether a local provider's base URL is set.
	HasLocalBaseURL(providerID string) bool
}

// Registry is the catalog's read/mutate surface, per spec.md §4.1. All
// mutations are single atomic row updates; a persistence failure must not
// corrupt in-memory callers, so every mutation returns its error rather
// than panicking or caching a stale value.
type Registry struct {
	db     *gorm.DB
	creds  CredentialSource
	logger *zap.Logger

	builtins map[string]WorkflowSpec
}

// New constructs a Registry over an already-migrated *gorm.DB.
func New(db *gorm.DB, creds CredentialSource, logger *zap.Logger) *Registry {
	return &Registry{db: db, creds: creds, logger: logger, builtins: map[string]WorkflowSpec{}}
}

// RegisterBuiltinWorkflow adds an in-process workflow template that is not
// stored in rt_workflows, per spec.md §4.1 "built-in workflow templates
// (not stored)".
func (r *Registry) RegisterBuiltinWorkflow(spec WorkflowSpec) {
	r.builtins[spec.ID] = spec
}

// GetWorker looks up a worker by id.
func (r *Registry) GetWorker(id string) (*Worker, error) {
	var w Worker
	if err := r.db.First(&w, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("getWorker %s: %w", id, err)
	}
	return &w, nil
}

// GetProvider looks up a provider by id.
func (r *Registry) GetProvider(id string) (*Provider, error) {
	var p Provider
	if err := r.db.First(&p, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("getProvider %s: %w", id, err)
	}
	return &p, nil
}

// RankedProvider is a Provider with its effective worker-scoped priority
// applied (overrides global priority when set, per spec.md §3).
type RankedProvider struct {
	Provider
	EffectivePriority int
}

// GetProvidersForWorker returns providers eligible for workerId, ordered by
// effective priority ascending (lower = tried first), joining
// worker_providers to pick up the per-worker priority override.
func (r *Registry) GetProvidersForWorker(workerID string) ([]RankedProvider, error) {
	var rows []struct {
		Provider
		WPPriority *int
	}
	err := r.db.Table("rt_providers").
		Select("rt_providers.*, rt_worker_providers.priority as wp_priority").
		Joins("JOIN rt_worker_providers ON rt_worker_providers.provider_id = rt_providers.id").
		Where("rt_worker_providers.worker_id = ? AND rt_providers.enabled = ?", workerID, true).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("getProvidersForWorker %s: %w", workerID, err)
	}
	out := make([]RankedProvider, 0, len(rows))
	for _, row := range rows {
		prio := row.Provider.Priority
		if row.WPPriority != nil {
			prio = *row.WPPriority
		}
		out = append(out, RankedProvider{Provider: row.Provider, EffectivePriority: prio})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectivePriority < out[j].EffectivePriority
	})
	return out, nil
}

// GetModelsForProvider returns a provider's enabled models for a worker, in
// model priority order.
func (r *Registry) GetModelsForProvider(providerID, workerID string) ([]Model, error) {
	var models []Model
	err := r.db.Where("provider_id = ? AND worker_id = ? AND enabled = ?", providerID, workerID, true).
		Order("priority ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("getModelsForProvider %s/%s: %w", providerID, workerID, err)
	}
	return models, nil
}

// FindModelsByCapability returns models for workerID whose capability tag
// list is a superset of requiredTags.
func (r *Registry) FindModelsByCapability(workerID string, requiredTags []string) ([]Model, error) {
	var models []Model
	if err := r.db.Where("worker_id = ? AND enabled = ?", workerID, true).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("findModelsByCapability %s: %w", workerID, err)
	}
	out := models[:0]
	for _, m := range models {
		if m.HasAllCapabilities(requiredTags) {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetAvailableProviders returns providers for workerID that are enabled,
// not currently exhausted, and have a resolvable credential: a non-local
// provider is eligible if its own API key is present OR a gateway token is
// present (gateway BYOK); a local provider requires its base URL.
func (r *Registry) GetAvailableProviders(workerID string) ([]RankedProvider, error) {
	candidates, err := r.GetProvidersForWorker(workerID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := candidates[:0]
	for _, c := range candidates {
		status, err := r.getOrInitStatus(c.ID)
		if err != nil {
			r.logger.Warn("status lookup failed, treating provider as unavailable",
				zap.String("provider", c.ID), zap.Error(err))
			continue
		}
		if status.IsExhausted(now) {
			continue
		}
		if !r.hasCredential(c.Provider) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Registry) hasCredential(p Provider) bool {
	if p.Kind == types.ProviderKindLocal {
		return r.creds.HasLocalBaseURL(p.ID)
	}
	if r.creds.HasProviderKey(p.AuthSecretName) {
		return true
	}
	return r.creds.HasGatewayToken()
}

func (r *Registry) getOrInitStatus(providerID string) (*ProviderStatus, error) {
	var status ProviderStatus
	err := r.db.First(&status, "provider_id = ?", providerID).Error
	if err == gorm.ErrRecordNotFound {
		status = ProviderStatus{ProviderID: providerID, Healthy: true}
		if err := r.db.Create(&status).Error; err != nil {
			return nil, err
		}
		return &status, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// GetProviderStatus returns the current ProviderStatus row, initializing one
// if absent.
func (r *Registry) GetProviderStatus(providerID string) (*ProviderStatus, error) {
	return r.getOrInitStatus(providerID)
}

// MarkProviderExhausted sets marked_exhausted_until, per spec.md §4.1. The
// update is a single atomic row write.
func (r *Registry) MarkProviderExhausted(providerID string, until time.Time) error {
	err := r.db.Model(&ProviderStatus{}).Where("provider_id = ?", providerID).
		Updates(map[string]any{"marked_exhausted_until": until}).Error
	if err != nil {
		return fmt.Errorf("markProviderExhausted %s: %w", providerID, err)
	}
	return nil
}

// MarkProviderHealthy clears failure state, per invariant (iii): any
// success resets consecutive_failures to 0 and clears the exhaustion
// deadline.
func (r *Registry) MarkProviderHealthy(providerID string) error {
	now := time.Now()
	err := r.db.Model(&ProviderStatus{}).Where("provider_id = ?", providerID).
		Updates(map[string]any{
			"healthy":                true,
			"consecutive_failures":   0,
			"last_success_at":        now,
			"marked_exhausted_until": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("markProviderHealthy %s: %w", providerID, err)
	}
	return nil
}

// IncrementProviderFailures increments the consecutive-failure counter and,
// per invariant (ii), forces healthy=false once it reaches 5.
func (r *Registry) IncrementProviderFailures(providerID string) error {
	status, err := r.getOrInitStatus(providerID)
	if err != nil {
		return err
	}
	now := time.Now()
	next := status.ConsecutiveFailures + 1
	healthy := next < 5
	err = r.db.Model(&ProviderStatus{}).Where("provider_id = ?", providerID).
		Updates(map[string]any{
			"consecutive_failures": next,
			"last_failure_at":      now,
			"healthy":              healthy,
		}).Error
	if err != nil {
		return fmt.Errorf("incrementProviderFailures %s: %w", providerID, err)
	}
	return nil
}

// FindModelByModelID resolves a provider-native model id (as named in a
// code-execution waterfall, spec.md §4.8) to its Model row and owning
// Provider, used by the code-execution sub-workflow to dispatch a named
// model directly rather than through the Selector's ranked chain.
func (r *Registry) FindModelByModelID(modelID string) (*Model, *Provider, error) {
	var model Model
	if err := r.db.Where("model_id = ? AND enabled = ?", modelID, true).First(&model).Error; err != nil {
		return nil, nil, fmt.Errorf("findModelByModelID %s: %w", modelID, err)
	}
	provider, err := r.GetProvider(model.ProviderID)
	if err != nil {
		return nil, nil, err
	}
	return &model, provider, nil
}

// ModelExists reports whether modelID names an enabled model, satisfying
// waterfall.CatalogValidator.
func (r *Registry) ModelExists(modelID string) bool {
	_, _, err := r.FindModelByModelID(modelID)
	return err == nil
}

// SaveWorkflow persists a WorkflowSpec, round-trippable via LoadWorkflow.
func (r *Registry) SaveWorkflow(spec WorkflowSpec) error {
	body, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal workflow %s: %w", spec.ID, err)
	}
	row := WorkflowDefinition{ID: spec.ID, Name: spec.Name, Definition: string(body), UpdatedAt: time.Now()}
	return r.db.Save(&row).Error
}

// LoadWorkflow resolves a WorkflowSpec by id, checking built-ins first.
func (r *Registry) LoadWorkflow(id string) (*WorkflowSpec, error) {
	if spec, ok := r.builtins[id]; ok {
		cp := spec
		return &cp, nil
	}
	var row WorkflowDefinition
	if err := r.db.First(&row, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("loadWorkflow %s: %w", id, err)
	}
	var spec WorkflowSpec
	if err := json.Unmarshal([]byte(row.Definition), &spec); err != nil {
		return nil, fmt.Errorf("unmarshal workflow %s: %w", id, err)
	}
	return &spec, nil
}

// ListWorkflows returns every stored workflow id plus built-in ids.
func (r *Registry) ListWorkflows() ([]string, error) {
	var rows []WorkflowDefinition
	if err := r.db.Select("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows)+len(r.builtins))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	for id := range r.builtins {
		ids = append(ids, id)
	}
	return ids, nil
}
