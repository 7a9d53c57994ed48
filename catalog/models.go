// Package catalog persists and queries the provider/model catalog: workers,
// providers, models, the worker-provider priority overlay, per-provider
// health state, and stored workflow definitions.
package catalog

import (
	"encoding/json"
	"time"

	"github.com/novaroute/router/types"
)

// Worker is a logical capability domain (text-gen, image-gen, ...).
// Static, loaded at process start.
type Worker struct {
	ID         string    `gorm:"primaryKey;size:64"`
	Name       string    `gorm:"size:128"`
	MediaTypes string    `gorm:"column:media_types;type:text"` // JSON array
	Enabled    bool      `gorm:"default:true"`
	CreatedAt  time.Time
}

func (Worker) TableName() string { return "rt_workers" }

// Provider is a remote or local generation service.
type Provider struct {
	ID              string             `gorm:"primaryKey;size:64"`
	Name            string             `gorm:"size:128"`
	Kind            types.ProviderKind `gorm:"column:type;size:16"`
	BaseEndpoint    string             `gorm:"column:base_endpoint;size:512"`
	AuthType        types.AuthShape    `gorm:"column:auth_type;size:16"`
	AuthSecretName  string             `gorm:"column:auth_secret_name;size:128"`
	Priority        int                `gorm:"default:0"`
	Enabled         bool               `gorm:"default:true"`
	RateLimitRPM    int                `gorm:"column:rate_limit_rpm"`
	DailyQuota      int                `gorm:"column:daily_quota"`
	CreatedAt       time.Time
}

func (Provider) TableName() string { return "rt_providers" }

// Model is a specific model exposed by a provider for a worker.
type Model struct {
	ID               string  `gorm:"primaryKey;size:64"`
	ProviderID       string  `gorm:"column:provider_id;size:64;index"`
	ModelID          string  `gorm:"column:model_id;size:128"` // provider-native model id
	WorkerID         string  `gorm:"column:worker_id;size:64;index"`
	Capabilities     string  `gorm:"type:text"` // JSON array of tags
	ContextWindow    int     `gorm:"column:context_window"`
	CostInputPer1k   float64 `gorm:"column:cost_input_per_1k"`
	CostOutputPer1k  float64 `gorm:"column:cost_output_per_1k"`
	QualityTier      types.QualityTier `gorm:"column:quality_tier;size:16"`
	SpeedTier        types.SpeedTier   `gorm:"column:speed_tier;size:16"`
	Priority         int     `gorm:"default:0"`
	Enabled          bool    `gorm:"default:true"`
}

func (Model) TableName() string { return "rt_models" }

// CapabilityTags parses the JSON capability list.
func (m Model) CapabilityTags() []string {
	var tags []string
	_ = json.Unmarshal([]byte(m.Capabilities), &tags)
	return tags
}

// HasAllCapabilities reports whether every tag in required is present.
func (m Model) HasAllCapabilities(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(m.Capabilities))
	for _, t := range m.CapabilityTags() {
		have[t] = struct{}{}
	}
	for _, t := range required {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}

// WorkerProvider overlays a per-worker priority on top of a provider's
// global priority.
type WorkerProvider struct {
	WorkerID   string `gorm:"column:worker_id;primaryKey;size:64"`
	ProviderID string `gorm:"column:provider_id;primaryKey;size:64"`
	Priority   int    `gorm:"default:0"`
}

func (WorkerProvider) TableName() string { return "rt_worker_providers" }

// ProviderStatus is mutable per-provider health state. See spec.md §3
// invariants: consecutive_failures>=5 forces healthy=false; any success
// resets the counter and clears the exhaustion deadline; a future
// marked_exhausted_until makes the provider ineligible.
type ProviderStatus struct {
	ProviderID           string     `gorm:"column:provider_id;primaryKey;size:64"`
	Healthy              bool       `gorm:"default:true"`
	LastSuccessAt        *time.Time `gorm:"column:last_success_at"`
	LastFailureAt        *time.Time `gorm:"column:last_failure_at"`
	ConsecutiveFailures  int        `gorm:"column:consecutive_failures;default:0"`
	QuotaUsedToday       int        `gorm:"column:quota_used_today;default:0"`
	QuotaResetsAt        *time.Time `gorm:"column:quota_resets_at"`
	MarkedExhaustedUntil *time.Time `gorm:"column:marked_exhausted_until"`
}

func (ProviderStatus) TableName() string { return "rt_provider_status" }

// IsExhausted reports whether the provider is currently under a quota
// cooldown, evaluated against now.
func (s ProviderStatus) IsExhausted(now time.Time) bool {
	return s.MarkedExhaustedUntil != nil && s.MarkedExhaustedUntil.After(now)
}

// WorkflowDefinition is a stored DAG of steps.
type WorkflowDefinition struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:128"`
	Description string `gorm:"type:text"`
	Definition  string `gorm:"type:text"` // JSON-encoded WorkflowSpec
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (WorkflowDefinition) TableName() string { return "rt_workflows" }

// WorkflowSpec is the decoded form of WorkflowDefinition.Definition.
type WorkflowSpec struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Steps          []WorkflowStep  `json:"steps"`
	ParallelGroups [][]string      `json:"parallel_groups,omitempty"`
}

// WorkflowStep is one node of a WorkflowSpec.
type WorkflowStep struct {
	ID              string                     `json:"id"`
	Worker          string                     `json:"worker"`
	PromptTemplate  string                     `json:"prompt_template"`
	OutputKey       string                     `json:"output_key"`
	InputFrom       string                     `json:"input_from,omitempty"` // "request" or "step:<id>"
	Constraints     *types.RequestConstraints  `json:"constraints,omitempty"`
	Options         *types.MediaOptions        `json:"options,omitempty"`
}

// AllModels returns every GORM model this package owns, for AutoMigrate.
func AllModels() []any {
	return []any{
		&Worker{}, &Provider{}, &Model{}, &WorkerProvider{},
		&ProviderStatus{}, &WorkflowDefinition{},
	}
}
