package types

// QualityTier orders model quality for min_quality constraint comparisons.
type QualityTier string

const (
	QualityDraft    QualityTier = "draft"
	QualityStandard QualityTier = "standard"
	QualityPremium  QualityTier = "premium"
)

var qualityRank = map[QualityTier]int{
	QualityDraft:    0,
	QualityStandard: 1,
	QualityPremium:  2,
}

// AtLeast reports whether q is ranked at or above min. Unknown tiers rank
// below everything.
func (q QualityTier) AtLeast(min QualityTier) bool {
	qr, ok := qualityRank[q]
	if !ok {
		return false
	}
	mr, ok := qualityRank[min]
	if !ok {
		return true
	}
	return qr >= mr
}

// SpeedTier is advisory metadata carried by a Model; the router does not
// constrain on it directly today but it is surfaced to callers.
type SpeedTier string

const (
	SpeedFast   SpeedTier = "fast"
	SpeedMedium SpeedTier = "medium"
	SpeedSlow   SpeedTier = "slow"
)

// ProviderKind distinguishes how a provider is reached.
type ProviderKind string

const (
	ProviderKindAPI     ProviderKind = "api"
	ProviderKindLocal   ProviderKind = "local"
	ProviderKindGateway ProviderKind = "gateway"
)

// AuthShape names where a provider expects its credential.
type AuthShape string

const (
	AuthBearer AuthShape = "bearer"
	AuthAPIKey AuthShape = "api_key"
	AuthNone   AuthShape = "none"
)

// RoutingTier is the caller-supplied or classifier-derived tier for a text
// request.
type RoutingTier string

const (
	RoutingAuto     RoutingTier = "auto"
	RoutingTextOnly RoutingTier = "text-only"
	RoutingCode     RoutingTier = "code"
)

// RequestConstraints narrows the Selector's candidate chain. Zero value
// means "no constraint" for every field.
type RequestConstraints struct {
	MaxCostCents        float64      `json:"max_cost_cents,omitempty"`
	MaxLatencyMs        int64        `json:"max_latency_ms,omitempty"`
	MinQuality          QualityTier  `json:"min_quality,omitempty"`
	RequireLocal        bool         `json:"require_local,omitempty"`
	RequireCapabilities []string     `json:"require_capabilities,omitempty"`
	ExcludeProviders    []string     `json:"exclude_providers,omitempty"`
	PreferredProviderID string       `json:"preferred_provider_id,omitempty"`
	PreferredModelID    string       `json:"preferred_model_id,omitempty"`
}

// Merge overlays step-level constraints on top of the receiver (workflow
// global constraints), per spec.md §4.9 step 2: "step wins on conflict".
func (c RequestConstraints) Merge(step RequestConstraints) RequestConstraints {
	merged := c
	if step.MaxCostCents != 0 {
		merged.MaxCostCents = step.MaxCostCents
	}
	if step.MaxLatencyMs != 0 {
		merged.MaxLatencyMs = step.MaxLatencyMs
	}
	if step.MinQuality != "" {
		merged.MinQuality = step.MinQuality
	}
	if step.RequireLocal {
		merged.RequireLocal = true
	}
	if len(step.RequireCapabilities) > 0 {
		merged.RequireCapabilities = step.RequireCapabilities
	}
	if len(step.ExcludeProviders) > 0 {
		merged.ExcludeProviders = step.ExcludeProviders
	}
	if step.PreferredProviderID != "" {
		merged.PreferredProviderID = step.PreferredProviderID
	}
	if step.PreferredModelID != "" {
		merged.PreferredModelID = step.PreferredModelID
	}
	return merged
}

// MediaOptions is a worker-tagged option bag. Only the fields relevant to
// the target worker are read by adapters; the rest are ignored rather than
// rejected.
type MediaOptions struct {
	// text
	SystemPrompt   string      `json:"system_prompt,omitempty"`
	MaxTokens      int         `json:"max_tokens,omitempty"`
	Temperature    float64     `json:"temperature,omitempty"`
	TopP           float64     `json:"top_p,omitempty"`
	StopSequences  []string    `json:"stop_sequences,omitempty"`
	TaskType       string      `json:"task_type,omitempty"`
	RoutingTier    RoutingTier `json:"routing_tier,omitempty"`

	// image
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	AspectRatio    string  `json:"aspect_ratio,omitempty"`
	Style          string  `json:"style,omitempty"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	NumImages      int     `json:"num_images,omitempty"`

	// audio
	VoiceID          string  `json:"voice_id,omitempty"`
	Speed            float64 `json:"speed,omitempty"`
	Stability        float64 `json:"stability,omitempty"`
	SimilarityBoost  float64 `json:"similarity_boost,omitempty"`
	OutputFormat     string  `json:"output_format,omitempty"`

	// video (AspectRatio above applies to video too)
	Duration   float64 `json:"duration,omitempty"`
	FPS        int     `json:"fps,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
}

// MediaResult is a tagged union over worker kind. Only the fields relevant
// to Worker are populated; Provider and Model are always set.
type MediaResult struct {
	Worker   string `json:"worker"`
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// text
	Text       string `json:"text,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`

	// image / audio / video
	URL        string `json:"url,omitempty"`
	Base64     string `json:"base64,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// StepMeta is per-step execution metadata attached to a RouterResponse.
type StepMeta struct {
	Provider        string  `json:"provider,omitempty"`
	Model           string  `json:"model,omitempty"`
	LatencyMs       int64   `json:"latency_ms"`
	TokensUsed      int     `json:"tokens_used,omitempty"`
	CostCents       float64 `json:"cost_cents,omitempty"`
	AttemptedProviders []string `json:"attempted_providers,omitempty"`
}

// RouterResponse is the envelope returned by the Simple Router and the
// Workflow Engine.
type RouterResponse struct {
	Success        bool                   `json:"success"`
	Results        map[string]MediaResult `json:"results,omitempty"`
	PartialResults map[string]MediaResult `json:"partial_results,omitempty"`
	Error          string                 `json:"error,omitempty"`
	ErrorCode      ErrorCode              `json:"error_code,omitempty"`
	Meta           map[string]StepMeta    `json:"meta,omitempty"`
}
