// Package elevenlabs implements the router's Adapter contract for the
// ElevenLabs text-to-speech API, which authenticates via the "xi-api-key"
// header and returns raw audio bytes rather than JSON.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/novaroute/router/adapters"
	"github.com/novaroute/router/types"
)

const defaultBaseURL = "https://api.elevenlabs.io"
const defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// Config configures the adapter.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Adapter is the ElevenLabs provider adapter.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs the ElevenLabs adapter.
func New(cfg Config, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Adapter{cfg: cfg, client: &http.Client{Timeout: timeout}, logger: logger}
}

func (a *Adapter) ProviderID() string         { return "elevenlabs" }
func (a *Adapter) SupportedWorkers() []string { return []string{"audio-gen"} }

type ttsVoiceSettings struct {
	Stability       float64 `json:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarity_boost,omitempty"`
}

type ttsRequest struct {
	Text          string           `json:"text"`
	VoiceSettings ttsVoiceSettings `json:"voice_settings,omitempty"`
}

func (a *Adapter) Execute(ctx context.Context, req adapters.ExecuteRequest) (types.MediaResult, error) {
	voiceID := req.Options.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	body := ttsRequest{
		Text: req.Prompt,
		VoiceSettings: ttsVoiceSettings{
			Stability:       req.Options.Stability,
			SimilarityBoost: req.Options.SimilarityBoost,
		},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", strings.TrimRight(a.cfg.BaseURL, "/"), voiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", req.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	outputFormat := req.Options.OutputFormat
	if outputFormat == "" {
		outputFormat = "audio/mpeg"
	}
	httpReq.Header.Set("Accept", outputFormat)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("elevenlabs: network error: %w", err)
	}
	defer resp.Body.Close()

	audioBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.MediaResult{}, fmt.Errorf("elevenlabs: status=%d body=%s", resp.StatusCode, string(audioBytes))
	}

	return types.MediaResult{
		Worker:   "audio-gen",
		Provider: a.ProviderID(),
		Model:    req.ModelID,
		Base64:   base64.StdEncoding.EncodeToString(audioBytes),
	}, nil
}

func (a *Adapter) CheckHealth(ctx context.Context) adapters.HealthStatus {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/v1/voices"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return adapters.HealthStatus{Healthy: false, Detail: err.Error()}
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return adapters.HealthStatus{Healthy: false, Detail: err.Error()}
	}
	defer resp.Body.Close()
	return adapters.HealthStatus{Healthy: resp.StatusCode == http.StatusOK}
}
