// Package ideogram implements the router's Adapter contract for the
// Ideogram image-generation API, which authenticates via an "Api-Key"
// header rather than Bearer or x-api-key.
package ideogram

import (
	"bytes"
	"context"
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

const defaultBaseURL = "https://api.ideogram.ai"

// Config configures the adapter.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Adapter is the Ideogram provider adapter.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs the Ideogram adapter.
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

func (a *Adapter) ProviderID() string         { return "ideogram" }
func (a *Adapter) SupportedWorkers() []string { return []string{"image-gen"} }

type generateRequest struct {
	Prompt         string `json:"prompt"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	StyleType      string `json:"style_type,omitempty"`
	NumImages      int    `json:"num_images,omitempty"`
}

type imageDatum struct {
	URL string `json:"url"`
}

type generateResponse struct {
	Data []imageDatum `json:"data"`
}

func (a *Adapter) Execute(ctx context.Context, req adapters.ExecuteRequest) (types.MediaResult, error) {
	numImages := req.Options.NumImages
	if numImages == 0 {
		numImages = 1
	}
	body := generateRequest{
		Prompt:         req.Prompt,
		AspectRatio:    req.Options.AspectRatio,
		NegativePrompt: req.Options.NegativePrompt,
		StyleType:      req.Options.Style,
		NumImages:      numImages,
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("ideogram: marshal request: %w", err)
	}

	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/v1/ideogram-v3/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("ideogram: build request: %w", err)
	}
	httpReq.Header.Set("Api-Key", req.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("ideogram: network error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.MediaResult{}, fmt.Errorf("ideogram: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return types.MediaResult{}, fmt.Errorf("ideogram: status=%d body=decode error: %v", resp.StatusCode, err)
	}
	url2 := ""
	if len(parsed.Data) > 0 {
		url2 = parsed.Data[0].URL
	}
	return types.MediaResult{
		Worker:   "image-gen",
		Provider: a.ProviderID(),
		Model:    req.ModelID,
		URL:      url2,
		Width:    req.Options.Width,
		Height:   req.Options.Height,
	}, nil
}

func (a *Adapter) CheckHealth(ctx context.Context) adapters.HealthStatus {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/v1/ideogram-v3/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodOptions, url, nil)
	if err != nil {
		return adapters.HealthStatus{Healthy: false, Detail: err.Error()}
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return adapters.HealthStatus{Healthy: false, Detail: err.Error()}
	}
	defer resp.Body.Close()
	return adapters.HealthStatus{Healthy: resp.StatusCode < 500}
}
