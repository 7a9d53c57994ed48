// Package replicate implements the router's Adapter contract for
// Replicate-style asynchronous prediction APIs, per spec.md §4.3:
// "Adapters MAY additionally support asynchronous remote jobs... execute
// performs create-prediction and then polls the provider's status URL at
// 1-second intervals until status is succeeded, failed, or canceled,
// respecting a per-call timeout (default 60s for images, 300s for video)".
package replicate

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

const defaultBaseURL = "https://api.replicate.com"
const pollInterval = 1 * time.Second

// Config configures the adapter. Worker selects between the image and
// video per-call timeout defaults.
type Config struct {
	BaseURL      string
	ImageTimeout time.Duration // default 60s
	VideoTimeout time.Duration // default 300s
}

// Adapter is the Replicate provider adapter.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs the Replicate adapter.
func New(cfg Config, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ImageTimeout == 0 {
		cfg.ImageTimeout = 60 * time.Second
	}
	if cfg.VideoTimeout == 0 {
		cfg.VideoTimeout = 300 * time.Second
	}
	return &Adapter{cfg: cfg, client: &http.Client{}, logger: logger}
}

func (a *Adapter) ProviderID() string         { return "replicate" }
func (a *Adapter) SupportedWorkers() []string { return []string{"image-gen", "video-gen"} }

type createPredictionRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"` // starting, processing, succeeded, failed, canceled
	Output json.RawMessage `json:"output"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
	Error string `json:"error"`
}

func (a *Adapter) Execute(ctx context.Context, req adapters.ExecuteRequest) (types.MediaResult, error) {
	timeout := a.cfg.ImageTimeout
	if req.Worker == "video-gen" {
		timeout = a.cfg.VideoTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	input := map[string]any{"prompt": req.Prompt}
	if req.Worker == "image-gen" {
		if req.Options.Width > 0 {
			input["width"] = req.Options.Width
		}
		if req.Options.Height > 0 {
			input["height"] = req.Options.Height
		}
		if req.Options.NegativePrompt != "" {
			input["negative_prompt"] = req.Options.NegativePrompt
		}
	} else {
		if req.Options.Duration > 0 {
			input["duration"] = req.Options.Duration
		}
		if req.Options.FPS > 0 {
			input["fps"] = req.Options.FPS
		}
	}

	pred, err := a.createPrediction(callCtx, req.ModelID, req.APIKey, input)
	if err != nil {
		return types.MediaResult{}, err
	}

	start := time.Now()
	for {
		if pred.Status == "succeeded" {
			break
		}
		if pred.Status == "failed" || pred.Status == "canceled" {
			return types.MediaResult{}, fmt.Errorf("replicate: status=failed body=%s", pred.Error)
		}
		select {
		case <-callCtx.Done():
			return types.MediaResult{}, fmt.Errorf("replicate: status=timeout body=prediction %s did not complete within %s", pred.ID, timeout)
		case <-time.After(pollInterval):
		}
		pred, err = a.pollPrediction(callCtx, pred.ID, req.APIKey)
		if err != nil {
			return types.MediaResult{}, err
		}
	}

	url := extractURL(pred.Output)
	durationMs := time.Since(start).Milliseconds()
	return types.MediaResult{
		Worker:     req.Worker,
		Provider:   a.ProviderID(),
		Model:      req.ModelID,
		URL:        url,
		DurationMs: durationMs,
	}, nil
}

func extractURL(raw json.RawMessage) string {
	var asString string
	if json.Unmarshal(raw, &asString) == nil {
		return asString
	}
	var asSlice []string
	if json.Unmarshal(raw, &asSlice) == nil && len(asSlice) > 0 {
		return asSlice[0]
	}
	return ""
}

func (a *Adapter) createPrediction(ctx context.Context, version, apiKey string, input map[string]any) (*prediction, error) {
	body := createPredictionRequest{Version: version, Input: input}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("replicate: marshal request: %w", err)
	}
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/v1/predictions"
	return a.doPredictionRequest(ctx, http.MethodPost, url, apiKey, encoded)
}

func (a *Adapter) pollPrediction(ctx context.Context, id, apiKey string) (*prediction, error) {
	url := fmt.Sprintf("%s/v1/predictions/%s", strings.TrimRight(a.cfg.BaseURL, "/"), id)
	return a.doPredictionRequest(ctx, http.MethodGet, url, apiKey, nil)
}

func (a *Adapter) doPredictionRequest(ctx context.Context, method, url, apiKey string, body []byte) (*prediction, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("replicate: network error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("replicate: status=%d body=%s", resp.StatusCode, string(respBody))
	}
	var pred prediction
	if err := json.Unmarshal(respBody, &pred); err != nil {
		return nil, fmt.Errorf("replicate: status=%d body=decode error: %v", resp.StatusCode, err)
	}
	return &pred, nil
}

func (a *Adapter) CheckHealth(ctx context.Context) adapters.HealthStatus {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/v1/account"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
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
