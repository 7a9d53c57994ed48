// Package gateway implements the router's Adapter contract for a
// task-runner tunnel: a `kind=gateway` provider that proxies to a
// CF-Access-protected code-execution runner rather than a generation API.
// It exists to exercise the `gateway` provider kind and the CF-Access
// service-token credential named in spec.md §6.
package gateway

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

// Config configures the adapter.
type Config struct {
	BaseURL          string // the tunnel endpoint
	CFAccessClientID string
	CFAccessSecret   string
	Timeout          time.Duration
}

// Adapter tunnels a text-gen (code-execution) request to a remote runner
// behind Cloudflare Access.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs the gateway/task-runner adapter.
func New(cfg Config, logger *zap.Logger) *Adapter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second
	}
	return &Adapter{cfg: cfg, client: &http.Client{Timeout: timeout}, logger: logger}
}

func (a *Adapter) ProviderID() string         { return "task-runner" }
func (a *Adapter) SupportedWorkers() []string { return []string{"text-gen"} }

type runRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

type runResponse struct {
	Output     string `json:"output"`
	TokensUsed int    `json:"tokens_used"`
}

func (a *Adapter) Execute(ctx context.Context, req adapters.ExecuteRequest) (types.MediaResult, error) {
	body := runRequest{Prompt: req.Prompt, Model: req.ModelID}
	encoded, err := json.Marshal(body)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("task-runner: marshal request: %w", err)
	}

	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/run"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("task-runner: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.cfg.CFAccessClientID != "" {
		httpReq.Header.Set("CF-Access-Client-Id", a.cfg.CFAccessClientID)
		httpReq.Header.Set("CF-Access-Client-Secret", a.cfg.CFAccessSecret)
	}
	if req.Gateway {
		httpReq.Header.Set("cf-aig-authorization", req.APIKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("task-runner: network error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.MediaResult{}, fmt.Errorf("task-runner: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var parsed runResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return types.MediaResult{}, fmt.Errorf("task-runner: status=%d body=decode error: %v", resp.StatusCode, err)
	}
	return types.MediaResult{
		Worker:     "text-gen",
		Provider:   a.ProviderID(),
		Model:      req.ModelID,
		Text:       parsed.Output,
		TokensUsed: parsed.TokensUsed,
	}, nil
}

func (a *Adapter) CheckHealth(ctx context.Context) adapters.HealthStatus {
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/healthz"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return adapters.HealthStatus{Healthy: false, Detail: err.Error()}
	}
	if a.cfg.CFAccessClientID != "" {
		httpReq.Header.Set("CF-Access-Client-Id", a.cfg.CFAccessClientID)
		httpReq.Header.Set("CF-Access-Client-Secret", a.cfg.CFAccessSecret)
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return adapters.HealthStatus{Healthy: false, Detail: err.Error()}
	}
	defer resp.Body.Close()
	return adapters.HealthStatus{Healthy: resp.StatusCode == http.StatusOK}
}
