// Package vllmlocal implements the router's Adapter contract for an
// on-prem OpenAI-compatible vLLM inference server. It is a `kind=local`
// provider (spec.md §3): no credential is required, only a base URL, and
// CheckHealth/Execute hit that URL directly rather than a public endpoint.
package vllmlocal

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
	BaseURL string // required; e.g. http://gpu-box.internal:8000
	Timeout time.Duration
}

// Adapter is the local vLLM-compatible provider adapter.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs the adapter. BaseURL must be non-empty for the provider to
// ever be eligible (see catalog.Registry.hasCredential's local-provider
// path), but that is checked by the Registry, not here.
func New(cfg Config, logger *zap.Logger) *Adapter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Adapter{cfg: cfg, client: &http.Client{Timeout: timeout}, logger: logger}
}

func (a *Adapter) ProviderID() string         { return "vllm-local" }
func (a *Adapter) SupportedWorkers() []string { return []string{"text-gen"} }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type usage struct {
	TotalTokens int `json:"total_tokens"`
}

type choice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

func (a *Adapter) Execute(ctx context.Context, req adapters.ExecuteRequest) (types.MediaResult, error) {
	if a.cfg.BaseURL == "" {
		return types.MediaResult{}, fmt.Errorf("vllm-local: base URL not configured")
	}
	messages := []chatMessage{}
	if req.Options.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.Options.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       req.ModelID,
		Messages:    messages,
		MaxTokens:   req.Options.MaxTokens,
		Temperature: req.Options.Temperature,
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("vllm-local: marshal request: %w", err)
	}

	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("vllm-local: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("vllm-local: network error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.MediaResult{}, fmt.Errorf("vllm-local: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return types.MediaResult{}, fmt.Errorf("vllm-local: status=%d body=decode error: %v", resp.StatusCode, err)
	}
	text := ""
	if len(parsed.Choices) > 0 {
		text = parsed.Choices[0].Message.Content
	}
	tokens := 0
	if parsed.Usage != nil {
		tokens = parsed.Usage.TotalTokens
	}
	return types.MediaResult{
		Worker:     "text-gen",
		Provider:   a.ProviderID(),
		Model:      req.ModelID,
		Text:       text,
		TokensUsed: tokens,
	}, nil
}

func (a *Adapter) CheckHealth(ctx context.Context) adapters.HealthStatus {
	if a.cfg.BaseURL == "" {
		return adapters.HealthStatus{Healthy: false, Detail: "base URL not configured"}
	}
	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/v1/models"
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
