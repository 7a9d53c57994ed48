// Package openai implements the router's Adapter contract for the OpenAI
// chat-completions API, grounded on the teacher's llm/providers/openai
// provider but reshaped to the MediaResult contract.
package openai

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

const defaultBaseURL = "https://api.openai.com"

// Config configures the adapter.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	GatewayBaseURL string
	// GatewayHeaderName carries the key on the gateway path in place of
	// Authorization (default "cf-aig-authorization").
	GatewayHeaderName string
}

// Adapter is the OpenAI provider adapter.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs the OpenAI adapter.
func New(cfg Config, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.GatewayHeaderName == "" {
		cfg.GatewayHeaderName = "cf-aig-authorization"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Adapter{cfg: cfg, client: &http.Client{Timeout: timeout}, logger: logger}
}

func (a *Adapter) ProviderID() string         { return "openai" }
func (a *Adapter) SupportedWorkers() []string { return []string{"text-gen", "embedding-gen"} }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type usage struct {
	TotalTokens int `json:"total_tokens"`
}

type choice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []choice `json:"choices"`
	Model   string   `json:"model"`
	Usage   *usage   `json:"usage,omitempty"`
}

func (a *Adapter) baseURL(req adapters.ExecuteRequest) string {
	if req.Gateway && a.cfg.GatewayBaseURL != "" {
		return strings.TrimRight(a.cfg.GatewayBaseURL, "/")
	}
	return strings.TrimRight(a.cfg.BaseURL, "/")
}

func (a *Adapter) Execute(ctx context.Context, req adapters.ExecuteRequest) (types.MediaResult, error) {
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
		TopP:        req.Options.TopP,
		Stop:        req.Options.StopSequences,
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	url := a.baseURL(req) + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("openai: build request: %w", err)
	}
	if req.Gateway && a.cfg.GatewayBaseURL != "" {
		httpReq.Header.Set(a.cfg.GatewayHeaderName, req.APIKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("openai: network error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.MediaResult{}, fmt.Errorf("openai: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return types.MediaResult{}, fmt.Errorf("openai: status=%d body=decode error: %v", resp.StatusCode, err)
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
	if resp.StatusCode != http.StatusOK {
		return adapters.HealthStatus{Healthy: false, Detail: fmt.Sprintf("status=%d", resp.StatusCode)}
	}
	return adapters.HealthStatus{Healthy: true}
}
