// Package anthropic implements the router's Adapter contract for the
// Anthropic Messages API, grounded on the teacher's providers/anthropic
// ClaudeProvider but reshaped to emit types.MediaResult and a plain error
// string (status+body) for the health taxonomy to classify, rather than
// pre-classified *types.Error values — per spec.md §4.3's "surfaced as an
// error whose message includes the numeric status and the response body".
package anthropic

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

const defaultBaseURL = "https://api.anthropic.com"
const anthropicVersion = "2023-06-01"

// Config configures the adapter at construction time.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// GatewayBaseURL, when set, is used instead of BaseURL and the auth
	// header becomes the gateway bearer header, per spec.md §4.3 "Gateway
	// routing": the provider's API shape is unchanged.
	GatewayBaseURL     string
	GatewayHeaderName  string // default "cf-aig-authorization"
}

// Adapter is the Anthropic provider adapter.
type Adapter struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New constructs the Anthropic adapter.
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

func (a *Adapter) ProviderID() string          { return "anthropic" }
func (a *Adapter) SupportedWorkers() []string  { return []string{"text-gen"} }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	StopSeq     []string      `json:"stop_sequences,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatResponse struct {
	Content []contentBlock `json:"content"`
	Model   string         `json:"model"`
	Usage   *usage         `json:"usage,omitempty"`
}

func (a *Adapter) endpointAndAuth(req adapters.ExecuteRequest) (url string, headerName, headerValue string) {
	if req.Gateway && a.cfg.GatewayBaseURL != "" {
		return strings.TrimRight(a.cfg.GatewayBaseURL, "/") + "/v1/messages", a.cfg.GatewayHeaderName, req.APIKey
	}
	return strings.TrimRight(a.cfg.BaseURL, "/") + "/v1/messages", "x-api-key", req.APIKey
}

func (a *Adapter) Execute(ctx context.Context, req adapters.ExecuteRequest) (types.MediaResult, error) {
	maxTokens := req.Options.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	body := chatRequest{
		Model:       req.ModelID,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		System:      req.Options.SystemPrompt,
		MaxTokens:   maxTokens,
		Temperature: req.Options.Temperature,
		TopP:        req.Options.TopP,
		StopSeq:     req.Options.StopSequences,
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	url, headerName, headerValue := a.endpointAndAuth(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("anthropic: build request: %w", err)
	}
	httpReq.Header.Set(headerName, headerValue)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return types.MediaResult{}, fmt.Errorf("anthropic: network error: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.MediaResult{}, fmt.Errorf("anthropic: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return types.MediaResult{}, fmt.Errorf("anthropic: status=%d body=decode error: %v", resp.StatusCode, err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	tokens := 0
	if parsed.Usage != nil {
		tokens = parsed.Usage.InputTokens + parsed.Usage.OutputTokens
	}
	return types.MediaResult{
		Worker:     "text-gen",
		Provider:   a.ProviderID(),
		Model:      req.ModelID,
		Text:       text.String(),
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
