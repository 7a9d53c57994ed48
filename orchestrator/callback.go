package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// CallbackPoster posts the completion envelope to the caller-supplied URL,
// per spec.md §4.10 step 6: best-effort, retried up to 3 times with
// exponential backoff, never affecting the outcome reported to the caller.
type CallbackPoster struct {
	client       *http.Client
	sharedSecret string
	maxRetries   int
	logger       *zap.Logger
}

// NewCallbackPoster constructs a CallbackPoster. maxRetries<=0 defaults to 3.
func NewCallbackPoster(client *http.Client, sharedSecret string, maxRetries int, logger *zap.Logger) *CallbackPoster {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &CallbackPoster{client: client, sharedSecret: sharedSecret, maxRetries: maxRetries, logger: logger}
}

// Post delivers env to url, retrying on transport error or non-2xx status.
// Errors are logged, never returned to the caller: callback delivery is
// best-effort per spec.md §7.
func (p *CallbackPoster) Post(ctx context.Context, url string, env CallbackEnvelope) {
	if url == "" {
		return
	}
	body, err := json.Marshal(env)
	if err != nil {
		p.logger.Warn("orchestrator: failed to marshal callback envelope", zap.Error(err))
		return
	}

	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			p.logger.Warn("orchestrator: failed to build callback request", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Passphrase", p.sharedSecret)

		resp, err := p.client.Do(req)
		if err != nil {
			p.logger.Info("orchestrator: callback attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return
		}
		p.logger.Info("orchestrator: callback non-2xx",
			zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
	}
	p.logger.Warn("orchestrator: callback exhausted retries", zap.String("url", url), zap.String("task_id", env.TaskID))
}
