// Package classifier implements the Text-Only Tier Classifier of
// spec.md §4.7: classifies a text request into "text-only" (fast, cheap,
// bypasses the full chain) or "code" (needs the full chain).
package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/novaroute/router/types"
)

var textOnlyTaskTags = []string{"classify", "summarize", "extract", "translate", "json"}
var codeTaskTags = []string{"code", "implement", "debug", "refactor"}

var (
	fencedCodeBlockPattern = regexp.MustCompile("```")
	funcOrClassDeclPattern = regexp.MustCompile(`(?m)^\s*(func|class|def|public\s+class|void|private|protected)\s+\w+`)
	writeCodeVerbPattern   = regexp.MustCompile(`(?i)\b(write|generate|implement)\s+(a\s+)?(function|class|script|program|code)\b`)
	classifierVerbPattern  = regexp.MustCompile(`(?i)\b(classify|summariz|extract|translate|what is|explain)\b`)
)

// QueueStats is the decoded shape of the external queue-service response,
// per spec.md §6: {by_executor: {"claude-code": {queued, claimed, dispatched}}}.
type QueueStats struct {
	ByExecutor map[string]struct {
		Queued     int `json:"queued"`
		Claimed    int `json:"claimed"`
		Dispatched int `json:"dispatched"`
	} `json:"by_executor"`
}

// QueueProbe fetches current queue depth for the claude-code executor.
// Implementations must treat fetch failures as "not congested" per
// spec.md §6.
type QueueProbe interface {
	Depth(ctx context.Context) (int, error)
}

// HTTPQueueProbe calls GET <baseURL>/api/queue/stats.
type HTTPQueueProbe struct {
	BaseURL string
	Client  *http.Client
}

// Depth implements QueueProbe.
func (p *HTTPQueueProbe) Depth(ctx context.Context) (int, error) {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(p.BaseURL, "/")+"/api/queue/stats", nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errStatus(resp.StatusCode)
	}
	var stats QueueStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return 0, err
	}
	exec, ok := stats.ByExecutor["claude-code"]
	if !ok {
		return 0, nil
	}
	return exec.Queued + exec.Claimed + exec.Dispatched, nil
}

// Classifier decides routing tier for a text request.
type Classifier struct {
	probe     QueueProbe
	threshold int
	logger    *zap.Logger
}

// New constructs a Classifier. threshold is the queue-depth congestion
// bypass threshold (spec.md §4.7, configurable via RouterConfig).
func New(probe QueueProbe, threshold int, logger *zap.Logger) *Classifier {
	return &Classifier{probe: probe, threshold: threshold, logger: logger}
}

// Classify implements spec.md §4.7's decision order.
func (c *Classifier) Classify(ctx context.Context, prompt string, options types.MediaOptions) types.RoutingTier {
	if options.RoutingTier != "" && options.RoutingTier != types.RoutingAuto {
		return options.RoutingTier
	}

	if tier, ok := classifyByTaskType(options.TaskType); ok {
		return c.applyQueueOverride(ctx, tier)
	}

	if tier, ok := classifyByHeuristic(prompt); ok {
		return c.applyQueueOverride(ctx, tier)
	}

	return c.applyQueueOverride(ctx, types.RoutingCode)
}

func classifyByTaskType(taskType string) (types.RoutingTier, bool) {
	if taskType == "" {
		return "", false
	}
	lower := strings.ToLower(taskType)
	for _, tag := range textOnlyTaskTags {
		if strings.Contains(lower, tag) {
			return types.RoutingTextOnly, true
		}
	}
	for _, tag := range codeTaskTags {
		if strings.Contains(lower, tag) {
			return types.RoutingCode, true
		}
	}
	return "", false
}

func classifyByHeuristic(prompt string) (types.RoutingTier, bool) {
	if fencedCodeBlockPattern.MatchString(prompt) || funcOrClassDeclPattern.MatchString(prompt) || writeCodeVerbPattern.MatchString(prompt) {
		return types.RoutingCode, true
	}
	if classifierVerbPattern.MatchString(prompt) {
		return types.RoutingTextOnly, true
	}
	return "", false
}

// applyQueueOverride implements the "Queue-aware override" of spec.md
// §4.7: before choosing code, check congestion and demote if needed.
func (c *Classifier) applyQueueOverride(ctx context.Context, tier types.RoutingTier) types.RoutingTier {
	if tier != types.RoutingCode || c.probe == nil {
		return tier
	}
	depth, err := c.probe.Depth(ctx)
	if err != nil {
		c.logger.Debug("classifier: queue probe failed, treating as not congested", zap.Error(err))
		return tier
	}
	if depth >= c.threshold {
		c.logger.Info("classifier: demoting to text-only due to queue congestion",
			zap.Int("depth", depth), zap.Int("threshold", c.threshold))
		return types.RoutingTextOnly
	}
	return tier
}

type statusError int

func (e statusError) Error() string { return "unexpected queue-service status" }
func errStatus(code int) error      { return statusError(code) }
