// Package credentials resolves the environment/credential identifiers
// named in spec.md §6: per-provider API keys, local base URLs, the
// optional AI-gateway bearer, and CF-Access service tokens. It implements
// catalog.CredentialSource and is also consulted directly by the Simple
// Router to pick the actual key value to hand an adapter.
package credentials

import (
	"strings"

	"github.com/novaroute/router/config"
)

// Store holds resolved credential values, populated at startup from
// RouterConfig (see config.RouterConfig) — itself populated from the
// environment via the teacher's config.Loader reflection-based env
// override.
type Store struct {
	providerKeys   map[string]string // secret name -> value
	localBaseURLs  map[string]string // provider id -> base URL
	gatewayToken   string
	cfAccessID     string
	cfAccessSecret string
}

// NewStore constructs a Store. Nil maps are treated as empty.
func NewStore(providerKeys, localBaseURLs map[string]string, gatewayToken, cfAccessID, cfAccessSecret string) *Store {
	if providerKeys == nil {
		providerKeys = map[string]string{}
	}
	if localBaseURLs == nil {
		localBaseURLs = map[string]string{}
	}
	return &Store{
		providerKeys:   providerKeys,
		localBaseURLs:  localBaseURLs,
		gatewayToken:   gatewayToken,
		cfAccessID:     cfAccessID,
		cfAccessSecret: cfAccessSecret,
	}
}

// HasProviderKey implements catalog.CredentialSource.
func (s *Store) HasProviderKey(secretName string) bool {
	return strings.TrimSpace(s.providerKeys[secretName]) != ""
}

// HasGatewayToken implements catalog.CredentialSource.
func (s *Store) HasGatewayToken() bool {
	return strings.TrimSpace(s.gatewayToken) != ""
}

// HasLocalBaseURL implements catalog.CredentialSource.
func (s *Store) HasLocalBaseURL(providerID string) bool {
	return strings.TrimSpace(s.localBaseURLs[providerID]) != ""
}

// ProviderKey returns the raw credential value for a secret name.
func (s *Store) ProviderKey(secretName string) string {
	return s.providerKeys[secretName]
}

// GatewayToken returns the configured gateway bearer token, if any.
func (s *Store) GatewayToken() string {
	return s.gatewayToken
}

// LocalBaseURL returns the configured base URL for a local provider id.
func (s *Store) LocalBaseURL(providerID string) string {
	return s.localBaseURLs[providerID]
}

// FromRouterConfig builds a Store from config.RouterConfig, keying
// providerKeys by the same names providers reference via AuthSecretName and
// localBaseURLs by the provider id adapters register under.
func FromRouterConfig(cfg config.RouterConfig) *Store {
	providerKeys := map[string]string{
		"ANTHROPIC_API_KEY":  cfg.AnthropicAPIKey,
		"OPENAI_API_KEY":     cfg.OpenAIAPIKey,
		"GOOGLE_API_KEY":     cfg.GoogleAPIKey,
		"IDEOGRAM_API_KEY":   cfg.IdeogramAPIKey,
		"ELEVENLABS_API_KEY": cfg.ElevenLabsAPIKey,
		"REPLICATE_API_KEY":  cfg.ReplicateAPIKey,
		"ZAI_API_KEY":        cfg.ZAIAPIKey,
	}
	localBaseURLs := map[string]string{
		"vllm-local":  cfg.VLLMBaseURL,
		"task-runner": cfg.TaskRunnerBaseURL,
	}
	return NewStore(providerKeys, localBaseURLs, cfg.GatewayToken, cfg.CFAccessClientID, cfg.CFAccessClientSecret)
}

// Resolved is the credential the Simple Router selected for one attempt.
type Resolved struct {
	Value   string
	Gateway bool // true if Value is the gateway bearer token
}

// Resolve picks the credential for a provider attempt: an explicit
// per-provider key takes precedence over the gateway token.
// ResolveGatewayPreferred is the variant that prefers the gateway token for
// providers the gateway supports.
func (s *Store) Resolve(secretName string) (Resolved, bool) {
	if v := s.providerKeys[secretName]; strings.TrimSpace(v) != "" {
		return Resolved{Value: v}, true
	}
	if strings.TrimSpace(s.gatewayToken) != "" {
		return Resolved{Value: s.gatewayToken, Gateway: true}, true
	}
	return Resolved{}, false
}

// ResolveGatewayPreferred implements spec.md §9's stated preference: when a
// gateway token is configured AND a provider-specific key is also present,
// prefer the gateway path. gatewaySupported is the closed, configured list
// of providers the gateway is known to proxy (e.g. not z.ai).
func (s *Store) ResolveGatewayPreferred(secretName string, gatewaySupported bool) (Resolved, bool) {
	if gatewaySupported && strings.TrimSpace(s.gatewayToken) != "" {
		return Resolved{Value: s.gatewayToken, Gateway: true}, true
	}
	return s.Resolve(secretName)
}
