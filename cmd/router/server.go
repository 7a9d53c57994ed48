package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/novaroute/router/adapters"
	"github.com/novaroute/router/adapters/anthropic"
	"github.com/novaroute/router/adapters/elevenlabs"
	"github.com/novaroute/router/adapters/gateway"
	"github.com/novaroute/router/adapters/ideogram"
	"github.com/novaroute/router/adapters/openai"
	"github.com/novaroute/router/adapters/replicate"
	"github.com/novaroute/router/adapters/vllmlocal"
	"github.com/novaroute/router/catalog"
	"github.com/novaroute/router/classifier"
	"github.com/novaroute/router/config"
	"github.com/novaroute/router/credentials"
	"github.com/novaroute/router/health"
	"github.com/novaroute/router/internal/server"
	"github.com/novaroute/router/orchestrator"
	"github.com/novaroute/router/orchestrator/subworkflows"
	"github.com/novaroute/router/selector"
	"github.com/novaroute/router/simplerouter"
	"github.com/novaroute/router/workflowengine"
)

// gatewaySupported mirrors simplerouter's closed list: providers the
// configured gateway is known to proxy, per spec.md §9.
var gatewaySupported = map[string]bool{
	"anthropic": true, "openai": true, "ideogram": true, "elevenlabs": true, "replicate": true,
}

// Server wires every router component and exposes the HTTP surface of
// spec.md §6, grounded on the teacher's cmd/agentflow/server.go Server
// (instantiate components, build a mux, chain middleware, hand off to
// internal/server.Manager for lifecycle).
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	orch       *orchestrator.Orchestrator
	engine     *workflowengine.Engine
	registry   *catalog.Registry
	passphrase string

	hotReload *config.HotReloadManager
	configAPI *config.ConfigAPIHandler

	httpManager *server.Manager
}

// NewServer constructs a Server over an already-migrated db. configPath is
// the file the hot-reload manager watches and re-reads on
// POST /api/v1/config/reload; empty disables file watching (env/flag-only
// deployments still get the in-memory GET/PUT config surface).
func NewServer(cfg *config.Config, db *gorm.DB, logger *zap.Logger, configPath string) *Server {
	creds := credentials.FromRouterConfig(cfg.Router)
	reg := catalog.New(db, creds, logger)

	adapterRegistry := adapters.NewRegistry()
	adapterRegistry.Register(anthropic.New(anthropic.Config{
		GatewayBaseURL: cfg.Router.GatewayBaseURL, GatewayHeaderName: cfg.Router.GatewayHeaderName,
	}, logger))
	adapterRegistry.Register(openai.New(openai.Config{
		GatewayBaseURL: cfg.Router.GatewayBaseURL, GatewayHeaderName: cfg.Router.GatewayHeaderName,
	}, logger))
	adapterRegistry.Register(ideogram.New(ideogram.Config{}, logger))
	adapterRegistry.Register(elevenlabs.New(elevenlabs.Config{}, logger))
	adapterRegistry.Register(replicate.New(replicate.Config{}, logger))
	adapterRegistry.Register(vllmlocal.New(vllmlocal.Config{BaseURL: cfg.Router.VLLMBaseURL}, logger))
	adapterRegistry.Register(gateway.New(gateway.Config{
		BaseURL: cfg.Router.TaskRunnerBaseURL, CFAccessClientID: cfg.Router.CFAccessClientID, CFAccessSecret: cfg.Router.CFAccessClientSecret,
	}, logger))

	tracker := health.NewTracker(reg, cfg.Router.QuotaCooldown, logger)
	sel := selector.New(reg, logger)
	simpleRouter := simplerouter.New(sel, adapterRegistry, creds, tracker, logger)
	engine := workflowengine.New(simpleRouter, logger)

	executor := subworkflows.NewCatalogExecutor(reg, adapterRegistry, creds, gatewaySupported)

	queueProbe := &classifier.HTTPQueueProbe{BaseURL: cfg.Router.QueueServiceURL, Client: &http.Client{Timeout: 3 * time.Second}}
	textCls := classifier.New(queueProbe, cfg.Router.QueueDepthThreshold, logger)
	textOnlyRouter := simplerouter.NewTextOnlyRouter(simpleRouter, textCls, reg, logger)

	subs := map[orchestrator.TaskType]orchestrator.SubWorkflow{
		orchestrator.TaskCode:             subworkflows.NewCodeExecution(executor, joinCSV(cfg.Router.DefaultModelWaterfall), reg, logger),
		orchestrator.TaskText:             subworkflows.NewTextGeneration(textOnlyRouter, cfg.Router.CallbackMaxRetries, logger),
		orchestrator.TaskVideo:            subworkflows.NewVideoRender(simpleRouter, logger),
		orchestrator.TaskImage:            subworkflows.NewMediaGeneration("image-gen", simpleRouter, cfg.Router.CallbackMaxRetries, logger),
		orchestrator.TaskAudio:            subworkflows.NewMediaGeneration("audio-gen", simpleRouter, cfg.Router.CallbackMaxRetries, logger),
		orchestrator.TaskShippingResearch: subworkflows.NewShippingResearch(executor, logger),
	}

	dedup := buildDedup(cfg, logger)
	callback := orchestrator.NewCallbackPoster(nil, cfg.Router.CallbackSharedSecret, cfg.Router.CallbackMaxRetries, logger)
	orch := orchestrator.New(orchestrator.NewMemStore(), dedup, callback, subs, orchestrator.Config{
		PollInterval: cfg.Router.PollInterval, MaxPollAttempts: cfg.Router.MaxPollAttempts,
	}, logger)

	hotReload := config.NewHotReloadManager(cfg,
		config.WithHotReloadLogger(logger),
		config.WithConfigPath(configPath),
	)
	configAPI := config.NewConfigAPIHandler(hotReload)

	return &Server{
		cfg: cfg, logger: logger, orch: orch, engine: engine, registry: reg, passphrase: cfg.Router.ExecutionPassphrase,
		hotReload: hotReload, configAPI: configAPI,
	}
}

func buildDedup(cfg *config.Config, logger *zap.Logger) orchestrator.Dedup {
	if cfg.Redis.Addr == "" {
		return orchestrator.NewMemDedup()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis unavailable, falling back to in-process dedup", zap.Error(err))
		return orchestrator.NewMemDedup()
	}
	return orchestrator.NewRedisDedup(client)
}

func joinCSV(values []string) string { return strings.Join(values, ",") }

// Start builds the mux, chains middleware, and starts the HTTP server via
// internal/server.Manager.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("GET /status/{id}", s.handleStatus)
	mux.HandleFunc("GET /status/{id}/stream", s.handleStatusStream)
	mux.HandleFunc("POST /workflows/code-execution", s.legacyWorkflow("code-execution"))
	mux.HandleFunc("POST /workflows/text-generation", s.legacyWorkflow("text-generation"))
	mux.HandleFunc("POST /workflows/image-generation", s.legacyWorkflow("image-generation"))
	mux.HandleFunc("POST /workflows/audio-generation", s.legacyWorkflow("audio-generation"))
	mux.HandleFunc("POST /workflows/product-shipping-research", s.handleShippingResearchRefusal)
	mux.HandleFunc("POST /workflows/run", s.handleRunWorkflow)
	mux.HandleFunc("GET /workflows/{kind}/{id}", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())
	s.configAPI.RegisterRoutes(mux)

	if err := s.hotReload.Start(context.Background()); err != nil {
		s.logger.Warn("config hot-reload manager failed to start", zap.Error(err))
	}

	handler := Chain(mux,
		Recovery(s.logger),
		RequestLogger(s.logger),
		RateLimiter(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		Passphrase(s.passphrase, s.logger),
		JWTAuth(s.cfg.Router.JWTSecret, s.logger),
	)

	s.httpManager = server.NewManager(handler, server.FromRouterConfig(s.cfg.Server), s.logger)
	return s.httpManager.Start()
}

// WaitForShutdown blocks until the process receives a shutdown signal.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	if err := s.hotReload.Stop(); err != nil {
		s.logger.Warn("config hot-reload manager failed to stop cleanly", zap.Error(err))
	}
}

