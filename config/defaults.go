// =============================================================================
// Router default configuration
// =============================================================================
// Sensible defaults for every configuration field.
// =============================================================================
package config

import "time"

// DefaultConfig returns a Config populated with sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Redis:     DefaultRedisConfig(),
		Database:  DefaultDatabaseConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Router:    DefaultRouterConfig(),
	}
}

// DefaultRouterConfig returns the router domain's defaults: every
// credential blank (must come from env/YAML), tunables at spec.md §9's
// documented hard-coded values (60m cooldown, 5s/60-attempt poll budget,
// 3 callback retries).
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		QueueDepthThreshold:   10,
		QuotaCooldown:         60 * time.Minute,
		PollInterval:          5 * time.Second,
		MaxPollAttempts:       60,
		CallbackMaxRetries:    3,
		GatewayHeaderName:     "cf-aig-authorization",
		DefaultModelWaterfall: []string{"claude-sonnet-4", "gemini-2.5-pro", "gpt-4o"},
	}
}

// DefaultServerConfig returns the default HTTP/gRPC/metrics server config.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		GRPCPort:        9090,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
	}
}

// DefaultRedisConfig returns the default Redis connection settings.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig returns the default database connection settings.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "postgres",
		Host:            "localhost",
		Port:            5432,
		User:            "novaroute",
		Password:        "",
		Name:            "novaroute",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig returns the default structured-logging settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig returns the default OpenTelemetry export settings.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "novaroute",
		SampleRate:   0.1,
	}
}
