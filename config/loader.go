// =============================================================================
// Router configuration loader
// =============================================================================
// Unified config loading: YAML file + environment variable overrides.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("ROUTER").
//	    Load()
//
// Precedence: defaults -> YAML file -> environment variables
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Core configuration structures
// =============================================================================

// Config is the router service's complete configuration structure.
type Config struct {
	// Server holds HTTP/gRPC/metrics server settings.
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Redis holds cache connection settings.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database holds the primary datastore connection settings.
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log holds structured-logging settings.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry holds OpenTelemetry export settings.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Router holds the multi-provider generative routing domain's settings.
	Router RouterConfig `yaml:"router" env:"ROUTER"`
}

// RouterConfig carries the router domain's credentials and tunables, per
// spec.md §6 "Environment / credentials" and §9's note that the
// quota-cooldown and poll-interval should be made configurable rather than
// hard-coded.
type RouterConfig struct {
	AnthropicAPIKey  string `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey     string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	GoogleAPIKey     string `yaml:"google_api_key" env:"GOOGLE_API_KEY"`
	IdeogramAPIKey   string `yaml:"ideogram_api_key" env:"IDEOGRAM_API_KEY"`
	ElevenLabsAPIKey string `yaml:"elevenlabs_api_key" env:"ELEVENLABS_API_KEY"`
	ReplicateAPIKey  string `yaml:"replicate_api_key" env:"REPLICATE_API_KEY"`
	ZAIAPIKey        string `yaml:"zai_api_key" env:"ZAI_API_KEY"`

	VLLMBaseURL       string `yaml:"vllm_base_url" env:"VLLM_BASE_URL"`
	TaskRunnerBaseURL string `yaml:"task_runner_base_url" env:"TASK_RUNNER_BASE_URL"`

	GatewayToken      string `yaml:"gateway_token" env:"GATEWAY_TOKEN"`
	GatewayBaseURL    string `yaml:"gateway_base_url" env:"GATEWAY_BASE_URL"`
	GatewayHeaderName string `yaml:"gateway_header_name" env:"GATEWAY_HEADER_NAME"`

	CFAccessClientID     string `yaml:"cf_access_client_id" env:"CF_ACCESS_CLIENT_ID"`
	CFAccessClientSecret string `yaml:"cf_access_client_secret" env:"CF_ACCESS_CLIENT_SECRET"`

	QueueServiceURL     string `yaml:"queue_service_url" env:"QUEUE_SERVICE_URL"`
	QueueDepthThreshold int    `yaml:"queue_depth_threshold" env:"QUEUE_DEPTH_THRESHOLD"`

	QuotaCooldown   time.Duration `yaml:"quota_cooldown" env:"QUOTA_COOLDOWN"`
	PollInterval    time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	MaxPollAttempts int           `yaml:"max_poll_attempts" env:"MAX_POLL_ATTEMPTS"`

	CallbackSharedSecret string `yaml:"callback_shared_secret" env:"CALLBACK_SHARED_SECRET"`
	CallbackMaxRetries   int    `yaml:"callback_max_retries" env:"CALLBACK_MAX_RETRIES"`

	// ExecutionPassphrase is the shared secret POST /execute requires in
	// its X-Passphrase header.
	ExecutionPassphrase string `yaml:"execution_passphrase" env:"EXECUTION_PASSPHRASE"`

	// JWTSecret signs and validates bearer tokens on the operator-facing
	// workflow-management surface. Empty disables JWT auth.
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`

	// DefaultModelWaterfall backs waterfall.Resolve's env-default fallback
	// (comma-separated model ids), per spec.md §4.8 step 5.
	DefaultModelWaterfall []string `yaml:"default_model_waterfall" env:"DEFAULT_MODEL_WATERFALL"`
}

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	// HTTP listener port.
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// gRPC listener port.
	GRPCPort int `yaml:"grpc_port" env:"GRPC_PORT"`
	// Metrics listener port.
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// Read timeout.
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// Write timeout.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// Graceful shutdown timeout.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// Allow API key via query param (debug only, disable in production).
	AllowQueryAPIKey bool `yaml:"allow_query_api_key" env:"ALLOW_QUERY_API_KEY"`
	// Rate limit: requests per second.
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// Rate limit: burst capacity.
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// RedisConfig holds cache connection settings.
type RedisConfig struct {
	// Address.
	Addr string `yaml:"addr" env:"ADDR"`
	// Password.
	Password string `yaml:"password" env:"PASSWORD"`
	// Database index.
	DB int `yaml:"db" env:"DB"`
	// Connection pool size.
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// Minimum idle connections.
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig holds primary datastore connection settings.
type DatabaseConfig struct {
	// Driver: postgres, mysql, sqlite.
	Driver string `yaml:"driver" env:"DRIVER"`
	// Host.
	Host string `yaml:"host" env:"HOST"`
	// Port.
	Port int `yaml:"port" env:"PORT"`
	// User.
	User string `yaml:"user" env:"USER"`
	// Password.
	Password string `yaml:"password" env:"PASSWORD"`
	// Database name.
	Name string `yaml:"name" env:"NAME"`
	// SSL mode.
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// Max open connections.
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// Max idle connections.
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// Max connection lifetime.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig holds structured-logging settings.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console.
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// Enable caller info.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// Enable stack traces.
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	// Enabled.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP endpoint.
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// Service name.
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// Sample rate.
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// Configuration loader
// =============================================================================

// Loader builds a Config using the builder pattern.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "ROUTER",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a config validator.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load loads the config.
// Precedence: defaults -> YAML file -> environment variables.
func (l *Loader) Load() (*Config, error) {
	// 1. Start from defaults.
	cfg := DefaultConfig()

	// 2. Load from file if a path was given.
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. Override from environment variables.
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. Run validators.
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile loads config from a YAML file.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// File does not exist, use defaults.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv loads config from environment variables.
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv recursively sets struct fields from env vars.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// Read the env tag.
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// Recurse into nested structs.
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// Read the environment variable value.
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// Set the field value.
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue sets a single reflected field from a string value.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// Special-case time.Duration.
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// Support comma-separated string slices.
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// MustLoad loads config, panicking on failure.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv loads config from environment variables only.
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate validates the config.
func (c *Config) Validate() error {
	var errs []string

	// Validate server config.
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}

	// Validate router config.
	if c.Router.MaxPollAttempts <= 0 {
		errs = append(errs, "max_poll_attempts must be positive")
	}
	if c.Router.PollInterval <= 0 {
		errs = append(errs, "poll_interval must be positive")
	}
	if c.Router.QueueDepthThreshold < 0 {
		errs = append(errs, "queue_depth_threshold must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN returns the database connection string.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
