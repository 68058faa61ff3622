package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file
// or environment.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultQueueSize     = 1000
	DefaultFlushInterval = 5 * time.Second
	DefaultWorkerCount   = 2
	DefaultMaxRetries    = 5
	DefaultInitialDelay  = 100 * time.Millisecond
	DefaultMaxDelay      = 30 * time.Second
	DefaultBackoffFactor = 2.0
)

// APIKeyPrefix is the mandatory prefix of ingestion API keys.
const APIKeyPrefix = "lf_"

// Environment variable names read when the config file uses env
// indirection and no explicit name is given.
const (
	EnvAPIKey = "LOGFLUX_API_KEY"
	EnvSecret = "LOGFLUX_SECRET"
)

// Config holds every knob of the pipeline. Fields map 1:1 to the YAML
// config file; credentials are never stored in the file itself, only
// the names of the environment variables holding them.
type Config struct {
	// ServerURL is the base URL of the ingestion service.
	ServerURL string `yaml:"server_url"`

	// Node identifies this producer (host, service name); <= 255 chars.
	Node string `yaml:"node"`

	// APIKey authenticates to the ingestion service. Populated
	// programmatically or resolved from APIKeyEnv by Load.
	APIKey string `yaml:"-"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// Secret is the shared encryption secret. Populated
	// programmatically or resolved from SecretEnv by Load.
	Secret string `yaml:"-"`

	// SecretEnv names the environment variable holding the secret.
	SecretEnv string `yaml:"secret_env"`

	// Timeout bounds each delivery HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	// QueueSize is the bounded queue capacity.
	QueueSize int `yaml:"queue_size"`

	// FlushInterval drives the advisory flush ticker; 0 disables it.
	FlushInterval time.Duration `yaml:"flush_interval"`

	// WorkerCount is the number of background delivery workers.
	WorkerCount int `yaml:"worker_count"`

	// Failsafe selects the admission policy: drop-and-count when true,
	// block when false.
	Failsafe bool `yaml:"failsafe"`

	// EnqueueTimeout bounds how long a strict-mode Submit waits for
	// queue space; 0 means wait indefinitely.
	EnqueueTimeout time.Duration `yaml:"enqueue_timeout"`

	// Retry parameters.
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Jitter        bool          `yaml:"jitter"`

	// Compress gzips delivery request bodies.
	Compress bool `yaml:"compress"`

	// RateLimit caps deliveries per second across all workers;
	// 0 disables client-side rate limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// Default returns a validated Config with stock settings for the four
// required values.
func Default(serverURL, node, apiKey, secret string) (*Config, error) {
	cfg := defaults()
	cfg.ServerURL = serverURL
	cfg.Node = node
	cfg.APIKey = apiKey
	cfg.Secret = secret
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses the YAML config file at path, resolves
// credentials from the environment, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = EnvAPIKey
	}
	if cfg.SecretEnv == "" {
		cfg.SecretEnv = EnvSecret
	}
	cfg.APIKey = os.Getenv(cfg.APIKeyEnv)
	cfg.Secret = os.Getenv(cfg.SecretEnv)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		QueueSize:     DefaultQueueSize,
		FlushInterval: DefaultFlushInterval,
		WorkerCount:   DefaultWorkerCount,
		Failsafe:      true,
		MaxRetries:    DefaultMaxRetries,
		InitialDelay:  DefaultInitialDelay,
		MaxDelay:      DefaultMaxDelay,
		BackoffFactor: DefaultBackoffFactor,
		Jitter:        true,
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return fmt.Errorf("server_url is required")
	}
	if !strings.HasPrefix(cfg.ServerURL, "http://") && !strings.HasPrefix(cfg.ServerURL, "https://") {
		return fmt.Errorf("server_url must start with http:// or https://")
	}
	if strings.TrimSpace(cfg.Node) == "" {
		return fmt.Errorf("node is required")
	}
	if len(cfg.Node) > 255 {
		return fmt.Errorf("node exceeds 255 characters")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("api key is required")
	}
	if !strings.HasPrefix(cfg.APIKey, APIKeyPrefix) {
		return fmt.Errorf("api key must start with %q", APIKeyPrefix)
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return fmt.Errorf("secret is required")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive")
	}
	if cfg.WorkerCount <= 0 {
		return fmt.Errorf("worker_count must be positive")
	}
	if cfg.FlushInterval < 0 {
		return fmt.Errorf("flush_interval cannot be negative")
	}
	if cfg.EnqueueTimeout < 0 {
		return fmt.Errorf("enqueue_timeout cannot be negative")
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if cfg.InitialDelay < 0 {
		return fmt.Errorf("initial_delay cannot be negative")
	}
	if cfg.MaxDelay < 0 {
		return fmt.Errorf("max_delay cannot be negative")
	}
	if cfg.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff_factor must be >= 1.0")
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}
	return nil
}
