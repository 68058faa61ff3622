package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// FromEnv builds a Config from LOGFLUX_* environment variables. A
// .env file in the working directory is loaded first if present.
// LOGFLUX_SERVER_URL and LOGFLUX_API_KEY are required; everything
// else falls back to the defaults.
func FromEnv(node, secret string) (*Config, error) {
	// Best effort: absence of a .env file is the normal case.
	_ = godotenv.Load()

	serverURL := os.Getenv("LOGFLUX_SERVER_URL")
	if serverURL == "" {
		return nil, fmt.Errorf("config: LOGFLUX_SERVER_URL environment variable is required")
	}
	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("config: %s environment variable is required", EnvAPIKey)
	}

	cfg := defaults()
	cfg.ServerURL = serverURL
	cfg.Node = node
	cfg.APIKey = apiKey
	cfg.Secret = secret
	cfg.Timeout = envSeconds("LOGFLUX_HTTP_TIMEOUT", cfg.Timeout)
	cfg.QueueSize = envInt("LOGFLUX_QUEUE_SIZE", cfg.QueueSize)
	cfg.FlushInterval = envSeconds("LOGFLUX_FLUSH_INTERVAL", cfg.FlushInterval)
	cfg.WorkerCount = envInt("LOGFLUX_WORKER_COUNT", cfg.WorkerCount)
	cfg.Failsafe = envBool("LOGFLUX_FAILSAFE_MODE", cfg.Failsafe)
	cfg.MaxRetries = envInt("LOGFLUX_MAX_RETRIES", cfg.MaxRetries)
	cfg.InitialDelay = envSeconds("LOGFLUX_INITIAL_DELAY", cfg.InitialDelay)
	cfg.MaxDelay = envSeconds("LOGFLUX_MAX_DELAY", cfg.MaxDelay)
	cfg.BackoffFactor = envFloat("LOGFLUX_BACKOFF_FACTOR", cfg.BackoffFactor)
	cfg.Jitter = envBool("LOGFLUX_JITTER_ENABLED", cfg.Jitter)
	cfg.Compress = envBool("LOGFLUX_COMPRESS", cfg.Compress)
	cfg.RateLimit = envFloat("LOGFLUX_RATE_LIMIT", cfg.RateLimit)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// envSeconds reads an integer number of seconds.
func envSeconds(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(name string, fallback bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envFloat(name string, fallback float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
