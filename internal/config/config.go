package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the indexer.
type Config struct {
	// PostgreSQL (empty URL selects the in-memory store)
	PostgresURL    string
	PostgresSchema string

	// Redis
	RedisURL      string
	EventsTopic   string
	ConsumerGroup string

	// Worker
	WorkerEnabled bool

	// WebSocket event subscription
	WSEnabled        bool
	WSURL            string
	WSMaxRetries     int
	WSReconnectDelay time.Duration

	// Event source RPC
	SourceRPCURL string
	RPCRPS       int
	RPCBurst     int

	// Backfill
	BackfillCheckInterval time.Duration // Periodic lag check interval (0 = disabled)

	// Logging
	LogLevel string

	// HTTP API
	HTTPEnabled   bool
	HTTPAddr      string
	AdminToken    string
	QueryMaxFirst int
}

// Load loads configuration from environment variables. Only malformed values
// fail here; Validate checks the combination of enabled components.
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		PostgresSchema:   "public",
		EventsTopic:      "course-events",
		ConsumerGroup:    "course-indexer",
		WorkerEnabled:    true,
		WSMaxRetries:     25,
		WSReconnectDelay: time.Second,
		RPCRPS:           20,
		RPCBurst:         40,
		LogLevel:         "info",
		HTTPEnabled:      true,
		HTTPAddr:         ":8080",
		AdminToken:       "devtoken", // Default token for development
		QueryMaxFirst:    1000,
	}

	cfg.PostgresURL = os.Getenv("POSTGRES_URL")
	if v := os.Getenv("POSTGRES_SCHEMA"); v != "" {
		cfg.PostgresSchema = v
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")

	if v := os.Getenv("EVENTS_TOPIC"); v != "" {
		cfg.EventsTopic = v
	}

	if v := os.Getenv("CONSUMER_GROUP"); v != "" {
		cfg.ConsumerGroup = v
	}

	if v := os.Getenv("WORKER_ENABLED"); v != "" {
		cfg.WorkerEnabled = parseBool(v)
	}

	if v := os.Getenv("WS_ENABLED"); v != "" {
		cfg.WSEnabled = parseBool(v)
	}

	cfg.WSURL = os.Getenv("WS_URL")

	if v := os.Getenv("WS_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("WS_MAX_RETRIES: %w", err)
		}
		cfg.WSMaxRetries = n
	}

	if v := os.Getenv("WS_RECONNECT_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("WS_RECONNECT_DELAY: %w", err)
		}
		cfg.WSReconnectDelay = d
	}

	cfg.SourceRPCURL = os.Getenv("SOURCE_RPC_URL")

	if v := os.Getenv("RPC_RPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RPCRPS = n
		}
	}

	if v := os.Getenv("RPC_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RPCBurst = n
		}
	}

	if v := os.Getenv("BACKFILL_CHECK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("BACKFILL_CHECK_INTERVAL: %w", err)
		}
		cfg.BackfillCheckInterval = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// HTTP API Configuration
	if v := os.Getenv("HTTP_ENABLED"); v != "" {
		cfg.HTTPEnabled = parseBool(v)
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}

	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}

	if v := os.Getenv("QUERY_MAX_FIRST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("QUERY_MAX_FIRST must be a positive integer, got %q", v)
		}
		cfg.QueryMaxFirst = n
	}

	return cfg, nil
}

// Validate checks that every enabled component of the indexer process is configured.
func (c *Config) Validate() error {
	if c.WorkerEnabled && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when WORKER_ENABLED")
	}
	if c.WSEnabled && c.WSURL == "" {
		return fmt.Errorf("WS_URL is required when WS_ENABLED")
	}
	return nil
}

// DirectMode reports whether the listener feeds the indexer without a stream.
func (c *Config) DirectMode() bool {
	return c.WSEnabled && c.RedisURL == ""
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}
