package backfill

import (
	"os"
	"strconv"
	"time"
)

// Config holds backfill-specific configuration.
type Config struct {
	// BatchSize is the number of blocks requested from the source per call.
	BatchSize uint64

	// Concurrency is the number of batches fetched ahead while indexing.
	Concurrency int

	// StartBlock overrides the start of the range (default: the cursor block).
	StartBlock uint64

	// EndBlock overrides the end of the range (default: current chain head).
	EndBlock uint64

	// DryRun only reports how far behind the store is.
	DryRun bool

	// ProgressInterval is how often to log progress.
	ProgressInterval time.Duration

	// File replays a JSON-lines event file instead of the RPC source.
	// A .zst suffix selects zstd decompression.
	File string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:        1000,
		Concurrency:      4,
		ProgressInterval: 10 * time.Second,
	}
}

// LoadConfig loads backfill configuration from environment variables.
func LoadConfig() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("BACKFILL_BATCH_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}

	if v := os.Getenv("BACKFILL_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}

	if v := os.Getenv("BACKFILL_START_BLOCK"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.StartBlock = n
		}
	}

	if v := os.Getenv("BACKFILL_END_BLOCK"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.EndBlock = n
		}
	}

	if v := os.Getenv("BACKFILL_DRY_RUN"); v == "true" || v == "1" {
		cfg.DryRun = true
	}

	if v := os.Getenv("BACKFILL_PROGRESS_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ProgressInterval = d
		}
	}

	cfg.File = os.Getenv("BACKFILL_FILE")

	return cfg
}
