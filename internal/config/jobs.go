package config

import (
	"fmt"
	"os"
	"strconv"
)

const EnvJobsMaxWorkers = "DOCSIGN_JOBS_MAX_WORKERS"

// JobsConfig sizes the background job queue.
type JobsConfig struct {
	MaxWorkers int `toml:"max_workers"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *JobsConfig) Finalize() error {
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 4
	}
	if v := os.Getenv(EnvJobsMaxWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvJobsMaxWorkers, err)
		}
		c.MaxWorkers = n
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be positive, got %d", c.MaxWorkers)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *JobsConfig) Merge(overlay *JobsConfig) {
	if overlay.MaxWorkers != 0 {
		c.MaxWorkers = overlay.MaxWorkers
	}
}
