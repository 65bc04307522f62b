package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvDatabasePath      = "DATABASE_PATH"
	EnvDatabaseCacheSize = "DOCSIGN_CACHE_SIZE"
)

// DatabaseConfig locates the SQLite database and sizes the collection cache.
// A CacheSize of zero keeps the default; a negative size disables the cache.
type DatabaseConfig struct {
	Path      string `toml:"path"`
	CacheSize int    `toml:"cache_size"`
}

// CacheEnabled reports whether collection reads go through the LRU cache.
func (c *DatabaseConfig) CacheEnabled() bool {
	return c.CacheSize > 0
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *DatabaseConfig) Finalize() error {
	if c.Path == "" {
		c.Path = "docsign.db"
	}
	if c.CacheSize == 0 {
		c.CacheSize = 1024
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Path = v
	}
	if v := os.Getenv(EnvDatabaseCacheSize); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDatabaseCacheSize, err)
		}
		c.CacheSize = size
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *DatabaseConfig) Merge(overlay *DatabaseConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.CacheSize != 0 {
		c.CacheSize = overlay.CacheSize
	}
}
