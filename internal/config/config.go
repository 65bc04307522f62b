package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/neomorfeo/docsign/internal/adapter/blobstore"
)

const (
	BaseConfigFile       = "docsign.toml"
	OverlayConfigPattern = "docsign.%s.toml"

	EnvDocsignConfig          = "DOCSIGN_CONFIG"
	EnvDocsignEnv             = "DOCSIGN_ENV"
	EnvDocsignShutdownTimeout = "DOCSIGN_SHUTDOWN_TIMEOUT"
	EnvDocsignVersion         = "DOCSIGN_VERSION"
)

var storageEnv = &blobstore.Env{
	ContainerName:    "DOCSIGN_STORAGE_CONTAINER_NAME",
	ConnectionString: "DOCSIGN_STORAGE_CONNECTION_STRING",
}

// Config is the root configuration of the docsign service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        DatabaseConfig   `toml:"database"`
	Jobs            JobsConfig       `toml:"jobs"`
	Storage         blobstore.Config `toml:"storage"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the DOCSIGN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvDocsignEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config file (if present), applies the overlay for the
// current environment, and finalizes all values. Without a config file,
// defaults and environment variables provide all configuration.
func Load() (*Config, error) {
	base := BaseConfigFile
	if path := os.Getenv(EnvDocsignConfig); path != "" {
		base = path
	}

	cfg := &Config{}
	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(base); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Jobs.Merge(&overlay.Jobs)
	c.Storage.Merge(&overlay.Storage)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Jobs.Finalize(); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvDocsignShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvDocsignVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// overlayPath returns the environment overlay that sits next to the base file,
// or "" when none exists.
func overlayPath(base string) string {
	env := os.Getenv(EnvDocsignEnv)
	if env == "" {
		return ""
	}
	name := fmt.Sprintf(OverlayConfigPattern, strings.ToLower(env))
	path := filepath.Join(filepath.Dir(base), name)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
