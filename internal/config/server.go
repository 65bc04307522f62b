package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerPort              = "PORT"
	EnvServerReadHeaderTimeout = "DOCSIGN_SERVER_READ_HEADER_TIMEOUT"
)

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port              int    `toml:"port"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
}

// Addr returns the listen address on all interfaces.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ReadHeaderTimeoutDuration returns ReadHeaderTimeout as a time.Duration.
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReadHeaderTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	if overlay.ReadHeaderTimeout != "" {
		c.ReadHeaderTimeout = overlay.ReadHeaderTimeout
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadHeaderTimeout == "" {
		c.ReadHeaderTimeout = "10s"
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv(EnvServerReadHeaderTimeout); v != "" {
		c.ReadHeaderTimeout = v
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if _, err := time.ParseDuration(c.ReadHeaderTimeout); err != nil {
		return fmt.Errorf("invalid read_header_timeout: %w", err)
	}
	return nil
}
