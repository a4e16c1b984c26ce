// Package config handles configuration for the Documo CLI client.
package config

import "time"

// Config holds runtime settings for the CLI client.
type Config struct {
	// ServerAddr is the base URL of the Documo API (e.g., "http://localhost:8080").
	ServerAddr string
	// RequestTimeout bounds every HTTP call, blob fetches included.
	RequestTimeout time.Duration
	// MasterKeySalt feeds the key derivation together with the passphrase the
	// user types. It must stay stable across sessions or nothing decrypts.
	MasterKeySalt string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "http://localhost:8080"
	c.RequestTimeout = 30 * time.Second
	c.MasterKeySalt = "documo-client"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
