// Package config loads server configuration from a YAML file, with
// sensible defaults for running straight out of a checkout.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry values like "24h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every runtime setting of the server.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`
	// JWTSecret signs session tokens. Override it in production.
	JWTSecret string `yaml:"jwt_secret"`
	// TokenTTL is the session token lifetime.
	TokenTTL Duration `yaml:"token_ttl"`
	// ReportsDir is where generated daily reports are written.
	ReportsDir string `yaml:"reports_dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:       ":8080",
		DBPath:     "data/fieldops.db",
		JWTSecret:  "dev-secret-change-me",
		TokenTTL:   Duration(24 * time.Hour),
		ReportsDir: "data/reports",
	}
}

// Load reads a YAML config file and merges it over the defaults. An
// empty path returns the defaults unchanged. The FIELDOPS_JWT_SECRET
// environment variable, when set, overrides the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if secret := os.Getenv("FIELDOPS_JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: token_ttl must be positive")
	}
	return nil
}
