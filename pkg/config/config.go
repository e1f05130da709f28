// Package config provides configuration file support for rbdrot.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where cron installations keep their settings.
const DefaultPath = "/etc/rbdrot/config.yaml"

// Config represents the rbdrot configuration. Flags override these values,
// and these values override the built-in defaults.
type Config struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Ceph     CephConfig     `yaml:"ceph"`
	Logging  LoggingConfig  `yaml:"logging"`
	Audit    AuditConfig    `yaml:"audit"`
}

// DefaultsConfig holds per-run defaults applied when a flag is not given.
type DefaultsConfig struct {
	Keep   int    `yaml:"keep"`
	Jitter string `yaml:"jitter"`
}

// CephConfig locates the cluster CLI binaries.
type CephConfig struct {
	CephBin string `yaml:"ceph_bin"`
	RbdBin  string `yaml:"rbd_bin"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Sink  string `yaml:"sink"` // stderr, stdout, syslog
}

// AuditConfig configures the mutation audit log.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Keep:   10,
			Jitter: "19s",
		},
		Ceph: CephConfig{
			CephBin: "ceph",
			RbdBin:  "rbd",
		},
		Logging: LoggingConfig{
			Level: "info",
			Sink:  "syslog",
		},
		Audit: AuditConfig{
			Path: "/var/log/rbdrot/audit.jsonl",
		},
	}
}

// Load loads configuration from the given path (DefaultPath when empty).
// Returns the defaults if the file doesn't exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil // No config file is OK, use defaults
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile merges a dotenv-style file into the process environment
// without overriding variables already set. Missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ApplyEnv overlays RBDROT_* environment variables onto the config. It
// returns a warning for every value it rejects instead of silently keeping
// the file or default value.
func (c *Config) ApplyEnv() []string {
	var warnings []string
	if v := os.Getenv("RBDROT_KEEP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Defaults.Keep = n
		} else {
			warnings = append(warnings, fmt.Sprintf("ignoring RBDROT_KEEP=%q: not a number", v))
		}
	}
	if v := os.Getenv("RBDROT_JITTER"); v != "" {
		c.Defaults.Jitter = v
	}
	if v := os.Getenv("RBDROT_CEPH_BIN"); v != "" {
		c.Ceph.CephBin = v
	}
	if v := os.Getenv("RBDROT_RBD_BIN"); v != "" {
		c.Ceph.RbdBin = v
	}
	if v := os.Getenv("RBDROT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RBDROT_LOG_SINK"); v != "" {
		c.Logging.Sink = v
	}
	if v := os.Getenv("RBDROT_AUDIT_PATH"); v != "" {
		c.Audit.Path = v
	}
	return warnings
}

// JitterMax parses the configured jitter bound.
func (c *Config) JitterMax() (time.Duration, error) {
	if c.Defaults.Jitter == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Defaults.Jitter)
	if err != nil {
		return 0, fmt.Errorf("parse jitter: %w", err)
	}
	return d, nil
}
