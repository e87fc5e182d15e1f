// Package config holds factbridge configuration, loaded from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all factbridge configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures engine construction.
type EngineConfig struct {
	// Mode is "interpreted" or "compiled".
	Mode string `yaml:"mode"`
	// Binary is the external engine executable for interpreted mode.
	Binary string `yaml:"binary"`
	// WorkDir is the parent directory for per-session scratch space.
	WorkDir string `yaml:"work_dir"`
	// RunTimeout bounds one external evaluation, e.g. "5m".
	RunTimeout string `yaml:"run_timeout"`
	// DerivedFactLimit caps in-process evaluation output (0 = default).
	DerivedFactLimit int `yaml:"derived_fact_limit"`
}

// StoreConfig configures fact persistence.
type StoreConfig struct {
	// Path is the SQLite database file; empty disables persistence.
	Path string `yaml:"path"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Mode:       "compiled",
			Binary:     "souffle",
			RunTimeout: "5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from path, falling back to defaults for absent
// fields, then applies environment overrides. A missing file is not an
// error; defaults plus environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays FACTBRIDGE_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FACTBRIDGE_ENGINE_MODE"); v != "" {
		cfg.Engine.Mode = v
	}
	if v := os.Getenv("FACTBRIDGE_ENGINE_BINARY"); v != "" {
		cfg.Engine.Binary = v
	}
	if v := os.Getenv("FACTBRIDGE_ENGINE_WORK_DIR"); v != "" {
		cfg.Engine.WorkDir = v
	}
	if v := os.Getenv("FACTBRIDGE_ENGINE_RUN_TIMEOUT"); v != "" {
		cfg.Engine.RunTimeout = v
	}
	if v := os.Getenv("FACTBRIDGE_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("FACTBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FACTBRIDGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks field values that are parsed lazily elsewhere.
func (c Config) Validate() error {
	switch c.Engine.Mode {
	case "interpreted", "interp", "compiled":
	default:
		return fmt.Errorf("engine.mode: unknown mode %q", c.Engine.Mode)
	}
	if c.Engine.RunTimeout != "" {
		if _, err := time.ParseDuration(c.Engine.RunTimeout); err != nil {
			return fmt.Errorf("engine.run_timeout: %w", err)
		}
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}
	return nil
}

// Timeout returns the parsed run timeout, zero when unset.
func (c EngineConfig) Timeout() time.Duration {
	if c.RunTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.RunTimeout)
	if err != nil {
		return 0
	}
	return d
}
