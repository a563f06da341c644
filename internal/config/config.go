package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	Dir          string `yaml:"dir" json:"dir"`                     // Log directory (default: ~/Library/Logs/icloud-evict)
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type ResourceLimits struct {
	MaxEvictionsPerSecond float64 `yaml:"max_evictions_per_second" json:"max_evictions_per_second"` // 0 = unlimited
}

type Config struct {
	Concurrency         int            `yaml:"concurrency" json:"concurrency"`                     // Max concurrent evictions (default: logical CPUs)
	EvictCommand        []string       `yaml:"evict_command" json:"evict_command"`                 // Command prefix, file path appended (default: brctl evict)
	EvictTimeoutSeconds int            `yaml:"evict_timeout_seconds" json:"evict_timeout_seconds"` // Per-invocation timeout, 0 = none
	ExcludePatterns     []string       `yaml:"exclude_patterns" json:"exclude_patterns"`           // Glob patterns matched against base names
	MinFileSizeBytes    int64          `yaml:"min_file_size_bytes" json:"min_file_size_bytes"`     // Skip files smaller than this
	IntervalMinutes     int            `yaml:"interval_minutes" json:"interval_minutes"`           // Watch-mode re-run interval
	Prometheus          PrometheusCfg  `yaml:"prometheus" json:"prometheus"`
	Logging             LoggingCfg     `yaml:"logging" json:"logging"`
	ResourceLimits      ResourceLimits `yaml:"resource_limits" json:"resource_limits"`
	DatabasePath        string         `yaml:"database_path" json:"database_path"` // SQLite eviction history, "" = disabled
}

var (
	errNegativeConcurrency = errors.New("concurrency cannot be negative")
	errEmptyEvictCommand   = errors.New("evict_command cannot contain empty elements")
	errNegativeTimeout     = errors.New("evict_timeout_seconds cannot be negative")
	errNegativeMinSize     = errors.New("min_file_size_bytes cannot be negative")
	errNegativeRate        = errors.New("max_evictions_per_second cannot be negative")
)

// Default returns a config with all defaults applied, for flag-only runs
func Default() *Config {
	cfg := &Config{}
	// Cannot fail: the zero config only needs defaults filled in
	_ = cfg.validateAndDefault()
	return cfg
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.Concurrency < 0 {
		return errNegativeConcurrency
	}
	if c.Concurrency == 0 {
		c.Concurrency = runtime.NumCPU()
	}

	if len(c.EvictCommand) == 0 {
		c.EvictCommand = []string{"brctl", "evict"}
	}
	for _, arg := range c.EvictCommand {
		if arg == "" {
			return errEmptyEvictCommand
		}
	}

	if c.EvictTimeoutSeconds < 0 {
		return errNegativeTimeout
	}
	if c.MinFileSizeBytes < 0 {
		return errNegativeMinSize
	}
	if c.ResourceLimits.MaxEvictionsPerSecond < 0 {
		return errNegativeRate
	}

	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 60
	}
	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}

	// Prometheus.Port and DatabasePath default to disabled: this is a
	// one-shot user CLI first, a daemon only when asked

	return nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) EvictTimeout() time.Duration {
	return time.Duration(c.EvictTimeoutSeconds) * time.Second
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
