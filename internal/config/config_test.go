package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Concurrency != runtime.NumCPU() {
		t.Errorf("expected concurrency %d, got %d", runtime.NumCPU(), cfg.Concurrency)
	}
	if len(cfg.EvictCommand) != 2 || cfg.EvictCommand[0] != "brctl" || cfg.EvictCommand[1] != "evict" {
		t.Errorf("unexpected default evict command: %v", cfg.EvictCommand)
	}
	if cfg.EvictTimeout() != 0 {
		t.Errorf("expected no default timeout, got %v", cfg.EvictTimeout())
	}
	if cfg.Prometheus.Port != 0 {
		t.Errorf("expected prometheus disabled by default, got port %d", cfg.Prometheus.Port)
	}
	if cfg.DatabasePath != "" {
		t.Errorf("expected history database disabled by default, got %q", cfg.DatabasePath)
	}
	if cfg.Interval() != 60*time.Minute {
		t.Errorf("expected default interval 60m, got %v", cfg.Interval())
	}
	if cfg.Logging.RotationDays != 30 {
		t.Errorf("expected default rotation 30 days, got %d", cfg.Logging.RotationDays)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
concurrency: 8
evict_command: ["/usr/bin/brctl", "evict"]
evict_timeout_seconds: 120
exclude_patterns: ["*.icloud", ".DS_Store"]
min_file_size_bytes: 4096
interval_minutes: 15
prometheus:
  port: 9300
logging:
  rotation_days: 7
resource_limits:
  max_evictions_per_second: 20
database_path: /tmp/evictions.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Concurrency != 8 {
		t.Errorf("concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.EvictCommand[0] != "/usr/bin/brctl" {
		t.Errorf("evict command = %v", cfg.EvictCommand)
	}
	if cfg.EvictTimeout() != 2*time.Minute {
		t.Errorf("timeout = %v, want 2m", cfg.EvictTimeout())
	}
	if len(cfg.ExcludePatterns) != 2 {
		t.Errorf("exclude patterns = %v", cfg.ExcludePatterns)
	}
	if cfg.MinFileSizeBytes != 4096 {
		t.Errorf("min size = %d, want 4096", cfg.MinFileSizeBytes)
	}
	if cfg.Interval() != 15*time.Minute {
		t.Errorf("interval = %v, want 15m", cfg.Interval())
	}
	if cfg.PrometheusAddress() != ":9300" {
		t.Errorf("prometheus address = %q", cfg.PrometheusAddress())
	}
	if cfg.ResourceLimits.MaxEvictionsPerSecond != 20 {
		t.Errorf("rate limit = %f, want 20", cfg.ResourceLimits.MaxEvictionsPerSecond)
	}
	if cfg.DatabasePath != "/tmp/evictions.db" {
		t.Errorf("database path = %q", cfg.DatabasePath)
	}
}

func TestLoadRejectsNegativeConcurrency(t *testing.T) {
	path := writeConfig(t, "concurrency: -2\n")
	if _, err := Load(path); !errors.Is(err, errNegativeConcurrency) {
		t.Errorf("expected errNegativeConcurrency, got %v", err)
	}
}

func TestLoadRejectsEmptyCommandElement(t *testing.T) {
	path := writeConfig(t, "evict_command: [\"brctl\", \"\"]\n")
	if _, err := Load(path); !errors.Is(err, errEmptyEvictCommand) {
		t.Errorf("expected errEmptyEvictCommand, got %v", err)
	}
}

func TestLoadRejectsNegativeTimeout(t *testing.T) {
	path := writeConfig(t, "evict_timeout_seconds: -1\n")
	if _, err := Load(path); !errors.Is(err, errNegativeTimeout) {
		t.Errorf("expected errNegativeTimeout, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "concurrency: [not an int\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
