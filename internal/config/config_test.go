package config

import (
	"os"
	"path/filepath"
	"testing"
)

// mockEnv creates an environment lookup function from a map.
func mockEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if cfg.Lag.DefaultFormat != 7 {
		t.Errorf("DefaultConfig() Lag.DefaultFormat = %d, want 7", cfg.Lag.DefaultFormat)
	}
	if cfg.Optimize.LagReductionPercent != 0.40 {
		t.Errorf("DefaultConfig() Optimize.LagReductionPercent = %v, want 0.40", cfg.Optimize.LagReductionPercent)
	}
	if cfg.Optimize.CompressionPercent != 0.20 {
		t.Errorf("DefaultConfig() Optimize.CompressionPercent = %v, want 0.20", cfg.Optimize.CompressionPercent)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("DefaultConfig() Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Store.Path != "" {
		t.Errorf("DefaultConfig() Store.Path should be empty, got %q", cfg.Store.Path)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "scheduled")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	configContent := `
store:
  path: /tmp/schedule.db
lag:
  default_format: 9
optimize:
  lag_reduction_percent: 0.5
log:
  level: debug
  file: /var/log/scheduled.log
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	env := mockEnv(map[string]string{
		"XDG_CONFIG_HOME": tmpDir,
	})

	cfg, err := LoadWithEnv(env)
	if err != nil {
		t.Fatalf("LoadWithEnv() error: %v", err)
	}

	if cfg.Store.Path != "/tmp/schedule.db" {
		t.Errorf("LoadWithEnv() Store.Path = %q, want %q", cfg.Store.Path, "/tmp/schedule.db")
	}
	if cfg.Lag.DefaultFormat != 9 {
		t.Errorf("LoadWithEnv() Lag.DefaultFormat = %d, want 9", cfg.Lag.DefaultFormat)
	}
	if cfg.Optimize.LagReductionPercent != 0.5 {
		t.Errorf("LoadWithEnv() Optimize.LagReductionPercent = %v, want 0.5", cfg.Optimize.LagReductionPercent)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("LoadWithEnv() Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.File != "/var/log/scheduled.log" {
		t.Errorf("LoadWithEnv() Log.File = %q, want %q", cfg.Log.File, "/var/log/scheduled.log")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "scheduled")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	configContent := `store:
  path: /from/file.db`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	env := mockEnv(map[string]string{
		"XDG_CONFIG_HOME":     tmpDir,
		"SCHEDULED_STORE_PATH": "/from/env.db",
	})

	cfg, err := LoadWithEnv(env)
	if err != nil {
		t.Fatalf("LoadWithEnv() error: %v", err)
	}

	if cfg.Store.Path != "/from/env.db" {
		t.Errorf("LoadWithEnv() Store.Path = %q, want %q (env override)", cfg.Store.Path, "/from/env.db")
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()

	env := mockEnv(map[string]string{
		"XDG_CONFIG_HOME": tmpDir,
	})

	cfg, err := LoadWithEnv(env)
	if err != nil {
		t.Fatalf("LoadWithEnv() error: %v", err)
	}

	if cfg.Lag.DefaultFormat != 7 {
		t.Errorf("LoadWithEnv() without file should use default Lag.DefaultFormat, got %d", cfg.Lag.DefaultFormat)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("LoadWithEnv() without file should use default Log.Level, got %q", cfg.Log.Level)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "scheduled")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	invalidContent := `
store: [this is invalid yaml
lag:
  default_format: not a number
`
	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	env := mockEnv(map[string]string{
		"XDG_CONFIG_HOME": tmpDir,
	})

	_, err := LoadWithEnv(env)
	if err == nil {
		t.Error("LoadWithEnv() with invalid YAML should return error")
	}
}

func TestGetConfigPathXDG(t *testing.T) {
	t.Parallel()
	tmpDir := "/custom/config/path"

	env := mockEnv(map[string]string{
		"XDG_CONFIG_HOME": tmpDir,
	})

	path := getConfigPathWithEnv(env)
	expected := filepath.Join(tmpDir, "scheduled", "config.yaml")
	if path != expected {
		t.Errorf("getConfigPathWithEnv() = %q, want %q", path, expected)
	}
}

func TestGetConfigPathFallback(t *testing.T) {
	t.Parallel()
	env := mockEnv(map[string]string{})

	path := getConfigPathWithEnv(env)
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".config", "scheduled", "config.yaml")
	if path != expected {
		t.Errorf("getConfigPathWithEnv() = %q, want %q", path, expected)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, "scheduled")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	configContent := `
lag:
  default_format: 12
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	env := mockEnv(map[string]string{
		"XDG_CONFIG_HOME": tmpDir,
	})

	cfg, err := LoadWithEnv(env)
	if err != nil {
		t.Fatalf("LoadWithEnv() error: %v", err)
	}

	if cfg.Lag.DefaultFormat != 12 {
		t.Errorf("LoadWithEnv() Lag.DefaultFormat = %d, want 12", cfg.Lag.DefaultFormat)
	}
	if cfg.Optimize.LagReductionPercent != 0.40 {
		t.Errorf("LoadWithEnv() Optimize.LagReductionPercent = %v, want 0.40 (default)", cfg.Optimize.LagReductionPercent)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("LoadWithEnv() Log.Level = %q, want %q (default)", cfg.Log.Level, "info")
	}
}
