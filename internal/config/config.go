// Package config loads engine configuration from a YAML file with
// environment-variable overrides, the same two-layer approach and
// injectable-getenv test seam the rest of this codebase uses for
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Lag      LagConfig      `yaml:"lag"`
	Optimize OptimizeConfig `yaml:"optimize"`
	Log      LogConfig      `yaml:"log"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

// LagConfig holds a default lag format code. It is loaded from the config
// file and SCHEDULED_DEFAULT_LAG_FORMAT, but no other package reads it:
// ingest stores the LagFormat each link carries (0 when absent).
type LagConfig struct {
	DefaultFormat int `yaml:"default_format"`
}

// OptimizeConfig tunes the two built-in optimization strategies.
type OptimizeConfig struct {
	LagReductionPercent   float64 `yaml:"lag_reduction_percent"`
	CompressionPercent    float64 `yaml:"compression_percent"`
	CompressionMinHours   float64 `yaml:"compression_min_hours"`
	CompressionCostPerDay float64 `yaml:"compression_cost_per_day"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "",
		},
		Lag: LagConfig{
			DefaultFormat: 7, // working days
		},
		Optimize: OptimizeConfig{
			LagReductionPercent:   0.40,
			CompressionPercent:    0.20,
			CompressionMinHours:   1,
			CompressionCostPerDay: 500,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration using the real environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment lookup
// function. This allows tests to provide isolated environment values.
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPathWithEnv(getenv)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if path := getenv("SCHEDULED_STORE_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if level := getenv("SCHEDULED_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := getenv("SCHEDULED_DEFAULT_LAG_FORMAT"); format != "" {
		if n, err := strconv.Atoi(format); err == nil {
			cfg.Lag.DefaultFormat = n
		}
	}

	return cfg, nil
}

func getConfigPath() string {
	return getConfigPathWithEnv(os.Getenv)
}

func getConfigPathWithEnv(getenv func(string) string) string {
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "scheduled", "config.yaml")
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "scheduled", "config.yaml")
}
