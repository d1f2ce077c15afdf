// Package config provides configuration management for HostPulse.
// It uses Viper to load settings from files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Thresholds is a warning/danger pair for one category. Danger must exceed
// warning; Validate rejects anything else at load time.
type Thresholds struct {
	Warning float64 `mapstructure:"warning"`
	Danger  float64 `mapstructure:"danger"`
}

// Config holds all runtime configuration for HostPulse.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────
	ListenHost string `mapstructure:"listen_host"`
	ListenPort int    `mapstructure:"listen_port"`

	// ── Collector ────────────────────────────────────────────────────────────
	// PollIntervalSeconds: cadence of the sampling loop (1–5s is sensible;
	// the web client polls every 3s).
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds"`
	// ProbeTimeoutSeconds caps one category read so a hung OS command can't
	// stall the cycle.
	ProbeTimeoutSeconds int `mapstructure:"probe_timeout_seconds"`
	HistoryCapacity     int `mapstructure:"history_capacity"`
	// Simulate replaces OS probes with labeled synthetic sources.
	Simulate bool `mapstructure:"simulate"`

	// ── Alerts ───────────────────────────────────────────────────────────────
	CPUThresholds    Thresholds `mapstructure:"cpu_thresholds"`
	MemoryThresholds Thresholds `mapstructure:"memory_thresholds"`
	DiskThresholds   Thresholds `mapstructure:"disk_thresholds"`
	CooldownMinutes  int        `mapstructure:"alert_cooldown_minutes"`

	// ── Store ────────────────────────────────────────────────────────────────
	DBPath        string `mapstructure:"db_path"`
	RetentionDays int    `mapstructure:"retention_days"`

	// ── Logging ──────────────────────────────────────────────────────────────
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// Load reads config from file (./config.yaml or ~/.hostpulse/config.yaml)
// and falls back to defaults. Environment variables with prefix PULSE_
// override file values. The returned config has already passed Validate.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_host", "0.0.0.0")
	v.SetDefault("listen_port", 8080)

	v.SetDefault("poll_interval_seconds", 3)
	v.SetDefault("probe_timeout_seconds", 10)
	v.SetDefault("history_capacity", 500)
	v.SetDefault("simulate", false)

	v.SetDefault("cpu_thresholds.warning", 75)
	v.SetDefault("cpu_thresholds.danger", 90)
	v.SetDefault("memory_thresholds.warning", 80)
	v.SetDefault("memory_thresholds.danger", 90)
	v.SetDefault("disk_thresholds.warning", 85)
	v.SetDefault("disk_thresholds.danger", 95)
	v.SetDefault("alert_cooldown_minutes", 5)

	v.SetDefault("db_path", "hostpulse.db")
	v.SetDefault("retention_days", 7)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.hostpulse")
	if err := v.ReadInConfig(); err != nil {
		// config file is optional; ignore "not found" errors
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects malformed configuration with a clear message instead of
// silently coercing values.
func (c *Config) Validate() error {
	pairs := map[string]Thresholds{
		"cpu":    c.CPUThresholds,
		"memory": c.MemoryThresholds,
		"disk":   c.DiskThresholds,
	}
	for name, t := range pairs {
		if t.Danger <= t.Warning {
			return fmt.Errorf("config: %s_thresholds danger (%.1f) must exceed warning (%.1f)",
				name, t.Danger, t.Warning)
		}
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("config: poll_interval_seconds must be positive, got %d", c.PollIntervalSeconds)
	}
	if c.ProbeTimeoutSeconds <= 0 {
		return fmt.Errorf("config: probe_timeout_seconds must be positive, got %d", c.ProbeTimeoutSeconds)
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("config: history_capacity must be positive, got %d", c.HistoryCapacity)
	}
	return nil
}

// PollInterval returns the collector cadence as a Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ProbeTimeout returns the per-probe cap as a Duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// Cooldown returns the alert notification cooldown as a Duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}
