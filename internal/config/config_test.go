package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		ListenHost:          "0.0.0.0",
		ListenPort:          8080,
		PollIntervalSeconds: 3,
		ProbeTimeoutSeconds: 10,
		HistoryCapacity:     500,
		CPUThresholds:       Thresholds{Warning: 75, Danger: 90},
		MemoryThresholds:    Thresholds{Warning: 80, Danger: 90},
		DiskThresholds:      Thresholds{Warning: 85, Danger: 95},
		CooldownMinutes:     5,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("default-shaped config must validate: %v", err)
	}
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	cfg := validConfig()
	cfg.MemoryThresholds = Thresholds{Warning: 90, Danger: 80}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for danger <= warning")
	}

	cfg = validConfig()
	cfg.CPUThresholds = Thresholds{Warning: 75, Danger: 75}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for danger == warning")
	}
}

func TestValidateRejectsNonPositiveDurations(t *testing.T) {
	cfg := validConfig()
	cfg.PollIntervalSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero poll interval")
	}

	cfg = validConfig()
	cfg.ProbeTimeoutSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative probe timeout")
	}

	cfg = validConfig()
	cfg.HistoryCapacity = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero history capacity")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with no config file should use defaults: %v", err)
	}

	if cfg.ListenPort != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.ListenPort)
	}
	if cfg.PollInterval() != 3*time.Second {
		t.Errorf("expected 3s poll interval, got %s", cfg.PollInterval())
	}
	if cfg.ProbeTimeout() != 10*time.Second {
		t.Errorf("expected 10s probe timeout, got %s", cfg.ProbeTimeout())
	}
	if cfg.Cooldown() != 5*time.Minute {
		t.Errorf("expected 5m cooldown, got %s", cfg.Cooldown())
	}
	if cfg.CPUThresholds != (Thresholds{Warning: 75, Danger: 90}) {
		t.Errorf("unexpected cpu thresholds: %+v", cfg.CPUThresholds)
	}
	if cfg.DiskThresholds != (Thresholds{Warning: 85, Danger: 95}) {
		t.Errorf("unexpected disk thresholds: %+v", cfg.DiskThresholds)
	}
	if cfg.HistoryCapacity != 500 {
		t.Errorf("expected capacity 500, got %d", cfg.HistoryCapacity)
	}
	if cfg.Simulate {
		t.Error("simulate must default to off")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PULSE_LISTEN_PORT", "9999")
	t.Setenv("PULSE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenPort != 9999 {
		t.Errorf("expected env override 9999, got %d", cfg.ListenPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected env override debug, got %s", cfg.LogLevel)
	}
}
