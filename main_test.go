package main

import (
	"testing"

	"github.com/seliom/hostpulse/internal/config"
	"github.com/seliom/hostpulse/internal/metrics"
)

func TestHeadlineField(t *testing.T) {
	cases := []struct {
		metric string
		want   string
	}{
		{"cpu", metrics.FieldUsagePercent},
		{"gpu", metrics.FieldUsagePercent},
		{"memory", metrics.FieldPercentUsed},
		{"disk", metrics.FieldPercentUsed},
		{"Disk", metrics.FieldPercentUsed},
		{"network", metrics.FieldRecvMbps},
	}
	for _, c := range cases {
		if got := headlineField(c.metric); got != c.want {
			t.Errorf("headlineField(%q) = %q, want %q", c.metric, got, c.want)
		}
	}
}

func TestRulesFrom(t *testing.T) {
	cfg := &config.Config{
		CPUThresholds:    config.Thresholds{Warning: 75, Danger: 90},
		MemoryThresholds: config.Thresholds{Warning: 80, Danger: 90},
		DiskThresholds:   config.Thresholds{Warning: 85, Danger: 95},
	}
	rules := rulesFrom(cfg)
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			t.Errorf("rule %s should validate: %v", r.Category, err)
		}
	}
	if rules[0].Category != metrics.CategoryCPU || rules[0].Field != metrics.FieldUsagePercent {
		t.Errorf("unexpected first rule: %+v", rules[0])
	}
	if rules[2].Danger != 95 {
		t.Errorf("disk danger: expected 95, got %f", rules[2].Danger)
	}
}
