package probe

import (
	"context"
	"math/rand"
	"time"

	"github.com/seliom/hostpulse/internal/metrics"
)

// Static is a fixed-output Source for tests and composition.
type Static struct {
	Cat    metrics.Category
	Fields map[string]metrics.Value
	Err    error
}

func (s *Static) Category() metrics.Category { return s.Cat }

func (s *Static) Probe(ctx context.Context) (*metrics.Sample, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	sample := metrics.NewSample(s.Cat, time.Now())
	for k, v := range s.Fields {
		sample.Fields[k] = v
	}
	return sample, nil
}

// Simulated produces plausible wandering values without touching the OS.
// It exists for demos and tests and is always explicitly selected
// (--simulate); real collection paths never fabricate data.
type Simulated struct {
	cat  metrics.Category
	rng  *rand.Rand
	base float64
}

// SimulatedSources returns a full labeled simulation set, one per category.
// The collector probes categories concurrently and math/rand.Rand is not
// goroutine-safe, so each source carries its own generator.
func SimulatedSources(seed int64) []Source {
	mk := func(i int64, cat metrics.Category, base float64) *Simulated {
		return &Simulated{cat: cat, rng: rand.New(rand.NewSource(seed + i)), base: base}
	}
	return []Source{
		mk(0, metrics.CategoryCPU, 35),
		mk(1, metrics.CategoryMemory, 55),
		mk(2, metrics.CategoryDisk, 62),
		mk(3, metrics.CategoryNetwork, 4),
		mk(4, metrics.CategoryGPU, 20),
		mk(5, metrics.CategorySystem, 0),
	}
}

func (s *Simulated) Category() metrics.Category { return s.cat }

func (s *Simulated) Probe(ctx context.Context) (*metrics.Sample, error) {
	sample := metrics.NewSample(s.cat, time.Now())
	wander := func(spread float64) float64 {
		v := s.base + (s.rng.Float64()-0.5)*spread
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return v
	}

	switch s.cat {
	case metrics.CategoryCPU:
		_ = sample.Set(metrics.FieldUsagePercent, metrics.Number(wander(30)))
		_ = sample.Set("core_count", metrics.Number(8))
		_ = sample.Set("model", metrics.String("Simulated CPU"))
		_ = sample.Set("load_1", metrics.Number(wander(30)/25))
	case metrics.CategoryMemory:
		_ = sample.Set(metrics.FieldPercentUsed, metrics.Number(wander(20)))
		_ = sample.Set(metrics.FieldTotalBytes, metrics.Number(16<<30))
		_ = sample.Set(metrics.FieldUsedBytes, metrics.Number(wander(20)/100*(16<<30)))
	case metrics.CategoryDisk:
		_ = sample.Set(metrics.FieldPercentUsed, metrics.Number(wander(4)))
		_ = sample.Set(metrics.FieldTotalBytes, metrics.Number(512<<30))
		_ = sample.Set("mountpoint", metrics.String("/"))
	case metrics.CategoryNetwork:
		rx := s.base + s.rng.Float64()*8
		tx := s.rng.Float64() * 2
		_ = sample.Set(metrics.FieldRecvMbps, metrics.Number(rx))
		_ = sample.Set(metrics.FieldSendMbps, metrics.Number(tx))
		_ = sample.Set("adapter", metrics.String("sim0"))
	case metrics.CategoryGPU:
		_ = sample.Set(metrics.FieldUsagePercent, metrics.Number(wander(40)))
		_ = sample.Set("model", metrics.String("Simulated GPU"))
		_ = sample.Set("type", metrics.String("Simulated"))
		_ = sample.Set(metrics.FieldTemperatureC, metrics.Number(45+s.rng.Float64()*20))
	case metrics.CategorySystem:
		_ = sample.Set("hostname", metrics.String("simulated-host"))
		_ = sample.Set("uptime_seconds", metrics.Number(float64(time.Now().Unix()%864000)))
		_ = sample.Set("processes", metrics.Number(200+s.rng.Float64()*50))
		_ = sample.Set("distro", metrics.String("Simulation"))
	}
	return sample, nil
}
