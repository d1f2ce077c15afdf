package probe

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seliom/hostpulse/internal/metrics"
)

// GPUSource shells out to vendor tools. NVIDIA gives full telemetry via
// nvidia-smi; for everything else lspci yields model detection only, with
// usage left unavailable rather than reported as a fake zero.
type GPUSource struct {
	log *zap.Logger

	// model/kind cache after first successful detection; nvidia-smi is
	// still re-run every probe for the live numbers.
	model string
	kind  string
}

// NewGPUSource creates the GPU source.
func NewGPUSource(log *zap.Logger) *GPUSource { return &GPUSource{log: logOrNop(log)} }

func (s *GPUSource) Category() metrics.Category { return metrics.CategoryGPU }

func (s *GPUSource) Probe(ctx context.Context) (*metrics.Sample, error) {
	sample := metrics.NewSample(metrics.CategoryGPU, time.Now())

	if s.probeNvidia(ctx, sample) {
		return sample, nil
	}
	s.probeLspci(ctx, sample)
	return sample, nil
}

// probeNvidia queries nvidia-smi in no-units CSV mode. Returns false when
// the tool is missing or its output doesn't parse.
func (s *GPUSource) probeNvidia(ctx context.Context, sample *metrics.Sample) bool {
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=name,utilization.gpu,temperature.gpu,memory.used,memory.total",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		return false
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	parts := strings.Split(line, ",")
	if len(parts) < 5 {
		return false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	s.model = parts[0]
	s.kind = "Dedicated (NVIDIA)"
	setField(s.log, sample, "model", metrics.String(s.model))
	setField(s.log, sample, "type", metrics.String(s.kind))

	if usage, err := strconv.ParseFloat(parts[1], 64); err == nil {
		setField(s.log, sample, metrics.FieldUsagePercent, metrics.Number(usage))
	}
	setField(s.log, sample, metrics.FieldTemperatureC, metrics.ParseTemperature(parts[2]))

	memUsed, errU := strconv.ParseFloat(parts[3], 64)
	memTotal, errT := strconv.ParseFloat(parts[4], 64)
	if errU == nil && errT == nil {
		// nvidia-smi reports MiB
		setField(s.log, sample, "memory_used_mb", metrics.Number(memUsed))
		setField(s.log, sample, "memory_total_mb", metrics.Number(memTotal))
		setField(s.log, sample, "memory_percent", metrics.Number(metrics.UsedPercent(memUsed, memTotal)))
	}
	return true
}

// probeLspci falls back to bus scanning for model-only detection.
func (s *GPUSource) probeLspci(ctx context.Context, sample *metrics.Sample) {
	if s.model == "" {
		out, err := exec.CommandContext(ctx, "lspci").Output()
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(out), "\n") {
			if !strings.Contains(line, "VGA") &&
				!strings.Contains(line, "3D controller") &&
				!strings.Contains(line, "Display controller") {
				continue
			}
			// "00:02.0 VGA compatible controller: Intel Corporation ..."
			if i := strings.Index(line, ": "); i >= 0 {
				s.model = strings.TrimSpace(line[i+2:])
				s.kind = "Integrated/Other"
			}
			break
		}
	}
	if s.model != "" {
		setField(s.log, sample, "model", metrics.String(s.model))
		setField(s.log, sample, "type", metrics.String(s.kind))
	}
	// usage/temperature deliberately left unavailable: no tool can read them
}
