package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"go.uber.org/zap"

	"github.com/seliom/hostpulse/internal/metrics"
)

// CPUSource reads the cumulative kernel CPU counters and derives usage from
// the delta against the previous probe. The first probe therefore reports
// usage as unavailable; every later one has a real sampling interval behind
// it (the collector cadence, well above the 0.5s quantization floor).
type CPUSource struct {
	log         *zap.Logger
	prev        metrics.CPUCounters
	prevPerCore []metrics.CPUCounters
	lastUsage   float64
	primed      bool

	// static facts, read once
	model    string
	cores    int
	physical int
}

// NewCPUSource creates the CPU source.
func NewCPUSource(log *zap.Logger) *CPUSource { return &CPUSource{log: logOrNop(log)} }

func (s *CPUSource) Category() metrics.Category { return metrics.CategoryCPU }

// Probe collects usage, per-core usage, frequency, load averages and the
// package temperature. Any one of those failing leaves the corresponding
// field unavailable; the Sample is still produced.
func (s *CPUSource) Probe(ctx context.Context) (*metrics.Sample, error) {
	sample := metrics.NewSample(metrics.CategoryCPU, time.Now())

	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(times) == 0 {
		return nil, fmt.Errorf("cpu times: %w", err)
	}
	cur := countersFrom(times[0])

	if s.primed {
		usage := metrics.CPUUsagePercent(s.prev, cur, s.lastUsage)
		s.lastUsage = usage
		setField(s.log, sample, metrics.FieldUsagePercent, metrics.Number(usage))
	}
	s.prev = cur

	if perCore, err := cpu.TimesWithContext(ctx, true); err == nil {
		curPerCore := make([]metrics.CPUCounters, len(perCore))
		for i, t := range perCore {
			curPerCore[i] = countersFrom(t)
		}
		if s.primed && len(curPerCore) == len(s.prevPerCore) {
			for i := range curPerCore {
				u := metrics.CPUUsagePercent(s.prevPerCore[i], curPerCore[i], 0)
				setField(s.log, sample, fmt.Sprintf("core%d_percent", i), metrics.Number(u))
			}
		}
		s.prevPerCore = curPerCore
	}
	s.primed = true

	if s.cores == 0 {
		s.cores, _ = cpu.CountsWithContext(ctx, true)
		s.physical, _ = cpu.CountsWithContext(ctx, false)
	}
	if s.cores > 0 {
		setField(s.log, sample, "core_count", metrics.Number(float64(s.cores)))
		setField(s.log, sample, "physical_count", metrics.Number(float64(s.physical)))
	}

	if s.model == "" {
		if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
			s.model = infos[0].ModelName
			if infos[0].Mhz > 0 {
				setField(s.log, sample, "frequency_mhz", metrics.Number(infos[0].Mhz))
			}
		}
	}
	if s.model != "" {
		setField(s.log, sample, "model", metrics.String(s.model))
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		setField(s.log, sample, "load_1", metrics.Number(avg.Load1))
		setField(s.log, sample, "load_5", metrics.Number(avg.Load5))
		setField(s.log, sample, "load_15", metrics.Number(avg.Load15))
	}

	setField(s.log, sample, metrics.FieldTemperatureC, readPackageTemperature())

	return sample, nil
}

func countersFrom(t cpu.TimesStat) metrics.CPUCounters {
	return metrics.CPUCounters{
		User:    t.User,
		Nice:    t.Nice,
		System:  t.System,
		Idle:    t.Idle,
		Iowait:  t.Iowait,
		Irq:     t.Irq,
		Softirq: t.Softirq,
		Steal:   t.Steal,
	}
}

// readPackageTemperature scans /sys/class/thermal for a CPU-ish zone.
// Non-Linux hosts (or containers without the sysfs mount) simply report
// unavailable.
func readPackageTemperature() metrics.Value {
	const base = "/sys/class/thermal"
	zones, err := os.ReadDir(base)
	if err != nil {
		return metrics.Unavailable
	}
	for _, zone := range zones {
		if !strings.HasPrefix(zone.Name(), "thermal_zone") {
			continue
		}
		dir := filepath.Join(base, zone.Name())
		typeRaw, err := os.ReadFile(filepath.Join(dir, "type"))
		if err != nil {
			continue
		}
		zoneType := strings.TrimSpace(string(typeRaw))
		if !strings.Contains(zoneType, "acpitz") &&
			!strings.Contains(zoneType, "x86_pkg_temp") &&
			!strings.Contains(zoneType, "cpu") {
			continue
		}
		tempRaw, err := os.ReadFile(filepath.Join(dir, "temp"))
		if err != nil {
			continue
		}
		milli, err := strconv.Atoi(strings.TrimSpace(string(tempRaw)))
		if err != nil {
			continue
		}
		return metrics.Number(float64(milli) / 1000)
	}
	return metrics.Unavailable
}
