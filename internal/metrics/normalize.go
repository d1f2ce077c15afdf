package metrics

import (
	"regexp"
	"strconv"
	"strings"
)

// CPUCounters is one point-in-time reading of the kernel's cumulative CPU
// time counters (the /proc/stat columns). Units are arbitrary ticks; only
// deltas between two readings are meaningful.
type CPUCounters struct {
	User    float64
	Nice    float64
	System  float64
	Idle    float64
	Iowait  float64
	Irq     float64
	Softirq float64
	Steal   float64
}

// Total returns the sum of all counter columns.
func (c CPUCounters) Total() float64 {
	return c.User + c.Nice + c.System + c.Idle + c.Iowait + c.Irq + c.Softirq + c.Steal
}

// idleTotal is idle plus iowait, matching the usual "not doing work" reading.
func (c CPUCounters) idleTotal() float64 {
	return c.Idle + c.Iowait
}

// CPUUsagePercent computes busy-time percentage from two counter snapshots
// taken at least half a second apart. When the counters did not advance
// (Δtotal == 0) the previous value is returned instead of dividing by zero;
// callers with no previous value pass 0. Counter jitter or a reset can push
// the ratio outside [0,100]; that reading is discarded in favor of the
// fallback rather than clamped, so percentages are never silently coerced.
func CPUUsagePercent(prev, cur CPUCounters, fallback float64) float64 {
	dTotal := cur.Total() - prev.Total()
	if dTotal <= 0 {
		return fallback
	}
	dIdle := cur.idleTotal() - prev.idleTotal()
	usage := 100 * (dTotal - dIdle) / dTotal
	if usage < 0 || usage > 100 {
		return fallback
	}
	return usage
}

// UsedPercent computes used/total*100 from a single snapshot.
// A zero total reads as 0% rather than NaN.
func UsedPercent(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return used / total * 100
}

// ratePattern matches a magnitude followed by an optional unit token,
// e.g. "1.5 Mbps", "230Kbps", "2 gbps".
var ratePattern = regexp.MustCompile(`(?i)^\s*(-?[0-9]+(?:\.[0-9]+)?)\s*([kmg]?bps)?\s*$`)

// ParseRateMbps normalizes a free-form rate string to Mbps. The input comes
// from an untrusted sibling process, so anything unparseable reads as 0.
//
//	"230 Kbps" → 0.23
//	"1.5 Mbps" → 1.5
//	"2 Gbps"   → 2000
//	"garbage"  → 0
func ParseRateMbps(raw string) float64 {
	m := ratePattern.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	mag, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "kbps":
		return mag / 1000
	case "gbps":
		return mag * 1000
	default:
		// Mbps or a bare number already in Mbps.
		return mag
	}
}

// ParseTemperature strips unit suffixes from a temperature reading and keeps
// the "N/A" sentinel as unavailable instead of coercing it to a number.
//
//	"57.0°C" → Number(57.0)
//	"N/A"    → Unavailable
func ParseTemperature(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "n/a") {
		return Unavailable
	}
	s = strings.TrimSuffix(s, "°C")
	s = strings.TrimSuffix(s, "°F")
	s = strings.TrimSuffix(s, "C")
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Unavailable
	}
	return Number(f)
}
