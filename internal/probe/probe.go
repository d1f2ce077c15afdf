// Package probe implements the per-category raw reading sources.
// Each platform-specific detail lives behind the Source interface so the
// collector never branches on the OS; the right implementations are picked
// once at startup by Sources().
package probe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seliom/hostpulse/internal/metrics"
)

// DefaultTimeout caps a single probe call so one hung OS command cannot
// stall the whole collection cycle.
const DefaultTimeout = 10 * time.Second

// Source produces one category's Sample. Implementations may keep state
// between calls (CPU counter snapshots, network byte baselines) but must be
// safe to call from a single goroutine at a fixed cadence.
//
// A Source returns an error only when the whole category is unreadable;
// individual missing fields are marked unavailable inside the Sample.
type Source interface {
	Category() metrics.Category
	Probe(ctx context.Context) (*metrics.Sample, error)
}

// Detailer is an optional Source extension exposing category-specific
// structure (partition lists, interface totals) that doesn't fit the flat
// Sample field map.
type Detailer interface {
	Detail() any
}

// Sources builds the production source set, one per category.
func Sources(log *zap.Logger) []Source {
	return []Source{
		NewCPUSource(log),
		NewMemorySource(log),
		NewDiskSource(log),
		NewNetworkSource(log),
		NewGPUSource(log),
		NewSystemSource(log),
	}
}

func logOrNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// setField stores a field and surfaces data-quality rejections (out-of-range
// percentages) in the log instead of dropping them.
func setField(log *zap.Logger, sample *metrics.Sample, field string, v metrics.Value) {
	if err := sample.Set(field, v); err != nil {
		log.Warn("reading rejected", zap.Error(err))
	}
}
