package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/seliom/hostpulse/internal/metrics"
)

// MemorySource reads virtual memory and swap from a single snapshot.
type MemorySource struct {
	log *zap.Logger
}

// NewMemorySource creates the memory source.
func NewMemorySource(log *zap.Logger) *MemorySource { return &MemorySource{log: logOrNop(log)} }

func (s *MemorySource) Category() metrics.Category { return metrics.CategoryMemory }

func (s *MemorySource) Probe(ctx context.Context) (*metrics.Sample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}

	sample := metrics.NewSample(metrics.CategoryMemory, time.Now())
	setField(s.log, sample, metrics.FieldTotalBytes, metrics.Number(float64(vm.Total)))
	setField(s.log, sample, metrics.FieldUsedBytes, metrics.Number(float64(vm.Used)))
	setField(s.log, sample, "available_bytes", metrics.Number(float64(vm.Available)))
	setField(s.log, sample, metrics.FieldPercentUsed,
		metrics.Number(metrics.UsedPercent(float64(vm.Used), float64(vm.Total))))
	setField(s.log, sample, "buffers_cache_bytes", metrics.Number(float64(vm.Buffers+vm.Cached)))

	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		setField(s.log, sample, "swap_total_bytes", metrics.Number(float64(swap.Total)))
		setField(s.log, sample, "swap_used_bytes", metrics.Number(float64(swap.Used)))
	}

	return sample, nil
}
