package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"go.uber.org/zap"

	"github.com/seliom/hostpulse/internal/metrics"
)

// Partition is the per-mountpoint detail attached to the disk sample.
// The first entry is the primary (root or largest) partition.
type Partition struct {
	Device      string  `json:"device"`
	Mountpoint  string  `json:"mountpoint"`
	Filesystem  string  `json:"filesystem"`
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	PercentUsed float64 `json:"percent_used"`
}

// DiskSource reads usage for every physical partition plus device I/O
// rates from counter deltas. Partitions the process cannot stat
// (permissions, stale mounts) are skipped, matching the degrade-don't-fail
// rule. The upstream dashboard fabricated disk I/O numbers client-side;
// here they are measured for real or reported unavailable.
type DiskSource struct {
	log        *zap.Logger
	partitions []Partition

	prevRead  uint64
	prevWrite uint64
	prevTime  time.Time
	primed    bool
}

// NewDiskSource creates the disk source.
func NewDiskSource(log *zap.Logger) *DiskSource { return &DiskSource{log: logOrNop(log)} }

func (s *DiskSource) Category() metrics.Category { return metrics.CategoryDisk }

func (s *DiskSource) Probe(ctx context.Context) (*metrics.Sample, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}

	var list []Partition
	for _, p := range parts {
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		list = append(list, Partition{
			Device:      p.Device,
			Mountpoint:  p.Mountpoint,
			Filesystem:  p.Fstype,
			TotalBytes:  usage.Total,
			UsedBytes:   usage.Used,
			FreeBytes:   usage.Free,
			PercentUsed: metrics.UsedPercent(float64(usage.Used), float64(usage.Total)),
		})
	}
	s.partitions = list

	sample := metrics.NewSample(metrics.CategoryDisk, time.Now())
	if len(list) == 0 {
		return sample, nil
	}

	primary := primaryPartition(list)
	setField(s.log, sample, metrics.FieldPercentUsed, metrics.Number(primary.PercentUsed))
	setField(s.log, sample, metrics.FieldTotalBytes, metrics.Number(float64(primary.TotalBytes)))
	setField(s.log, sample, metrics.FieldUsedBytes, metrics.Number(float64(primary.UsedBytes)))
	setField(s.log, sample, metrics.FieldFreeBytes, metrics.Number(float64(primary.FreeBytes)))
	setField(s.log, sample, "mountpoint", metrics.String(primary.Mountpoint))
	setField(s.log, sample, "filesystem", metrics.String(primary.Filesystem))

	s.probeIORates(ctx, sample)
	return sample, nil
}

// probeIORates sums read/write byte counters across devices and converts
// the delta since the previous probe to bytes per second. First probe and
// unreadable counters leave the fields unavailable.
func (s *DiskSource) probeIORates(ctx context.Context, sample *metrics.Sample) {
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil || len(counters) == 0 {
		return
	}
	var read, write uint64
	for _, c := range counters {
		read += c.ReadBytes
		write += c.WriteBytes
	}

	now := time.Now()
	if s.primed {
		dt := now.Sub(s.prevTime).Seconds()
		if dt > 0 && read >= s.prevRead && write >= s.prevWrite {
			setField(s.log, sample, "read_bytes_per_sec", metrics.Number(float64(read-s.prevRead)/dt))
			setField(s.log, sample, "write_bytes_per_sec", metrics.Number(float64(write-s.prevWrite)/dt))
		}
	}
	s.prevRead, s.prevWrite, s.prevTime = read, write, now
	s.primed = true
}

// Detail returns the full partition list, primary first.
func (s *DiskSource) Detail() any {
	if len(s.partitions) == 0 {
		return []Partition{}
	}
	primary := primaryPartition(s.partitions)
	out := make([]Partition, 0, len(s.partitions))
	out = append(out, primary)
	for _, p := range s.partitions {
		if p.Mountpoint != primary.Mountpoint {
			out = append(out, p)
		}
	}
	return out
}

// primaryPartition prefers the root mount, then falls back to the largest.
func primaryPartition(list []Partition) Partition {
	largest := list[0]
	for _, p := range list {
		if p.Mountpoint == "/" || p.Mountpoint == "C:" || p.Mountpoint == `C:\` {
			return p
		}
		if p.TotalBytes > largest.TotalBytes {
			largest = p
		}
	}
	return largest
}
