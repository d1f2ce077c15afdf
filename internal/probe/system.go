package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"go.uber.org/zap"

	"github.com/seliom/hostpulse/internal/metrics"
)

// SystemSource reads host-level facts: uptime, process count, logged-in
// users and the OS identity.
type SystemSource struct {
	log    *zap.Logger
	distro string
}

// NewSystemSource creates the system source.
func NewSystemSource(log *zap.Logger) *SystemSource { return &SystemSource{log: logOrNop(log)} }

func (s *SystemSource) Category() metrics.Category { return metrics.CategorySystem }

func (s *SystemSource) Probe(ctx context.Context) (*metrics.Sample, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}

	sample := metrics.NewSample(metrics.CategorySystem, time.Now())
	setField(s.log, sample, "hostname", metrics.String(info.Hostname))
	setField(s.log, sample, "uptime_seconds", metrics.Number(float64(info.Uptime)))
	setField(s.log, sample, "uptime", metrics.String(formatUptime(info.Uptime)))
	setField(s.log, sample, "processes", metrics.Number(float64(info.Procs)))

	if s.distro == "" {
		s.distro = info.Platform
		if info.PlatformVersion != "" {
			s.distro = fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		}
	}
	setField(s.log, sample, "distro", metrics.String(s.distro))
	setField(s.log, sample, "os", metrics.String(info.OS))

	if users, err := host.UsersWithContext(ctx); err == nil {
		setField(s.log, sample, "users", metrics.Number(float64(len(users))))
	}

	return sample, nil
}

// formatUptime renders seconds as "3d 4h 27m".
func formatUptime(seconds uint64) string {
	d := seconds / 86400
	h := seconds % 86400 / 3600
	m := seconds % 3600 / 60
	return fmt.Sprintf("%dd %dh %dm", d, h, m)
}
