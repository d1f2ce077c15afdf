package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	psnet "github.com/shirou/gopsutil/v4/net"
	"go.uber.org/zap"

	"github.com/seliom/hostpulse/internal/metrics"
)

// NetworkTotals is the cross-interface byte counter detail.
type NetworkTotals struct {
	TotalRxBytes uint64 `json:"total_rx_bytes"`
	TotalTxBytes uint64 `json:"total_tx_bytes"`
}

// NetworkSource tracks the primary interface and derives send/receive rates
// from byte counter deltas between probes. Rates are emitted both as the
// upstream-style free-form strings ("230.0 Kbps") and, via the normalizer,
// as numeric Mbps fields.
type NetworkSource struct {
	log      *zap.Logger
	iface    string
	ipv4     string
	ipv6     string
	prevRx   uint64
	prevTx   uint64
	prevTime time.Time
	primed   bool
	totals   NetworkTotals
}

// NewNetworkSource creates the network source.
func NewNetworkSource(log *zap.Logger) *NetworkSource {
	return &NetworkSource{log: logOrNop(log)}
}

func (s *NetworkSource) Category() metrics.Category { return metrics.CategoryNetwork }

func (s *NetworkSource) Probe(ctx context.Context) (*metrics.Sample, error) {
	counters, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("net io counters: %w", err)
	}

	if s.iface == "" {
		s.pickPrimary(ctx)
	}

	now := time.Now()
	sample := metrics.NewSample(metrics.CategoryNetwork, now)

	var total NetworkTotals
	var cur *psnet.IOCountersStat
	for i := range counters {
		total.TotalRxBytes += counters[i].BytesRecv
		total.TotalTxBytes += counters[i].BytesSent
		if counters[i].Name == s.iface {
			cur = &counters[i]
		}
	}
	s.totals = total
	setField(s.log, sample, "total_rx_bytes", metrics.Number(float64(total.TotalRxBytes)))
	setField(s.log, sample, "total_tx_bytes", metrics.Number(float64(total.TotalTxBytes)))

	// Interface vanished (USB adapter pulled, VPN down): fall back to the
	// busiest remaining one next cycle.
	if cur == nil && len(counters) > 0 {
		s.iface = busiest(counters)
		s.primed = false
		for i := range counters {
			if counters[i].Name == s.iface {
				cur = &counters[i]
			}
		}
	}
	if cur == nil {
		return sample, nil
	}

	rxKbps, txKbps := 0.0, 0.0
	if s.primed {
		dt := now.Sub(s.prevTime).Seconds()
		if dt < 0.1 {
			dt = 0.1
		}
		// bits per Kbit = 1000; counter resets read as zero, not negative
		if cur.BytesRecv >= s.prevRx {
			rxKbps = float64(cur.BytesRecv-s.prevRx) * 8 / (dt * 1000)
		}
		if cur.BytesSent >= s.prevTx {
			txKbps = float64(cur.BytesSent-s.prevTx) * 8 / (dt * 1000)
		}
	}
	s.prevRx = cur.BytesRecv
	s.prevTx = cur.BytesSent
	s.prevTime = now
	s.primed = true

	recvRate := fmt.Sprintf("%.1f Kbps", rxKbps)
	sendRate := fmt.Sprintf("%.1f Kbps", txKbps)
	setField(s.log, sample, "recv_rate", metrics.String(recvRate))
	setField(s.log, sample, "send_rate", metrics.String(sendRate))
	setField(s.log, sample, metrics.FieldRecvMbps, metrics.Number(metrics.ParseRateMbps(recvRate)))
	setField(s.log, sample, metrics.FieldSendMbps, metrics.Number(metrics.ParseRateMbps(sendRate)))

	setField(s.log, sample, "adapter", metrics.String(s.iface))
	if s.ipv4 != "" {
		setField(s.log, sample, "ipv4", metrics.String(s.ipv4))
	}
	if s.ipv6 != "" {
		setField(s.log, sample, "ipv6", metrics.String(s.ipv6))
	}

	return sample, nil
}

// Detail returns the cross-interface totals.
func (s *NetworkSource) Detail() any { return s.totals }

// pickPrimary chooses the interface to rate-track: up, non-loopback, with an
// IPv4 address, preferring conventional wired/wireless names.
func (s *NetworkSource) pickPrimary(ctx context.Context) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return
	}

	prefixes := []string{"eth", "wlan", "en", "wl", "veth"}
	var fallback string
	for _, iface := range ifaces {
		if !isUp(iface) {
			continue
		}
		v4, v6 := addressesOf(iface)
		if v4 == "" || strings.HasPrefix(v4, "127.") {
			continue
		}
		if fallback == "" {
			fallback = iface.Name
		}
		for _, p := range prefixes {
			if strings.HasPrefix(strings.ToLower(iface.Name), p) {
				s.iface, s.ipv4, s.ipv6 = iface.Name, v4, v6
				return
			}
		}
	}
	if fallback != "" {
		for _, iface := range ifaces {
			if iface.Name == fallback {
				s.iface = iface.Name
				s.ipv4, s.ipv6 = addressesOf(iface)
				return
			}
		}
	}
}

func isUp(iface psnet.InterfaceStat) bool {
	for _, f := range iface.Flags {
		if f == "up" {
			return true
		}
	}
	return false
}

// addressesOf returns the first IPv4 and IPv6 address, scope IDs stripped.
func addressesOf(iface psnet.InterfaceStat) (v4, v6 string) {
	for _, addr := range iface.Addrs {
		ip := addr.Addr
		if i := strings.Index(ip, "/"); i >= 0 {
			ip = ip[:i]
		}
		if strings.Contains(ip, ":") {
			if v6 == "" {
				v6 = strings.SplitN(ip, "%", 2)[0]
			}
		} else if v4 == "" {
			v4 = ip
		}
	}
	return v4, v6
}

// busiest returns the interface with the most cumulative traffic.
func busiest(counters []psnet.IOCountersStat) string {
	best := counters[0]
	for _, c := range counters[1:] {
		if c.BytesRecv+c.BytesSent > best.BytesRecv+best.BytesSent {
			best = c
		}
	}
	return best.Name
}
