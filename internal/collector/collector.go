// Package collector drives the fixed-cadence sampling loop: probe every
// category, normalize, record history, evaluate alerts and publish an
// immutable snapshot for the HTTP layer.
package collector

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/seliom/hostpulse/internal/alert"
	"github.com/seliom/hostpulse/internal/history"
	"github.com/seliom/hostpulse/internal/metrics"
	"github.com/seliom/hostpulse/internal/probe"
)

// DefaultInterval is the poll cadence when the config doesn't set one.
const DefaultInterval = 3 * time.Second

// Snapshot is the full current-state aggregate. It is replaced wholesale
// each cycle and never mutated after publication, so handlers may read it
// without locks.
type Snapshot struct {
	Timestamp time.Time                            `json:"timestamp"`
	Samples   map[metrics.Category]*metrics.Sample `json:"samples"`
	Details   map[metrics.Category]any             `json:"details,omitempty"`
	Display   map[string]string                    `json:"display,omitempty"`
	Alerts    []alert.Event                        `json:"alerts"`
}

// Recorder persists one sample per category per cycle. The sqlite store
// implements it; tests pass nil or a stub.
type Recorder interface {
	Record(ctx context.Context, s *metrics.Sample) error
}

// Notifier delivers newly-notified (cooldown-cleared) alert entries to a
// side channel: log line, browser push, webhook. Called outside any lock.
type Notifier func(entries []alert.HistoryEntry)

// LatencyBuckets are the cycle-duration histogram bounds in milliseconds.
// They observe the collector's own health, not the monitored host.
var LatencyBuckets = []int64{50, 100, 200, 500}

// Collector owns all mutable pipeline state for one process: the rolling
// history, the alert engine and the latest snapshot. Nothing here is a
// package-level global, so independent instances (tests) don't interfere.
type Collector struct {
	sources      []probe.Source
	hist         *history.Rolling
	engine       *alert.Engine
	recorder     Recorder
	notify       Notifier
	logger       *zap.Logger
	interval     time.Duration
	probeTimeout time.Duration

	snapshot atomic.Pointer[Snapshot]
	latency  [5]atomic.Int64 // histogram counters, one per bucket
	cycles   atomic.Int64
}

// Option configures a Collector.
type Option func(*Collector)

// WithInterval sets the poll cadence.
func WithInterval(d time.Duration) Option {
	return func(col *Collector) {
		if d > 0 {
			col.interval = d
		}
	}
}

// WithProbeTimeout caps each per-category read.
func WithProbeTimeout(d time.Duration) Option {
	return func(col *Collector) {
		if d > 0 {
			col.probeTimeout = d
		}
	}
}

// WithRecorder attaches a persistence sink.
func WithRecorder(r Recorder) Option {
	return func(col *Collector) { col.recorder = r }
}

// WithNotifier attaches the alert delivery side channel.
func WithNotifier(n Notifier) Option {
	return func(col *Collector) { col.notify = n }
}

// New builds a collector over the given sources.
func New(sources []probe.Source, hist *history.Rolling, engine *alert.Engine, logger *zap.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	col := &Collector{
		sources:      sources,
		hist:         hist,
		engine:       engine,
		logger:       logger,
		interval:     DefaultInterval,
		probeTimeout: probe.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(col)
	}
	return col
}

// Run polls until ctx is cancelled. The first cycle fires immediately so
// the server has a snapshot before the first client poll. Shutdown drains
// the in-flight cycle; a partial snapshot is never published.
func (col *Collector) Run(ctx context.Context) {
	col.logger.Info("collector started",
		zap.Duration("interval", col.interval),
		zap.Int("sources", len(col.sources)))

	ticker := time.NewTicker(col.interval)
	defer ticker.Stop()

	col.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			col.logger.Info("collector stopped", zap.Int64("cycles", col.cycles.Load()))
			return
		case <-ticker.C:
			col.Cycle(ctx)
		}
	}
}

// Cycle performs one full collection pass. Exported so tests and the
// serve command's warmup can step the pipeline deterministically.
func (col *Collector) Cycle(ctx context.Context) {
	start := time.Now()

	samples := col.probeAll(ctx)

	// Samples within one cycle share a single logical timestamp so history
	// rows line up across categories.
	for _, s := range samples {
		s.Timestamp = start
	}

	for _, s := range samples {
		col.hist.AppendSample(s)
		if col.recorder != nil {
			if err := col.recorder.Record(ctx, s); err != nil {
				col.logger.Warn("record failed",
					zap.String("category", string(s.Category)), zap.Error(err))
			}
		}
	}

	events, notified := col.engine.Evaluate(samples)
	if len(notified) > 0 && col.notify != nil {
		col.notify(notified)
	}

	snap := &Snapshot{
		Timestamp: start,
		Samples:   samples,
		Details:   col.detailsOf(),
		Display:   displayFields(samples),
		Alerts:    events,
	}
	col.snapshot.Store(snap)

	col.cycles.Add(1)
	col.observeLatency(time.Since(start))
}

// probeAll fans out one goroutine per category, each under its own timeout,
// and joins before normalization proceeds. A failed source degrades its
// category to an empty all-unavailable sample for this cycle only.
func (col *Collector) probeAll(ctx context.Context) map[metrics.Category]*metrics.Sample {
	results := make([]*metrics.Sample, len(col.sources))

	var wg conc.WaitGroup
	for i, src := range col.sources {
		i, src := i, src
		wg.Go(func() {
			probeCtx, cancel := context.WithTimeout(ctx, col.probeTimeout)
			defer cancel()

			sample, err := src.Probe(probeCtx)
			if err != nil {
				col.logger.Warn("probe failed",
					zap.String("category", string(src.Category())), zap.Error(err))
				sample = metrics.NewSample(src.Category(), time.Now())
			}
			results[i] = sample
		})
	}
	wg.Wait()

	samples := make(map[metrics.Category]*metrics.Sample, len(results))
	for _, s := range results {
		if s != nil {
			samples[s.Category] = s
		}
	}
	return samples
}

func (col *Collector) detailsOf() map[metrics.Category]any {
	details := make(map[metrics.Category]any)
	for _, src := range col.sources {
		if d, ok := src.(probe.Detailer); ok {
			details[src.Category()] = d.Detail()
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// Latest returns the most recently published snapshot, or nil before the
// first cycle completes.
func (col *Collector) Latest() *Snapshot {
	return col.snapshot.Load()
}

// History exposes the rolling history for query handlers.
func (col *Collector) History() *history.Rolling { return col.hist }

// AlertHistory returns the notified alert entries, newest first.
func (col *Collector) AlertHistory() []alert.HistoryEntry { return col.engine.History() }

// CycleStats reports the cycle count and the latency histogram keyed by
// bucket label.
func (col *Collector) CycleStats() (int64, map[string]int64) {
	hist := map[string]int64{
		"lt_50ms":   col.latency[0].Load(),
		"50_100ms":  col.latency[1].Load(),
		"100_200ms": col.latency[2].Load(),
		"200_500ms": col.latency[3].Load(),
		"gt_500ms":  col.latency[4].Load(),
	}
	return col.cycles.Load(), hist
}

func (col *Collector) observeLatency(d time.Duration) {
	ms := d.Milliseconds()
	for i, bound := range LatencyBuckets {
		if ms < bound {
			col.latency[i].Add(1)
			return
		}
	}
	col.latency[4].Add(1)
}

// displayFields derives human-readable strings (formatted byte sizes,
// uptime) from the raw samples, mirroring what the upstream dashboard
// rendered inline.
func displayFields(samples map[metrics.Category]*metrics.Sample) map[string]string {
	display := make(map[string]string)

	if s := samples[metrics.CategoryMemory]; s != nil {
		if used, ok := s.Float(metrics.FieldUsedBytes); ok {
			display["memory_used"] = humanize.IBytes(uint64(used))
		}
		if total, ok := s.Float(metrics.FieldTotalBytes); ok {
			display["memory_total"] = humanize.IBytes(uint64(total))
		}
	}
	if s := samples[metrics.CategoryDisk]; s != nil {
		if used, ok := s.Float(metrics.FieldUsedBytes); ok {
			display["disk_used"] = humanize.IBytes(uint64(used))
		}
		if total, ok := s.Float(metrics.FieldTotalBytes); ok {
			display["disk_total"] = humanize.IBytes(uint64(total))
		}
	}
	if s := samples[metrics.CategoryNetwork]; s != nil {
		if rx, ok := s.Float("total_rx_bytes"); ok {
			display["network_total_rx"] = humanize.IBytes(uint64(rx))
		}
		if tx, ok := s.Float("total_tx_bytes"); ok {
			display["network_total_tx"] = humanize.IBytes(uint64(tx))
		}
	}
	if s := samples[metrics.CategorySystem]; s != nil {
		if up, ok := s.Get("uptime").Text(); ok {
			display["uptime"] = up
		}
	}
	if len(display) == 0 {
		return nil
	}
	return display
}
