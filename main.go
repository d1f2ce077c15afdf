// HostPulse: single-binary host telemetry service with a polling web
// dashboard, threshold alerts and SQLite-backed analysis.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seliom/hostpulse/internal/alert"
	"github.com/seliom/hostpulse/internal/collector"
	"github.com/seliom/hostpulse/internal/config"
	"github.com/seliom/hostpulse/internal/history"
	"github.com/seliom/hostpulse/internal/logx"
	"github.com/seliom/hostpulse/internal/metrics"
	"github.com/seliom/hostpulse/internal/probe"
	"github.com/seliom/hostpulse/internal/server"
	"github.com/seliom/hostpulse/internal/store"
)

const asciiLogo = `
 ██╗  ██╗ ██████╗ ███████╗████████╗██████╗ ██╗   ██╗██╗     ███████╗███████╗
 ██║  ██║██╔═══██╗██╔════╝╚══██╔══╝██╔══██╗██║   ██║██║     ██╔════╝██╔════╝
 ███████║██║   ██║███████╗   ██║   ██████╔╝██║   ██║██║     ███████╗█████╗
 ██╔══██║██║   ██║╚════██║   ██║   ██╔═══╝ ██║   ██║██║     ╚════██║██╔══╝
 ██║  ██║╚██████╔╝███████║   ██║   ██║     ╚██████╔╝███████╗███████║███████╗
 ╚═╝  ╚═╝ ╚═════╝ ╚══════╝   ╚═╝   ╚═╝      ╚═════╝ ╚══════╝╚══════╝╚══════╝
`

const version = "v0.1.0"

func printBanner(mode string) {
	fmt.Print(asciiLogo + "\n")
	fmt.Printf("  ► HostPulse %s  |  Mode: %s\n\n", version, mode)
}

func main() {
	root := &cobra.Command{
		Use:   "hostpulse",
		Short: "HostPulse — single-host telemetry dashboard and alerting",
		Long: `HostPulse samples CPU, memory, disk, network, GPU and system telemetry
on a fixed cadence, serves it to a polling web dashboard, raises threshold
alerts and keeps a SQLite window for offline analysis.`,
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd(), analyzeCmd(), dbCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func logxNew(cfg *config.Config) *zap.Logger {
	return logx.New(cfg.LogLevel, cfg.LogFile)
}

// rulesFrom maps the config threshold pairs onto alert rules.
func rulesFrom(cfg *config.Config) []alert.Rule {
	return []alert.Rule{
		{Category: metrics.CategoryCPU, Field: metrics.FieldUsagePercent,
			Warning: cfg.CPUThresholds.Warning, Danger: cfg.CPUThresholds.Danger},
		{Category: metrics.CategoryMemory, Field: metrics.FieldPercentUsed,
			Warning: cfg.MemoryThresholds.Warning, Danger: cfg.MemoryThresholds.Danger},
		{Category: metrics.CategoryDisk, Field: metrics.FieldPercentUsed,
			Warning: cfg.DiskThresholds.Warning, Danger: cfg.DiskThresholds.Danger},
	}
}

func serveCmd() *cobra.Command {
	var simulate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HostPulse collector and web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if simulate {
				cfg.Simulate = true
			}

			mode := "SERVE"
			if cfg.Simulate {
				mode = "SERVE (simulated)"
			}
			printBanner(mode)

			logger := logxNew(cfg)
			defer func() { _ = logger.Sync() }()

			st, err := store.Open(cfg.DBPath, logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			stopRetention := st.StartRetentionJob(cfg.RetentionDays)
			defer stopRetention()

			engine, err := alert.NewEngine(rulesFrom(cfg), alert.WithCooldown(cfg.Cooldown()))
			if err != nil {
				return fmt.Errorf("building alert engine: %w", err)
			}

			sources := probe.Sources(logger)
			if cfg.Simulate {
				sources = probe.SimulatedSources(time.Now().UnixNano())
			}

			col := collector.New(sources, history.New(cfg.HistoryCapacity), engine, logger,
				collector.WithInterval(cfg.PollInterval()),
				collector.WithProbeTimeout(cfg.ProbeTimeout()),
				collector.WithRecorder(st),
				collector.WithNotifier(func(entries []alert.HistoryEntry) {
					for _, e := range entries {
						logger.Warn("alert", zap.String("rule", e.RuleID),
							zap.String("level", string(e.Level)),
							zap.String("message", e.Message))
					}
				}),
			)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			collectorDone := make(chan struct{})
			go func() {
				defer close(collectorDone)
				col.Run(ctx)
			}()

			addr := fmt.Sprintf("%s:%d", cfg.ListenHost, cfg.ListenPort)
			srv := &http.Server{Addr: addr, Handler: server.New(col, logger).Engine()}

			fmt.Printf("  ✓ Dashboard → http://%s\n", addr)
			fmt.Printf("  ✓ Metrics   → http://%s/api/metrics\n", addr)
			fmt.Printf("  ✓ Database  → %s\n\n", cfg.DBPath)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt)

			select {
			case err := <-errCh:
				return err
			case <-quit:
				fmt.Println("\n  → Shutting down gracefully…")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = srv.Shutdown(shutdownCtx)
				cancel()
				<-collectorDone // drain the in-flight cycle
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Replace OS probes with labeled synthetic sources")
	return cmd
}

func analyzeCmd() *cobra.Command {
	var hours int
	var metric, field string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run statistical analysis over stored metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := logxNew(cfg)
			defer func() { _ = logger.Sync() }()

			st, err := store.Open(cfg.DBPath, logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}

			if field == "" {
				field = headlineField(metric)
			}
			end := time.Now()
			start := end.Add(-time.Duration(hours) * time.Hour)
			values, err := st.FieldValues(cmd.Context(), start, end, metric, field)
			if err != nil {
				return fmt.Errorf("reading values: %w", err)
			}
			if len(values) == 0 {
				fmt.Printf("No %s.%s data in the last %dh.\n", metric, field, hours)
				return nil
			}

			a := history.Analyze(values)
			fmt.Printf("Analysis of %s.%s over the last %dh (%d points)\n\n",
				metric, field, hours, a.DataPoints)
			fmt.Printf("  min / max      %.2f / %.2f\n", a.Statistics.Min, a.Statistics.Max)
			fmt.Printf("  mean / median  %.2f / %.2f\n", a.Statistics.Mean, a.Statistics.Median)
			fmt.Printf("  p90 / p95 / p99  %.2f / %.2f / %.2f\n",
				a.Statistics.P90, a.Statistics.P95, a.Statistics.P99)
			fmt.Printf("  trend          %s\n", a.Trend)
			fmt.Printf("  anomalies      %d\n", a.Anomalies)
			if a.Predicted != nil {
				fmt.Printf("  predicted next %.2f\n", *a.Predicted)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 24, "Window to analyze, in hours")
	cmd.Flags().StringVar(&metric, "metric", "cpu", "Category: cpu, memory, disk, network, gpu")
	cmd.Flags().StringVar(&field, "field", "", "Field within the category (default: headline field)")
	return cmd
}

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the metrics database",
	}

	openStore := func() (*store.Store, *config.Config, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		st, err := store.Open(cfg.DBPath, logxNew(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("opening store: %w", err)
		}
		return st, cfg, nil
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print record counts and time range",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading stats: %w", err)
			}
			fmt.Printf("Database: %s\n", stats.Path)
			fmt.Printf("Records:  %d\n", stats.TotalRecords)
			for _, cat := range metrics.Categories {
				if n, ok := stats.ByCategory[string(cat)]; ok {
					fmt.Printf("  %-8s %d\n", cat, n)
				}
			}
			if stats.OldestRecord != nil && stats.NewestRecord != nil {
				fmt.Printf("Range:    %s → %s\n",
					stats.OldestRecord.Format(time.RFC3339),
					stats.NewestRecord.Format(time.RFC3339))
			}
			return nil
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete records older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cfg, err := openStore()
			if err != nil {
				return err
			}
			deleted, err := st.Cleanup(cmd.Context(), cfg.RetentionDays)
			if err != nil {
				return fmt.Errorf("cleanup: %w", err)
			}
			fmt.Printf("Deleted %d records older than %d days.\n", deleted, cfg.RetentionDays)
			return nil
		},
	}

	var latestN int
	var latestCat string
	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the most recent records",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore()
			if err != nil {
				return err
			}
			recs, err := st.Latest(cmd.Context(), latestCat, latestN)
			if err != nil {
				return fmt.Errorf("reading records: %w", err)
			}
			for _, r := range recs {
				fmt.Printf("%s  %-8s %s\n", r.Timestamp.Format(time.RFC3339), r.Category, r.Fields)
			}
			return nil
		},
	}
	latestCmd.Flags().IntVar(&latestN, "n", 10, "Number of records")
	latestCmd.Flags().StringVar(&latestCat, "metric", "", "Filter by category")

	cmd.AddCommand(statsCmd, cleanupCmd, latestCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print HostPulse version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("HostPulse %s\n", version)
		},
	}
}

// headlineField matches the API's default field per category.
func headlineField(metric string) string {
	switch strings.ToLower(metric) {
	case "memory", "disk":
		return metrics.FieldPercentUsed
	case "network":
		return metrics.FieldRecvMbps
	default:
		return metrics.FieldUsagePercent
	}
}
