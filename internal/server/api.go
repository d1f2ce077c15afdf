// Package server provides the HostPulse Gin-based REST API consumed by the
// polling web client. The metrics endpoint is unauthenticated by design:
// the process serves a single host's own telemetry.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/seliom/hostpulse/internal/collector"
	"github.com/seliom/hostpulse/internal/history"
	"github.com/seliom/hostpulse/internal/metrics"
)

// Server wires HTTP handlers to one collector instance. No package-level
// state: multiple servers (tests) coexist freely.
type Server struct {
	col    *collector.Collector
	logger *zap.Logger
}

// New creates a Server over a collector.
func New(col *collector.Collector, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{col: col, logger: logger}
}

// Engine builds the Gin engine with all routes registered.
func (s *Server) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/metrics", s.handleMetrics)
		api.GET("/history", s.handleHistory)
		api.GET("/trend", s.handleTrend)
		api.GET("/alerts", s.handleAlerts)
		api.GET("/analyze", s.handleAnalyze)
		api.GET("/export/json", s.handleExportJSON)
		api.GET("/export/csv", s.handleExportCSV)
		api.POST("/history/clear", s.handleHistoryClear)
		api.GET("/health", s.handleHealth)
	}

	registerStaticFiles(r)
	return r
}

// corsMiddleware lets a separately-hosted frontend poll the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// handleMetrics returns the latest snapshot in the shape the web client
// expects: one sub-object per category, disk as an array (primary first),
// network split into detailed + totals.
func (s *Server) handleMetrics(c *gin.Context) {
	snap := s.col.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot yet"})
		return
	}
	c.JSON(http.StatusOK, clientPayload(snap))
}

// handleHistory returns recent points for one series, oldest first.
//
//	GET /api/history?metric=cpu&field=usage_percent&n=100
func (s *Server) handleHistory(c *gin.Context) {
	cat := metrics.Category(c.DefaultQuery("metric", string(metrics.CategoryCPU)))
	field := c.DefaultQuery("field", defaultFieldFor(cat))
	n, err := strconv.Atoi(c.DefaultQuery("n", "100"))
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
		return
	}

	points := s.col.History().LastN(cat, field, n)
	c.JSON(http.StatusOK, gin.H{
		"metric": cat,
		"field":  field,
		"points": points,
	})
}

// handleTrend returns the coarse trend classification plus aggregates.
func (s *Server) handleTrend(c *gin.Context) {
	cat := metrics.Category(c.DefaultQuery("metric", string(metrics.CategoryCPU)))
	field := c.DefaultQuery("field", defaultFieldFor(cat))

	hist := s.col.History()
	stats, ok := hist.Aggregate(cat, field)
	resp := gin.H{
		"metric": cat,
		"field":  field,
		"trend":  hist.TrendOf(cat, field),
	}
	if ok {
		resp["stats"] = stats
	}
	c.JSON(http.StatusOK, resp)
}

// handleAlerts returns current breaches and the notified history (last 50).
func (s *Server) handleAlerts(c *gin.Context) {
	snap := s.col.Latest()
	current := []any{}
	if snap != nil {
		for _, ev := range snap.Alerts {
			current = append(current, ev)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"current": current,
		"history": s.col.AlertHistory(),
	})
}

// handleAnalyze runs the statistical report over one in-memory series.
func (s *Server) handleAnalyze(c *gin.Context) {
	cat := metrics.Category(c.DefaultQuery("metric", string(metrics.CategoryCPU)))
	field := c.DefaultQuery("field", defaultFieldFor(cat))

	points := s.col.History().LastN(cat, field, history.DefaultCapacity)
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	c.JSON(http.StatusOK, gin.H{
		"metric":   cat,
		"field":    field,
		"analysis": history.Analyze(values),
	})
}

// handleHistoryClear resets the rolling history. User-initiated only.
func (s *Server) handleHistoryClear(c *gin.Context) {
	s.col.History().Clear()
	s.logger.Info("history cleared by client request")
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// handleHealth reports liveness plus the collector's own cycle stats.
func (s *Server) handleHealth(c *gin.Context) {
	cycles, latency := s.col.CycleStats()
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"time":               time.Now().UTC(),
		"cycles":             cycles,
		"cycle_latency_ms":   latency,
		"snapshot_available": s.col.Latest() != nil,
	})
}

// defaultFieldFor maps a category to its headline numeric field.
func defaultFieldFor(cat metrics.Category) string {
	switch cat {
	case metrics.CategoryMemory, metrics.CategoryDisk:
		return metrics.FieldPercentUsed
	case metrics.CategoryNetwork:
		return metrics.FieldRecvMbps
	default:
		return metrics.FieldUsagePercent
	}
}

// clientPayload flattens a snapshot into the polling client's JSON shape.
func clientPayload(snap *collector.Snapshot) gin.H {
	get := func(cat metrics.Category) map[string]metrics.Value {
		if s := snap.Samples[cat]; s != nil {
			return s.Fields
		}
		return map[string]metrics.Value{}
	}

	network := gin.H{
		"detailed": get(metrics.CategoryNetwork),
	}
	if d, ok := snap.Details[metrics.CategoryNetwork]; ok {
		network["totals"] = d
	}

	var disks any = []any{}
	if d, ok := snap.Details[metrics.CategoryDisk]; ok {
		disks = d
	}

	return gin.H{
		"timestamp": snap.Timestamp,
		"cpu":       get(metrics.CategoryCPU),
		"memory":    get(metrics.CategoryMemory),
		"disk":      disks,
		"disk_io":   get(metrics.CategoryDisk),
		"network":   network,
		"gpu":       get(metrics.CategoryGPU),
		"system":    get(metrics.CategorySystem),
		"display":   snap.Display,
		"alerts":    snap.Alerts,
	}
}
