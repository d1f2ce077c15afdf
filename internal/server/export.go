package server

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seliom/hostpulse/internal/history"
	"github.com/seliom/hostpulse/internal/metrics"
)

// exportSeries lists the (category, field) pairs flattened into CSV rows,
// in column order.
var exportSeries = []struct {
	Column   string
	Category metrics.Category
	Field    string
}{
	{"cpu", metrics.CategoryCPU, metrics.FieldUsagePercent},
	{"memory", metrics.CategoryMemory, metrics.FieldPercentUsed},
	{"net_in_mbps", metrics.CategoryNetwork, metrics.FieldRecvMbps},
	{"net_out_mbps", metrics.CategoryNetwork, metrics.FieldSendMbps},
	{"disk_read_bps", metrics.CategoryDisk, "read_bytes_per_sec"},
	{"disk_write_bps", metrics.CategoryDisk, "write_bytes_per_sec"},
}

// handleExportJSON writes the current snapshot plus the full rolling
// history as a downloadable JSON document.
func (s *Server) handleExportJSON(c *gin.Context) {
	snap := s.col.Latest()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot yet"})
		return
	}

	hist := s.col.History()
	series := make(map[string][]history.Point)
	for _, key := range hist.Keys() {
		name := fmt.Sprintf("%s.%s", key.Category, key.Field)
		series[name] = hist.LastN(key.Category, key.Field, history.DefaultCapacity)
	}

	c.Header("Content-Disposition", "attachment; filename="+exportName("json"))
	c.JSON(http.StatusOK, gin.H{
		"exported_at": time.Now(),
		"current":     clientPayload(snap),
		"history":     series,
	})
}

// handleExportCSV flattens the rolling history into one row per cycle.
// A series missing a value for some timestamp emits 0 for that cell, never
// a blank: downstream spreadsheet tooling chokes on ragged rows.
func (s *Server) handleExportCSV(c *gin.Context) {
	hist := s.col.History()

	// Rows are keyed by cycle timestamp; all categories in one cycle share
	// a single logical timestamp, so alignment is exact.
	rows := make(map[int64]map[string]float64)
	for _, es := range exportSeries {
		for _, p := range hist.LastN(es.Category, es.Field, history.DefaultCapacity) {
			ts := p.Timestamp.UnixMilli()
			if rows[ts] == nil {
				rows[ts] = make(map[string]float64)
			}
			rows[ts][es.Column] = p.Value
		}
	}

	stamps := make([]int64, 0, len(rows))
	for ts := range rows {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"time"}
	for _, es := range exportSeries {
		header = append(header, es.Column)
	}
	_ = w.Write(header)

	for _, ts := range stamps {
		row := []string{time.UnixMilli(ts).Format(time.RFC3339)}
		for _, es := range exportSeries {
			row = append(row, strconv.FormatFloat(rows[ts][es.Column], 'f', -1, 64))
		}
		_ = w.Write(row)
	}
	w.Flush()

	c.Header("Content-Disposition", "attachment; filename="+exportName("csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// exportName embeds the date and time in the download filename.
func exportName(ext string) string {
	return fmt.Sprintf("hostpulse_%s.%s", time.Now().Format("2006-01-02_150405"), ext)
}
