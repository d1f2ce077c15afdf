// Package models defines GORM data models for HostPulse.
package models

import (
	"time"

	"gorm.io/gorm"
)

// MetricRecord stores one category's sample for long-horizon queries.
// The rolling in-memory history answers the live dashboard; this table backs
// the analyze/report commands and survives restarts. Fields is the sample's
// field map serialized as JSON; categories carry different field sets, so a
// fixed column per field would not fit.
type MetricRecord struct {
	gorm.Model

	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Hostname  string    `gorm:"index" json:"hostname"`
	Category  string    `gorm:"index:idx_category_ts" json:"category"`
	Fields    string    `json:"fields"`
	Status    string    `gorm:"default:'ok'" json:"status"`
}

// StoreStats summarizes the table for the db stats command.
type StoreStats struct {
	TotalRecords int64            `json:"total_records"`
	ByCategory   map[string]int64 `json:"by_category"`
	OldestRecord *time.Time       `json:"oldest_record,omitempty"`
	NewestRecord *time.Time       `json:"newest_record,omitempty"`
	Path         string           `json:"db_path"`
}
