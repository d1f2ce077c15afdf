// Package store persists metric samples to SQLite via GORM for queries that
// outlive the in-memory rolling window: offline analysis, reports, retention
// stats.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seliom/hostpulse/internal/metrics"
	"github.com/seliom/hostpulse/internal/models"
)

// Store wraps the database handle. It is safe for concurrent use; GORM
// serializes access to the SQLite file.
type Store struct {
	db       *gorm.DB
	path     string
	hostname string
	logger   *zap.Logger
}

// Open opens (or creates) the database and runs AutoMigrate.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.AutoMigrate(&models.MetricRecord{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	hostname, _ := os.Hostname()
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("store opened", zap.String("path", path))
	return &Store{db: db, path: path, hostname: hostname, logger: log}, nil
}

// Record inserts one sample row. Implements collector.Recorder.
func (s *Store) Record(ctx context.Context, sample *metrics.Sample) error {
	if sample == nil || len(sample.Fields) == 0 {
		return nil
	}
	fields, err := json.Marshal(sample.Fields)
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}
	rec := models.MetricRecord{
		Timestamp: sample.Timestamp,
		Hostname:  s.hostname,
		Category:  string(sample.Category),
		Fields:    string(fields),
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// Latest returns the most recent records, newest first, optionally filtered
// by category.
func (s *Store) Latest(ctx context.Context, category string, limit int) ([]models.MetricRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("timestamp desc").Limit(limit)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var recs []models.MetricRecord
	err := q.Find(&recs).Error
	return recs, err
}

// Range returns records within [start, end], oldest first.
func (s *Store) Range(ctx context.Context, start, end time.Time, category string) ([]models.MetricRecord, error) {
	q := s.db.WithContext(ctx).
		Where("timestamp BETWEEN ? AND ?", start, end).
		Order("timestamp asc")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var recs []models.MetricRecord
	err := q.Find(&recs).Error
	return recs, err
}

// FieldValues extracts one numeric field from a record range, oldest first.
// Records where the field is missing or non-numeric are skipped.
func (s *Store) FieldValues(ctx context.Context, start, end time.Time, category, field string) ([]float64, error) {
	recs, err := s.Range(ctx, start, end, category)
	if err != nil {
		return nil, err
	}
	var values []float64
	for _, rec := range recs {
		var fields map[string]metrics.Value
		if err := json.Unmarshal([]byte(rec.Fields), &fields); err != nil {
			continue
		}
		if f, ok := fields[field].Float(); ok {
			values = append(values, f)
		}
	}
	return values, nil
}

// Cleanup deletes records older than the retention window and returns the
// number removed.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res := s.db.WithContext(ctx).
		Unscoped().
		Where("timestamp < ?", cutoff).
		Delete(&models.MetricRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	s.logger.Info("store cleanup", zap.Int64("deleted", res.RowsAffected),
		zap.Int("retention_days", retentionDays))
	return res.RowsAffected, nil
}

// Stats reports table totals for the db stats command.
func (s *Store) Stats(ctx context.Context) (*models.StoreStats, error) {
	st := &models.StoreStats{ByCategory: make(map[string]int64), Path: s.path}

	if err := s.db.WithContext(ctx).Model(&models.MetricRecord{}).Count(&st.TotalRecords).Error; err != nil {
		return nil, err
	}

	type catCount struct {
		Category string
		Count    int64
	}
	var counts []catCount
	if err := s.db.WithContext(ctx).Model(&models.MetricRecord{}).
		Select("category, count(*) as count").
		Group("category").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		st.ByCategory[c.Category] = c.Count
	}

	if st.TotalRecords > 0 {
		var oldest, newest models.MetricRecord
		if err := s.db.WithContext(ctx).Order("timestamp asc").First(&oldest).Error; err == nil {
			st.OldestRecord = &oldest.Timestamp
		}
		if err := s.db.WithContext(ctx).Order("timestamp desc").First(&newest).Error; err == nil {
			st.NewestRecord = &newest.Timestamp
		}
	}
	return st, nil
}

// StartRetentionJob schedules a daily cleanup with the given retention.
// Returns a stop function.
func (s *Store) StartRetentionJob(retentionDays int) func() {
	c := newDailyCron(func() {
		if _, err := s.Cleanup(context.Background(), retentionDays); err != nil {
			s.logger.Warn("retention cleanup failed", zap.Error(err))
		}
	})
	return c
}
