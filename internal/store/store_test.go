package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/seliom/hostpulse/internal/metrics"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

func sampleAt(ts time.Time, percent float64) *metrics.Sample {
	s := metrics.NewSample(metrics.CategoryCPU, ts)
	_ = s.Set(metrics.FieldUsagePercent, metrics.Number(percent))
	return s
}

func TestRecordAndLatest(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		if err := st.Record(ctx, sampleAt(base.Add(time.Duration(i)*time.Minute), float64(10+i))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recs, err := st.Latest(ctx, "cpu", 3)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	// Newest first.
	if !recs[0].Timestamp.After(recs[1].Timestamp) {
		t.Error("Latest must order newest first")
	}

	if recs, _ := st.Latest(ctx, "memory", 10); len(recs) != 0 {
		t.Errorf("category filter should exclude cpu rows, got %d", len(recs))
	}
}

func TestRecordSkipsEmptySample(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.Record(ctx, metrics.NewSample(metrics.CategoryGPU, time.Now())); err != nil {
		t.Fatalf("Record: %v", err)
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 0 {
		t.Errorf("empty samples must not be persisted, got %d rows", stats.TotalRecords)
	}
}

func TestFieldValues(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, v := range []float64{10, 20, 30} {
		if err := st.Record(ctx, sampleAt(base.Add(time.Duration(i)*time.Minute), v)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	// A sample without the field is skipped, not read as zero.
	other := metrics.NewSample(metrics.CategoryCPU, base.Add(90*time.Second))
	_ = other.Set("model", metrics.String("test"))
	if err := st.Record(ctx, other); err != nil {
		t.Fatalf("Record: %v", err)
	}

	values, err := st.FieldValues(ctx, base.Add(-time.Minute), time.Now(), "cpu", metrics.FieldUsagePercent)
	if err != nil {
		t.Fatalf("FieldValues: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}
	// Oldest first.
	if values[0] != 10 || values[2] != 30 {
		t.Errorf("expected [10 20 30], got %v", values)
	}
}

func TestCleanup(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -30)
	if err := st.Record(ctx, sampleAt(old, 50)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := st.Record(ctx, sampleAt(time.Now(), 60)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	deleted, err := st.Cleanup(ctx, 7)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted row, got %d", deleted)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 1 {
		t.Errorf("expected 1 remaining row, got %d", stats.TotalRecords)
	}
}

func TestStats(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	if err := st.Record(ctx, sampleAt(base, 10)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	mem := metrics.NewSample(metrics.CategoryMemory, base.Add(time.Minute))
	_ = mem.Set(metrics.FieldPercentUsed, metrics.Number(55))
	if err := st.Record(ctx, mem); err != nil {
		t.Fatalf("Record: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRecords != 2 {
		t.Errorf("expected 2 rows, got %d", stats.TotalRecords)
	}
	if stats.ByCategory["cpu"] != 1 || stats.ByCategory["memory"] != 1 {
		t.Errorf("unexpected category counts: %v", stats.ByCategory)
	}
	if stats.OldestRecord == nil || stats.NewestRecord == nil {
		t.Fatal("expected oldest/newest timestamps")
	}
	if !stats.NewestRecord.After(*stats.OldestRecord) {
		t.Error("newest must follow oldest")
	}
}
