// Package history keeps a bounded rolling time series per metric field and
// answers trend/aggregate queries over it.
package history

import (
	"sync"
	"time"

	"github.com/seliom/hostpulse/internal/metrics"
)

// DefaultCapacity bounds each series when no explicit capacity is given.
const DefaultCapacity = 500

// trendWindow and trendDelta control the coarse two-window trend check:
// the most recent trendWindow points are split in half and the half means
// compared against trendDelta.
const (
	trendWindow = 20
	trendDelta  = 5.0
)

// Trend classifies the recent direction of a series.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendUnknown    Trend = "unknown"
)

// Point is one (timestamp, value) observation.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Key identifies one series.
type Key struct {
	Category metrics.Category
	Field    string
}

// series is a FIFO ring of points. Only Rolling touches it, under lock.
type series struct {
	points []Point // oldest first
	cap    int
}

func (s *series) append(p Point) {
	s.points = append(s.points, p)
	if len(s.points) > s.cap {
		// Shift rather than reslice so the backing array doesn't grow
		// without bound.
		copy(s.points, s.points[1:])
		s.points = s.points[:len(s.points)-1]
	}
}

// Rolling holds every live series. A single writer (the collector) appends;
// any number of readers may query concurrently.
type Rolling struct {
	mu       sync.RWMutex
	capacity int
	series   map[Key]*series
}

// New creates a Rolling history. capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Rolling {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Rolling{
		capacity: capacity,
		series:   make(map[Key]*series),
	}
}

// Append records a value. The series is created lazily on first append.
func (r *Rolling) Append(cat metrics.Category, field string, ts time.Time, value float64) {
	key := Key{Category: cat, Field: field}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.series[key]
	if !ok {
		s = &series{cap: r.capacity}
		r.series[key] = s
	}
	s.append(Point{Timestamp: ts, Value: value})
}

// AppendSample records every numeric field of a sample under one timestamp.
// Unavailable and string fields are skipped, not recorded as zeros.
func (r *Rolling) AppendSample(s *metrics.Sample) {
	if s == nil {
		return
	}
	for field, v := range s.Fields {
		if f, ok := v.Float(); ok {
			r.Append(s.Category, field, s.Timestamp, f)
		}
	}
}

// LastN returns up to n most recent points, oldest first. Fewer points than
// requested returns whatever exists; the result is a copy.
func (r *Rolling) LastN(cat metrics.Category, field string, n int) []Point {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.series[Key{Category: cat, Field: field}]
	if !ok || n <= 0 {
		return nil
	}
	pts := s.points
	if len(pts) > n {
		pts = pts[len(pts)-n:]
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

// Len returns the number of retained points for a series.
func (r *Rolling) Len(cat metrics.Category, field string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.series[Key{Category: cat, Field: field}]
	if !ok {
		return 0
	}
	return len(s.points)
}

// Keys returns every live series key.
func (r *Rolling) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]Key, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	return keys
}

// Stats summarizes every retained point of a series.
type Stats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Aggregate computes count/avg/min/max over all retained points.
// An empty series yields ok == false, never a division by zero.
func (r *Rolling) Aggregate(cat metrics.Category, field string) (Stats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.series[Key{Category: cat, Field: field}]
	if !ok || len(s.points) == 0 {
		return Stats{}, false
	}

	st := Stats{Count: len(s.points), Min: s.points[0].Value, Max: s.points[0].Value}
	sum := 0.0
	for _, p := range s.points {
		sum += p.Value
		if p.Value < st.Min {
			st.Min = p.Value
		}
		if p.Value > st.Max {
			st.Max = p.Value
		}
	}
	st.Average = sum / float64(st.Count)
	return st, true
}

// TrendOf compares the first and second half of the last 20 points: if the
// second-half mean exceeds the first by more than 5 units the series is
// increasing, the mirror case is decreasing, anything else is stable.
// Fewer than 2 points reads as unknown.
func (r *Rolling) TrendOf(cat metrics.Category, field string) Trend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.series[Key{Category: cat, Field: field}]
	if !ok || len(s.points) < 2 {
		return TrendUnknown
	}

	pts := s.points
	if len(pts) > trendWindow {
		pts = pts[len(pts)-trendWindow:]
	}

	half := len(pts) / 2
	firstMean := meanOf(pts[:half])
	secondMean := meanOf(pts[half:])

	switch {
	case secondMean-firstMean > trendDelta:
		return TrendIncreasing
	case firstMean-secondMean > trendDelta:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// Clear drops every series. User-initiated only (CLI / API).
func (r *Rolling) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series = make(map[Key]*series)
}

func meanOf(pts []Point) float64 {
	if len(pts) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range pts {
		sum += p.Value
	}
	return sum / float64(len(pts))
}
