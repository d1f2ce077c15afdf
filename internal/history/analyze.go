package history

import (
	"math"
	"sort"
)

// Analysis is the full statistical report for one series.
type Analysis struct {
	DataPoints int         `json:"data_points"`
	Statistics Percentiles `json:"statistics"`
	Trend      Trend       `json:"trend"`
	Anomalies  int         `json:"anomalies_count"`
	MovingAvg  []float64   `json:"moving_avg_5"`
	Predicted  *float64    `json:"predicted_next,omitempty"`
}

// Percentiles holds the distribution summary of a value list.
type Percentiles struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
	P95    float64 `json:"p95"`
	P99    float64 `json:"p99"`
}

const (
	movingAvgWindow  = 5
	regressionDelta  = 0.1 // minimum slope/mean ratio to call a direction
	anomalyStddevs   = 2.0
	predictionPoints = 10
)

// Analyze runs the full report over a list of values (oldest first).
func Analyze(values []float64) Analysis {
	a := Analysis{
		DataPoints: len(values),
		Statistics: CalcPercentiles(values),
		Trend:      RegressionTrend(values),
		Anomalies:  len(DetectAnomalies(values)),
	}
	ma := MovingAverage(values, movingAvgWindow)
	if len(ma) > movingAvgWindow {
		ma = ma[len(ma)-movingAvgWindow:]
	}
	a.MovingAvg = ma
	if p, ok := PredictNext(values); ok {
		a.Predicted = &p
	}
	return a
}

// MovingAverage computes the sliding-window mean. Inputs shorter than the
// window are returned as-is.
func MovingAverage(values []float64, window int) []float64 {
	if len(values) < window || window <= 0 {
		return values
	}
	out := make([]float64, 0, len(values)-window+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out = append(out, sum/float64(window))
		}
	}
	return out
}

// RegressionTrend classifies direction by least-squares slope relative to
// the mean. Unlike Rolling.TrendOf this looks at the whole value list; it
// backs the offline analyze command, not the per-poll check.
func RegressionTrend(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}
	slope, ok := regressionSlope(values)
	if !ok {
		return TrendStable
	}
	mean := meanFloat(values)
	changeRate := 0.0
	if mean != 0 {
		changeRate = math.Abs(slope / mean)
	}
	switch {
	case changeRate < regressionDelta:
		return TrendStable
	case slope > 0:
		return TrendIncreasing
	default:
		return TrendDecreasing
	}
}

// DetectAnomalies returns the indices whose z-score exceeds 2 standard
// deviations. Fewer than 3 points or zero variance yields none.
func DetectAnomalies(values []float64) []int {
	if len(values) < 3 {
		return nil
	}
	mean := meanFloat(values)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	stdev := math.Sqrt(variance / float64(len(values)-1))
	if stdev == 0 {
		return nil
	}

	var out []int
	for i, v := range values {
		if math.Abs((v-mean)/stdev) > anomalyStddevs {
			out = append(out, i)
		}
	}
	return out
}

// CalcPercentiles computes the distribution summary. Empty input yields zeros.
func CalcPercentiles(values []float64) Percentiles {
	if len(values) == 0 {
		return Percentiles{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Percentiles{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   meanFloat(values),
		Median: percentile(sorted, 50),
		P25:    percentile(sorted, 25),
		P75:    percentile(sorted, 75),
		P90:    percentile(sorted, 90),
		P95:    percentile(sorted, 95),
		P99:    percentile(sorted, 99),
	}
}

// PredictNext extrapolates one step ahead with a least-squares line over the
// last 10 values. ok is false with fewer than 2 points.
func PredictNext(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	recent := values
	if len(recent) > predictionPoints {
		recent = recent[len(recent)-predictionPoints:]
	}
	slope, ok := regressionSlope(recent)
	if !ok {
		return recent[len(recent)-1], true
	}
	n := float64(len(recent))
	xMean := (n - 1) / 2
	yMean := meanFloat(recent)
	intercept := yMean - slope*xMean
	next := slope*n + intercept
	return math.Round(next*100) / 100, true
}

// regressionSlope returns the least-squares slope over index vs value.
func regressionSlope(values []float64) (float64, bool) {
	n := len(values)
	xMean := float64(n-1) / 2
	yMean := meanFloat(values)

	num, den := 0.0, 0.0
	for i, v := range values {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := float64(len(sorted)-1) * float64(p) / 100
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func meanFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
