package history

import (
	"math"
	"testing"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 0.001 }

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4, 5}, 3)
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(got))
	}
	for i := range want {
		if !almost(got[i], want[i]) {
			t.Errorf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}

	short := MovingAverage([]float64{1, 2}, 5)
	if len(short) != 2 {
		t.Errorf("short input should be returned as-is, got %d values", len(short))
	}
}

func TestRegressionTrend(t *testing.T) {
	if got := RegressionTrend([]float64{10, 20, 30, 40, 50}); got != TrendIncreasing {
		t.Errorf("expected increasing, got %s", got)
	}
	if got := RegressionTrend([]float64{50, 40, 30, 20, 10}); got != TrendDecreasing {
		t.Errorf("expected decreasing, got %s", got)
	}
	if got := RegressionTrend([]float64{50, 50.1, 49.9, 50, 50}); got != TrendStable {
		t.Errorf("expected stable, got %s", got)
	}
	if got := RegressionTrend([]float64{42}); got != TrendStable {
		t.Errorf("expected stable for single point, got %s", got)
	}
}

func TestDetectAnomalies(t *testing.T) {
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 100}
	out := DetectAnomalies(values)
	if len(out) != 1 || out[0] != 9 {
		t.Errorf("expected anomaly at index 9, got %v", out)
	}

	if out := DetectAnomalies([]float64{5, 5, 5, 5}); len(out) != 0 {
		t.Errorf("zero variance should yield no anomalies, got %v", out)
	}
	if out := DetectAnomalies([]float64{1, 100}); len(out) != 0 {
		t.Errorf("fewer than 3 points should yield none, got %v", out)
	}
}

func TestCalcPercentiles(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1) // 1..100
	}
	p := CalcPercentiles(values)

	if p.Min != 1 || p.Max != 100 {
		t.Errorf("min/max: got %f/%f", p.Min, p.Max)
	}
	if !almost(p.Mean, 50.5) {
		t.Errorf("mean: got %f", p.Mean)
	}
	if !almost(p.Median, 50.5) {
		t.Errorf("median: got %f", p.Median)
	}
	if !almost(p.P90, 90.1) {
		t.Errorf("p90: got %f", p.P90)
	}

	if z := CalcPercentiles(nil); z != (Percentiles{}) {
		t.Errorf("empty input should yield zeros, got %+v", z)
	}
}

func TestPredictNext(t *testing.T) {
	next, ok := PredictNext([]float64{1, 2, 3, 4, 5})
	if !ok {
		t.Fatal("expected prediction")
	}
	if !almost(next, 6) {
		t.Errorf("expected 6, got %f", next)
	}

	if _, ok := PredictNext([]float64{7}); ok {
		t.Error("single point must not produce a prediction")
	}

	// Flat series predicts the same value.
	next, ok = PredictNext([]float64{5, 5, 5, 5})
	if !ok || !almost(next, 5) {
		t.Errorf("expected 5, got %f ok=%v", next, ok)
	}
}

func TestAnalyze(t *testing.T) {
	values := []float64{10, 12, 14, 16, 18, 20, 22, 24}
	a := Analyze(values)

	if a.DataPoints != 8 {
		t.Errorf("data points: got %d", a.DataPoints)
	}
	if a.Trend != TrendIncreasing {
		t.Errorf("expected increasing trend, got %s", a.Trend)
	}
	if a.Predicted == nil || !almost(*a.Predicted, 26) {
		t.Errorf("expected prediction 26, got %v", a.Predicted)
	}
	if len(a.MovingAvg) == 0 || len(a.MovingAvg) > movingAvgWindow {
		t.Errorf("moving average tail length: got %d", len(a.MovingAvg))
	}
}
