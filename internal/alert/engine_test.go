package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/seliom/hostpulse/internal/metrics"
)

var memRule = Rule{
	Category: metrics.CategoryMemory,
	Field:    metrics.FieldPercentUsed,
	Warning:  80,
	Danger:   90,
}

func memSample(percent float64) map[metrics.Category]*metrics.Sample {
	s := metrics.NewSample(metrics.CategoryMemory, time.Now())
	_ = s.Set(metrics.FieldPercentUsed, metrics.Number(percent))
	return map[metrics.Category]*metrics.Sample{metrics.CategoryMemory: s}
}

func newTestEngine(t *testing.T, now *time.Time, opts ...Option) *Engine {
	t.Helper()
	opts = append(opts, WithClock(func() time.Time { return *now }))
	e, err := NewEngine([]Rule{memRule}, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngineRejectsBadRule(t *testing.T) {
	_, err := NewEngine([]Rule{{Category: "cpu", Field: "usage_percent", Warning: 90, Danger: 75}})
	if err == nil {
		t.Error("expected error when danger <= warning")
	}
}

func TestDangerSuppressesWarning(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(t, &now)

	events, notified := e.Evaluate(memSample(92))
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d", len(events))
	}
	if events[0].Level != LevelDanger {
		t.Errorf("expected danger, got %s", events[0].Level)
	}
	if events[0].RuleID != "memory-danger" {
		t.Errorf("unexpected rule id %q", events[0].RuleID)
	}
	if !strings.Contains(events[0].Message, "92") {
		t.Errorf("message should include the value: %q", events[0].Message)
	}
	if len(notified) != 1 {
		t.Errorf("first breach should notify, got %d entries", len(notified))
	}
}

func TestThresholdBoundaries(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(t, &now)

	// Exactly at warning is not a breach; strictly above is.
	if events, _ := e.Evaluate(memSample(80)); len(events) != 0 {
		t.Errorf("value equal to warning must not breach, got %d events", len(events))
	}
	if events, _ := e.Evaluate(memSample(80.1)); len(events) != 1 || events[0].Level != LevelWarning {
		t.Errorf("expected warning just above threshold, got %+v", events)
	}
	// Exactly at danger stays a warning.
	if events, _ := e.Evaluate(memSample(90)); len(events) != 1 || events[0].Level != LevelWarning {
		t.Errorf("value equal to danger must stay warning, got %+v", events)
	}
}

func TestCooldownGatesNotificationsOnly(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(t, &now)

	_, notified := e.Evaluate(memSample(95))
	if len(notified) != 1 {
		t.Fatalf("first breach should notify, got %d", len(notified))
	}

	// Still breached one minute later: current events persist, no new
	// notification.
	now = now.Add(time.Minute)
	events, notified := e.Evaluate(memSample(95))
	if len(events) != 1 {
		t.Errorf("current breach must always be reported, got %d events", len(events))
	}
	if len(notified) != 0 {
		t.Errorf("repeat within cooldown must not notify, got %d", len(notified))
	}

	// Past the cooldown the same breach notifies again.
	now = now.Add(DefaultCooldown)
	_, notified = e.Evaluate(memSample(95))
	if len(notified) != 1 {
		t.Errorf("expected re-notification after cooldown, got %d", len(notified))
	}

	if got := len(e.History()); got != 2 {
		t.Errorf("expected 2 history entries, got %d", got)
	}
}

func TestDowngradeRenotifies(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(t, &now)

	e.Evaluate(memSample(95)) // danger notified

	now = now.Add(time.Minute)
	events, notified := e.Evaluate(memSample(85))
	if len(events) != 1 || events[0].Level != LevelWarning {
		t.Fatalf("expected warning after downgrade, got %+v", events)
	}
	// memory-warning never notified before, so it is not cooldown-gated.
	if len(notified) != 1 {
		t.Errorf("downgrade to a fresh level should notify, got %d", len(notified))
	}
}

func TestUnavailableReadingRaisesNothing(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(t, &now)

	s := metrics.NewSample(metrics.CategoryMemory, time.Now())
	_ = s.Set(metrics.FieldPercentUsed, metrics.Unavailable)
	events, notified := e.Evaluate(map[metrics.Category]*metrics.Sample{metrics.CategoryMemory: s})
	if len(events) != 0 || len(notified) != 0 {
		t.Errorf("unavailable reading must not alert, got %d/%d", len(events), len(notified))
	}

	// Missing category entirely behaves the same.
	events, notified = e.Evaluate(map[metrics.Category]*metrics.Sample{})
	if len(events) != 0 || len(notified) != 0 {
		t.Errorf("missing sample must not alert, got %d/%d", len(events), len(notified))
	}
}

func TestFirstTriggeredAtIsStable(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(t, &now)

	events, _ := e.Evaluate(memSample(95))
	first := events[0].FirstTriggeredAt

	now = now.Add(30 * time.Second)
	events, _ = e.Evaluate(memSample(96))
	if !events[0].FirstTriggeredAt.Equal(first) {
		t.Error("FirstTriggeredAt must not move while the breach persists")
	}

	// Clearing and re-breaching resets it.
	now = now.Add(30 * time.Second)
	e.Evaluate(memSample(50))
	now = now.Add(30 * time.Second)
	events, _ = e.Evaluate(memSample(95))
	if events[0].FirstTriggeredAt.Equal(first) {
		t.Error("FirstTriggeredAt should reset after the breach clears")
	}
}

// History is read by HTTP handlers while the collector evaluates; this
// fails under the race detector if the engine's state is unguarded.
func TestHistoryConcurrentWithEvaluate(t *testing.T) {
	e, err := NewEngine([]Rule{memRule}, WithCooldown(time.Nanosecond))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			e.Evaluate(memSample(95))
		}
	}()
	for i := 0; i < 500; i++ {
		for _, entry := range e.History() {
			if entry.Level != LevelDanger {
				t.Errorf("unexpected level %s", entry.Level)
			}
		}
	}
	<-done

	if len(e.History()) != HistoryCap {
		t.Errorf("expected full history after the writer finishes, got %d", len(e.History()))
	}
}

func TestHistoryCapped(t *testing.T) {
	now := time.Unix(1000, 0)
	e := newTestEngine(t, &now, WithCooldown(time.Nanosecond))

	for i := 0; i < HistoryCap+10; i++ {
		now = now.Add(time.Second)
		e.Evaluate(memSample(95))
	}

	hist := e.History()
	if len(hist) != HistoryCap {
		t.Fatalf("expected history capped at %d, got %d", HistoryCap, len(hist))
	}
	// Newest first.
	if !hist[0].NotifiedAt.After(hist[1].NotifiedAt) {
		t.Error("history must be ordered newest first")
	}
}
