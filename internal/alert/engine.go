// Package alert evaluates threshold rules against the latest samples and
// de-duplicates the resulting notifications.
package alert

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/seliom/hostpulse/internal/metrics"
)

// Level is the severity of a breach.
type Level string

const (
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// DefaultCooldown gates repeat notifications for the same rule.
const DefaultCooldown = 5 * time.Minute

// HistoryCap bounds the retained notified entries.
const HistoryCap = 50

// Rule is a warning/danger threshold pair for one category and field.
type Rule struct {
	Category metrics.Category
	Field    string
	Warning  float64
	Danger   float64
}

// Validate enforces danger > warning. Called at config-load time so a bad
// pair fails fast instead of being silently reordered.
func (r Rule) Validate() error {
	if r.Danger <= r.Warning {
		return fmt.Errorf("alert: %s danger threshold %.1f must exceed warning %.1f",
			r.Category, r.Danger, r.Warning)
	}
	return nil
}

// ruleID names the (category, level) pair, e.g. "cpu-danger".
func ruleID(cat metrics.Category, level Level) string {
	return fmt.Sprintf("%s-%s", cat, level)
}

// Event is one current breach. Recomputed every poll; never persisted as-is.
type Event struct {
	RuleID           string           `json:"rule_id"`
	Category         metrics.Category `json:"category"`
	Level            Level            `json:"level"`
	Message          string           `json:"message"`
	Value            float64          `json:"value"`
	Threshold        float64          `json:"threshold"`
	FirstTriggeredAt time.Time        `json:"first_triggered_at"`
}

// HistoryEntry is a notified (not cooldown-suppressed) event.
type HistoryEntry struct {
	Event
	NotifiedAt time.Time `json:"notified_at"`
}

// ruleState tracks the Quiet/Active machine and cooldown clock per ruleId.
type ruleState struct {
	active         bool
	firstTriggered time.Time
	lastNotified   time.Time
}

// Engine owns all alert state for one collector instance. The collector is
// the only writer (Evaluate); HTTP handlers read History concurrently, so
// the shared state sits behind a mutex.
type Engine struct {
	rules    []Rule
	cooldown time.Duration
	now      func() time.Time

	mu      sync.Mutex
	states  map[string]*ruleState
	history []HistoryEntry // newest first
}

// Option configures an Engine.
type Option func(*Engine)

// WithCooldown overrides the 5-minute notification cooldown.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) { e.cooldown = d }
}

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine validates the rules and builds an engine.
func NewEngine(rules []Rule, opts ...Option) (*Engine, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	e := &Engine{
		rules:    rules,
		cooldown: DefaultCooldown,
		states:   make(map[string]*ruleState),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate checks every rule against the given samples and returns the
// current breaches plus the entries that cleared the notification cooldown
// this cycle. Delivery (log, browser notification, webhook) is the caller's
// job; Evaluate has no side effects beyond its own state.
//
// For one category only the highest breached level is emitted: danger
// suppresses warning. The returned events list always reflects current
// breaches; only the history/notification path is cooldown-gated.
func (e *Engine) Evaluate(samples map[metrics.Category]*metrics.Sample) (events []Event, notified []HistoryEntry) {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rule := range e.rules {
		sample := samples[rule.Category]
		value, ok := sample.Float(rule.Field)
		if !ok {
			// Unavailable reading: no alert, and the rule goes quiet.
			e.settle(rule, LevelDanger)
			e.settle(rule, LevelWarning)
			continue
		}

		level, threshold, breached := rule.classify(value)
		if !breached {
			e.settle(rule, LevelDanger)
			e.settle(rule, LevelWarning)
			continue
		}

		// The suppressed lower level also goes quiet so a later
		// downgrade from danger to warning re-notifies.
		if level == LevelDanger {
			e.settle(rule, LevelWarning)
		} else {
			e.settle(rule, LevelDanger)
		}

		id := ruleID(rule.Category, level)
		st := e.states[id]
		if st == nil {
			st = &ruleState{}
			e.states[id] = st
		}
		if !st.active {
			st.active = true
			st.firstTriggered = now
		}

		ev := Event{
			RuleID:           id,
			Category:         rule.Category,
			Level:            level,
			Message:          fmt.Sprintf("%s %s at %.1f exceeds %s threshold %.1f", rule.Category, rule.Field, value, level, threshold),
			Value:            value,
			Threshold:        threshold,
			FirstTriggeredAt: st.firstTriggered,
		}
		events = append(events, ev)

		if st.lastNotified.IsZero() || now.Sub(st.lastNotified) >= e.cooldown {
			st.lastNotified = now
			entry := HistoryEntry{Event: ev, NotifiedAt: now}
			notified = append(notified, entry)
			e.pushHistory(entry)
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].RuleID < events[j].RuleID })
	return events, notified
}

// History returns a copy of the notified entries, newest first. Safe to
// call while the collector is evaluating.
func (e *Engine) History() []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// classify picks the highest breached level, if any.
func (r Rule) classify(value float64) (Level, float64, bool) {
	switch {
	case value > r.Danger:
		return LevelDanger, r.Danger, true
	case value > r.Warning:
		return LevelWarning, r.Warning, true
	default:
		return "", 0, false
	}
}

// settle returns a rule level to Quiet. The cooldown clock is kept so a
// value oscillating around the threshold cannot re-notify every cycle.
func (e *Engine) settle(rule Rule, level Level) {
	if st, ok := e.states[ruleID(rule.Category, level)]; ok {
		st.active = false
	}
}

func (e *Engine) pushHistory(entry HistoryEntry) {
	e.history = append([]HistoryEntry{entry}, e.history...)
	if len(e.history) > HistoryCap {
		e.history = e.history[:HistoryCap]
	}
}
