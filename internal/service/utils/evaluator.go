package utils

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"FarmMonitorAPI/internal/models"
)

// ruleClock is the fire state of one rule. Its mutex serializes the cooldown
// check-and-set so two readings racing on the same rule cannot both fire.
type ruleClock struct {
	mu        sync.Mutex
	lastFired time.Time
	fired     bool

	// state before the last fire, restored by Release
	prevFired    time.Time
	prevHasFired bool
}

// IRuleEngine evaluates readings against alert rules.
type IRuleEngine interface {
	Evaluate(reading models.Reading, rules []models.AlertRule, now time.Time) []models.NewAlertEvent
	LastFired(ruleID string) (time.Time, bool)
	Release(ruleID string, firedAt time.Time)
	Forget(ruleID string)
}

// RuleEngine holds per-rule fire state in memory. State is lost on restart.
type RuleEngine struct {
	clocks map[string]*ruleClock
	mu     sync.Mutex
}

func NewRuleEngine() *RuleEngine {
	return &RuleEngine{
		clocks: make(map[string]*ruleClock),
	}
}

// Evaluate walks rules in slice order and returns one event per rule that
// matched the reading and was not held back by its cooldown.
func (e *RuleEngine) Evaluate(reading models.Reading, rules []models.AlertRule, now time.Time) []models.NewAlertEvent {
	var fired []models.NewAlertEvent

	for _, rule := range rules {
		if !rule.Enabled || rule.Sensor != reading.SensorKey {
			continue
		}
		if !rule.Matches(reading.Value) {
			continue
		}
		if !e.tryFire(rule, now) {
			continue
		}

		fired = append(fired, models.NewAlertEvent{
			Rule:        rule.Clone(),
			SensorValue: reading.Value,
			At:          now,
			Message:     FormatMessage(rule, reading.Value),
		})
	}

	return fired
}

func (e *RuleEngine) tryFire(rule models.AlertRule, now time.Time) bool {
	c := e.clock(rule.ID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fired && now.Sub(c.lastFired) < cooldown(rule) {
		return false
	}
	c.prevFired, c.prevHasFired = c.lastFired, c.fired
	c.lastFired = now
	c.fired = true
	return true
}

// Release undoes the fire at firedAt when its event could not be stored, so
// the rule's cooldown is not spent on an alert nobody sees. It is a no-op if
// the rule fired again since.
func (e *RuleEngine) Release(ruleID string, firedAt time.Time) {
	e.mu.Lock()
	c, ok := e.clocks[ruleID]
	e.mu.Unlock()
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fired || !c.lastFired.Equal(firedAt) {
		return
	}
	c.lastFired, c.fired = c.prevFired, c.prevHasFired
	c.prevFired, c.prevHasFired = time.Time{}, false
}

func (e *RuleEngine) clock(ruleID string) *ruleClock {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.clocks[ruleID]
	if !ok {
		c = &ruleClock{}
		e.clocks[ruleID] = c
	}
	return c
}

// LastFired returns when the rule last produced an event.
func (e *RuleEngine) LastFired(ruleID string) (time.Time, bool) {
	e.mu.Lock()
	c, ok := e.clocks[ruleID]
	e.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFired, c.fired
}

// Forget drops the fire state of a deleted rule.
func (e *RuleEngine) Forget(ruleID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.clocks, ruleID)
}

func cooldown(rule models.AlertRule) time.Duration {
	return time.Duration(rule.CooldownMinutes * float64(time.Minute))
}

// FormatMessage renders the human text stored on an alert event.
func FormatMessage(rule models.AlertRule, value float64) string {
	switch rule.Condition {
	case models.ConditionOutsideRange:
		var lo, hi float64
		if rule.RangeLow != nil {
			lo = *rule.RangeLow
		}
		if rule.RangeHigh != nil {
			hi = *rule.RangeHigh
		}
		return fmt.Sprintf("%s outside range threshold: %s (range %s-%s)",
			rule.Sensor, formatNumber(value), formatNumber(lo), formatNumber(hi))
	default:
		return fmt.Sprintf("%s %s threshold: %s (threshold %s)",
			rule.Sensor, rule.Condition, formatNumber(value), formatNumber(rule.TriggerValue))
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
