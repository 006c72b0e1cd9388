package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"FarmMonitorAPI/internal/config"
	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/repository"
	"FarmMonitorAPI/internal/service/utils"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 15, 15, 45, 22, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []models.AlertEvent
	refuse bool
}

func (f *fakeNotifier) Handoff(a models.AlertEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return false
	}
	f.alerts = append(f.alerts, a)
	return true
}

func (f *fakeNotifier) handed() []models.AlertEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AlertEvent(nil), f.alerts...)
}

type fakeHub struct {
	mu    sync.Mutex
	types []string
}

func (h *fakeHub) Broadcast(msgType string, payload interface{}) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.types = append(h.types, msgType)
	return true
}

func (h *fakeHub) count(msgType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, t := range h.types {
		if t == msgType {
			n++
		}
	}
	return n
}

// stack is the full ingestion pipeline over in-memory storage.
type stack struct {
	clock      *fixedClock
	hub        *fakeHub
	notifier   *fakeNotifier
	engine     *utils.RuleEngine
	thresholds *ThresholdService
	rules      *RuleService
	alerts     *AlertService
	telemetry  *TelemetryService
}

func newStack(t *testing.T, rules ...models.AlertRule) *stack {
	t.Helper()
	log := logger.NewNop()
	s := &stack{
		clock:    &fixedClock{now: t0},
		hub:      &fakeHub{},
		notifier: &fakeNotifier{},
		engine:   utils.NewRuleEngine(),
	}

	s.thresholds = NewThresholdService(
		repository.NewThresholdRepository(config.DefaultThresholds()),
		models.ToleranceAdvisory, log)
	s.rules = NewRuleService(repository.NewRuleRepository(), s.thresholds, s.engine, log)
	require.NoError(t, s.rules.Seed(context.Background(), rules))

	s.alerts = NewAlertService(repository.NewAlertRepository(), s.hub, s.notifier, log, WithAlertClock(s.clock))
	s.telemetry = NewTelemetryService(s.thresholds, s.rules, s.engine, s.alerts, s.hub, log, WithTelemetryClock(s.clock))
	return s
}

func tempHighRule() models.AlertRule {
	return models.AlertRule{
		ID:              "temp_high",
		Name:            "Temperature Too High",
		Sensor:          "Temperature",
		Condition:       models.ConditionAbove,
		TriggerValue:    28,
		Severity:        models.SeverityHigh,
		Enabled:         true,
		Channels:        models.ChannelSet{Email: true, InApp: true},
		CooldownMinutes: 15,
	}
}

func temp(v float64, at time.Time) models.Reading {
	return models.Reading{SensorKey: "Temperature", Value: v, At: at}
}
