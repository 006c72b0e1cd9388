package utils

import (
	"sync"
	"testing"
	"time"

	"FarmMonitorAPI/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 15, 15, 45, 22, 0, time.UTC)

func tempHigh() models.AlertRule {
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

func reading(sensor string, v float64, at time.Time) models.Reading {
	return models.Reading{SensorKey: sensor, Value: v, At: at}
}

func TestEvaluate_FiresWithMessage(t *testing.T) {
	e := NewRuleEngine()

	out := e.Evaluate(reading("Temperature", 29.2, t0), []models.AlertRule{tempHigh()}, t0)

	require.Len(t, out, 1)
	assert.Equal(t, "temp_high", out[0].Rule.ID)
	assert.Equal(t, models.SeverityHigh, out[0].Rule.Severity)
	assert.Equal(t, 29.2, out[0].SensorValue)
	assert.Contains(t, out[0].Message, "29.2")
	assert.Contains(t, out[0].Message, "28")

	last, ok := e.LastFired("temp_high")
	assert.True(t, ok)
	assert.Equal(t, t0, last)
}

func TestEvaluate_Cooldown(t *testing.T) {
	e := NewRuleEngine()
	rules := []models.AlertRule{tempHigh()}

	require.Len(t, e.Evaluate(reading("Temperature", 29, t0), rules, t0), 1)

	at10 := t0.Add(10 * time.Minute)
	assert.Empty(t, e.Evaluate(reading("Temperature", 30, at10), rules, at10))
	last, _ := e.LastFired("temp_high")
	assert.Equal(t, t0, last, "suppressed firing must not move the clock")

	at16 := t0.Add(16 * time.Minute)
	assert.Len(t, e.Evaluate(reading("Temperature", 30, at16), rules, at16), 1)
}

func TestEvaluate_CooldownBoundaryFires(t *testing.T) {
	e := NewRuleEngine()
	rules := []models.AlertRule{tempHigh()}

	e.Evaluate(reading("Temperature", 29, t0), rules, t0)
	at15 := t0.Add(15 * time.Minute)
	assert.Len(t, e.Evaluate(reading("Temperature", 29, at15), rules, at15), 1)
}

func TestEvaluate_ZeroCooldownAlwaysFires(t *testing.T) {
	e := NewRuleEngine()
	r := tempHigh()
	r.CooldownMinutes = 0

	for i := 0; i < 3; i++ {
		assert.Len(t, e.Evaluate(reading("Temperature", 29, t0), []models.AlertRule{r}, t0), 1)
	}
}

func TestEvaluate_NonQualifyingReadingLeavesStateAlone(t *testing.T) {
	e := NewRuleEngine()
	rules := []models.AlertRule{tempHigh()}

	assert.Empty(t, e.Evaluate(reading("Temperature", 25, t0), rules, t0))
	_, ok := e.LastFired("temp_high")
	assert.False(t, ok)

	e.Evaluate(reading("Temperature", 29, t0), rules, t0)
	later := t0.Add(time.Hour)
	e.Evaluate(reading("Temperature", 20, later), rules, later)
	last, _ := e.LastFired("temp_high")
	assert.Equal(t, t0, last)
}

func TestEvaluate_SkipsDisabledAndOtherSensors(t *testing.T) {
	e := NewRuleEngine()
	disabled := tempHigh()
	disabled.Enabled = false

	assert.Empty(t, e.Evaluate(reading("Temperature", 40, t0), []models.AlertRule{disabled}, t0))
	assert.Empty(t, e.Evaluate(reading("Humidity", 40, t0), []models.AlertRule{tempHigh()}, t0))
	assert.Empty(t, e.Evaluate(reading("Unknown", 40, t0), []models.AlertRule{tempHigh()}, t0))
}

func TestEvaluate_MultipleRulesFireIndependently(t *testing.T) {
	e := NewRuleEngine()
	critical := tempHigh()
	critical.ID = "temp_critical"
	critical.Name = "Temperature Critical"
	critical.TriggerValue = 29
	critical.Severity = models.SeverityCritical
	low := tempHigh()
	low.ID = "temp_low"
	low.Condition = models.ConditionBelow
	low.TriggerValue = 20

	out := e.Evaluate(reading("Temperature", 29.5, t0), []models.AlertRule{tempHigh(), low, critical}, t0)

	require.Len(t, out, 2)
	assert.Equal(t, "temp_high", out[0].Rule.ID)
	assert.Equal(t, "temp_critical", out[1].Rule.ID)
}

func TestEvaluate_OutsideRange(t *testing.T) {
	lo, hi := 50.0, 70.0
	r := models.AlertRule{
		ID: "humidity_critical", Name: "Humidity Critical", Sensor: "Humidity",
		Condition: models.ConditionOutsideRange, RangeLow: &lo, RangeHigh: &hi,
		Severity: models.SeverityCritical, Enabled: true, CooldownMinutes: 5,
	}
	e := NewRuleEngine()

	assert.Empty(t, e.Evaluate(reading("Humidity", 60, t0), []models.AlertRule{r}, t0))
	out := e.Evaluate(reading("Humidity", 45, t0), []models.AlertRule{r}, t0)
	require.Len(t, out, 1)
	assert.Equal(t, "Humidity outside range threshold: 45 (range 50-70)", out[0].Message)
}

func TestEvaluate_SnapshotIsDetachedFromRule(t *testing.T) {
	lo, hi := 50.0, 70.0
	r := models.AlertRule{
		ID: "h", Name: "h", Sensor: "Humidity", Condition: models.ConditionOutsideRange,
		RangeLow: &lo, RangeHigh: &hi, Severity: models.SeverityLow, Enabled: true,
	}
	out := NewRuleEngine().Evaluate(reading("Humidity", 10, t0), []models.AlertRule{r}, t0)
	require.Len(t, out, 1)

	lo = 0
	assert.Equal(t, 50.0, *out[0].Rule.RangeLow)
}

func TestEvaluate_ConcurrentReadingsFireOnce(t *testing.T) {
	e := NewRuleEngine()
	rules := []models.AlertRule{tempHigh()}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := len(e.Evaluate(reading("Temperature", 29, t0), rules, t0))
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, total)
}

func TestForget(t *testing.T) {
	e := NewRuleEngine()
	rules := []models.AlertRule{tempHigh()}
	e.Evaluate(reading("Temperature", 29, t0), rules, t0)

	e.Forget("temp_high")

	_, ok := e.LastFired("temp_high")
	assert.False(t, ok)
	assert.Len(t, e.Evaluate(reading("Temperature", 29, t0), rules, t0), 1)
}

func TestRelease_RestoresPreviousFire(t *testing.T) {
	e := NewRuleEngine()
	rules := []models.AlertRule{tempHigh()}

	e.Evaluate(reading("Temperature", 29, t0), rules, t0)
	at20 := t0.Add(20 * time.Minute)
	require.Len(t, e.Evaluate(reading("Temperature", 29, at20), rules, at20), 1)

	e.Release("temp_high", at20)
	last, ok := e.LastFired("temp_high")
	require.True(t, ok)
	assert.Equal(t, t0, last)

	// A stale release after the rule fired again changes nothing.
	at40 := t0.Add(40 * time.Minute)
	require.Len(t, e.Evaluate(reading("Temperature", 29, at40), rules, at40), 1)
	e.Release("temp_high", at20)
	last, _ = e.LastFired("temp_high")
	assert.Equal(t, at40, last)
}

func TestRelease_FirstFireLeavesNoState(t *testing.T) {
	e := NewRuleEngine()
	rules := []models.AlertRule{tempHigh()}

	e.Evaluate(reading("Temperature", 29, t0), rules, t0)
	e.Release("temp_high", t0)

	_, ok := e.LastFired("temp_high")
	assert.False(t, ok)
	assert.Len(t, e.Evaluate(reading("Temperature", 29, t0.Add(time.Minute)), rules, t0.Add(time.Minute)), 1)
	e.Release("unknown", t0)
}
