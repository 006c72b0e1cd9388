package service

import (
	"context"
	"testing"
	"time"

	"FarmMonitorAPI/internal/config"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleService_SeedDefaults(t *testing.T) {
	s := newStack(t, config.DefaultRules()...)

	views, err := s.rules.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 5)
	assert.Equal(t, "temp_high", views[0].ID)
	assert.Nil(t, views[0].LastFiredAt)
}

func TestRuleService_CreateValidation(t *testing.T) {
	s := newStack(t, tempHighRule())
	ctx := context.Background()

	_, err := s.rules.Create(ctx, tempHighRule())
	assert.ErrorIs(t, err, repository.ErrRuleExists)

	wind := tempHighRule()
	wind.ID = "wind"
	wind.Sensor = "Wind"
	_, err = s.rules.Create(ctx, wind)
	assert.ErrorIs(t, err, ErrUnknownSensor)

	bad := tempHighRule()
	bad.ID = "bad"
	bad.CooldownMinutes = -1
	_, err = s.rules.Create(ctx, bad)
	assert.ErrorIs(t, err, models.ErrInvalidRule)
}

func TestRuleService_UpdateKeepsValidity(t *testing.T) {
	s := newStack(t, tempHighRule())
	ctx := context.Background()

	trigger := 30.0
	updated, err := s.rules.Update(ctx, "temp_high", models.UpdateRuleRequest{TriggerValue: &trigger})
	require.NoError(t, err)
	assert.Equal(t, 30.0, updated.TriggerValue)

	cond := models.ConditionOutsideRange
	_, err = s.rules.Update(ctx, "temp_high", models.UpdateRuleRequest{Condition: &cond})
	assert.ErrorIs(t, err, models.ErrInvalidRule)

	got, err := s.rules.Get(ctx, "temp_high")
	require.NoError(t, err)
	assert.Equal(t, models.ConditionAbove, got.Condition, "rejected update leaves the rule alone")

	_, err = s.rules.Update(ctx, "nope", models.UpdateRuleRequest{})
	assert.ErrorIs(t, err, repository.ErrRuleNotFound)
}

func TestRuleService_DisableStopsFiring(t *testing.T) {
	s := newStack(t, tempHighRule())
	ctx := context.Background()

	_, err := s.rules.SetEnabled(ctx, "temp_high", false)
	require.NoError(t, err)
	res, err := s.telemetry.Ingest(ctx, temp(35, t0))
	require.NoError(t, err)
	assert.Empty(t, res.Alerts)

	_, err = s.rules.SetEnabled(ctx, "temp_high", true)
	require.NoError(t, err)
	s.clock.Set(t0.Add(time.Minute))
	res, err = s.telemetry.Ingest(ctx, temp(35, t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.Len(t, res.Alerts, 1)

	view, err := s.rules.Get(ctx, "temp_high")
	require.NoError(t, err)
	require.NotNil(t, view.LastFiredAt)
	assert.Equal(t, t0.Add(time.Minute), *view.LastFiredAt)
}

func TestRuleService_DeleteKeepsAlertsAndForgetsFireState(t *testing.T) {
	s := newStack(t, tempHighRule())
	ctx := context.Background()

	res, err := s.telemetry.Ingest(ctx, temp(29, t0))
	require.NoError(t, err)
	require.Len(t, res.Alerts, 1)

	require.NoError(t, s.rules.Delete(ctx, "temp_high"))
	_, ok := s.engine.LastFired("temp_high")
	assert.False(t, ok)

	got, err := s.alerts.Get(ctx, res.Alerts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Temperature Too High", got.RuleName)

	// Re-registering the rule starts without cooldown.
	_, err = s.rules.Create(ctx, tempHighRule())
	require.NoError(t, err)
	s.clock.Set(t0.Add(time.Minute))
	res, err = s.telemetry.Ingest(ctx, temp(29, t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.Len(t, res.Alerts, 1)
}

func TestRuleEditDoesNotRewriteAlerts(t *testing.T) {
	s := newStack(t, tempHighRule())
	ctx := context.Background()

	res, err := s.telemetry.Ingest(ctx, temp(29, t0))
	require.NoError(t, err)

	name := "Renamed"
	sev := models.SeverityLow
	_, err = s.rules.Update(ctx, "temp_high", models.UpdateRuleRequest{Name: &name, Severity: &sev})
	require.NoError(t, err)

	got, err := s.alerts.Get(ctx, res.Alerts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Temperature Too High", got.RuleName)
	assert.Equal(t, models.SeverityHigh, got.Severity)
}

func TestThresholdService(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	c := s.thresholds.Classify(ctx, temp(24, t0))
	assert.True(t, c.Known)
	assert.Equal(t, models.ClassOptimal, c.Classification)
	assert.Equal(t, "°C", c.Unit)

	c = s.thresholds.Classify(ctx, temp(26.5, t0))
	assert.Equal(t, models.ClassWarning, c.Classification)

	disabled := false
	_, err := s.thresholds.Update(ctx, "Temperature", models.UpdateThresholdRequest{Enabled: &disabled})
	require.NoError(t, err)
	c = s.thresholds.Classify(ctx, temp(99, t0))
	assert.Equal(t, models.ClassOptimal, c.Classification)

	lo := 30.0
	_, err = s.thresholds.Update(ctx, "Temperature", models.UpdateThresholdRequest{Min: &lo})
	assert.ErrorIs(t, err, models.ErrInvalidThreshold)

	_, err = s.thresholds.Update(ctx, "Wind", models.UpdateThresholdRequest{})
	assert.ErrorIs(t, err, repository.ErrThresholdNotFound)

	list, err := s.thresholds.Reset(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 7)
	assert.True(t, list[0].Enabled)

	unknown := s.thresholds.Classify(ctx, models.Reading{SensorKey: "Wind", Value: 3, At: t0})
	assert.False(t, unknown.Known)
	assert.Empty(t, unknown.Classification)
}

func TestThresholdService_WidenPolicy(t *testing.T) {
	s := newStack(t)
	wide := NewThresholdService(
		repository.NewThresholdRepository(config.DefaultThresholds()),
		models.ToleranceWiden, s.thresholds.log)

	c := wide.Classify(context.Background(), temp(26.5, t0))
	assert.Equal(t, models.ClassOptimal, c.Classification)
	assert.Equal(t, 21.0, c.Min)
	assert.Equal(t, 27.0, c.Max)
}
