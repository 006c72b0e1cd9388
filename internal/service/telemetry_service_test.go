package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FarmMonitorAPI/internal/config"
	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/repository"
	"FarmMonitorAPI/internal/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessMessage(t *testing.T) {
	s := newStack(t, config.DefaultRules()...)
	ctx := context.Background()

	err := s.telemetry.ProcessMessage(ctx, "farm/sensors/Humidity/reading",
		[]byte(`{"value": 45, "at": "2024-01-15T15:45:22Z"}`))
	require.NoError(t, err)

	alerts, err := s.alerts.List(ctx, models.AlertFilter{Search: "humidity"})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Humidity outside range threshold: 45 (range 50-90)", alerts[0].Message)
	assert.Equal(t, []models.Channel{models.ChannelEmail, models.ChannelSMS, models.ChannelInApp}, alerts[0].Channels.List())
}

func TestProcessMessage_EpochAndExplicitKey(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	err := s.telemetry.ProcessMessage(ctx, "farm/bulk",
		[]byte(`{"sensorKey": "CO2", "value": 450, "epoch": 1705333522}`))
	require.NoError(t, err)

	latest := s.telemetry.Latest()
	require.Len(t, latest, 1)
	assert.Equal(t, "CO2", latest[0].SensorKey)
	assert.Equal(t, time.Unix(1705333522, 0).UTC(), latest[0].At)
	assert.Equal(t, models.ClassOptimal, latest[0].Classification)
}

func TestProcessMessage_Rejects(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	cases := map[string]string{
		"bad json":      `{"value": `,
		"missing value": `{"sensorKey": "CO2"}`,
		"missing key":   `{"value": 1}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			err := s.telemetry.ProcessMessage(ctx, "x", []byte(payload))
			assert.ErrorIs(t, err, ErrInvalidReading)
		})
	}
}

func TestDecode_DefaultsToClock(t *testing.T) {
	s := newStack(t)
	v := 24.0

	r, err := s.telemetry.Decode(models.ReadingMessage{SensorKey: "Temperature", Value: &v})
	require.NoError(t, err)
	assert.Equal(t, t0, r.At)
}

func TestIngest_UnknownSensorFiresNothing(t *testing.T) {
	s := newStack(t, config.DefaultRules()...)

	res, err := s.telemetry.Ingest(context.Background(), models.Reading{SensorKey: "Wind", Value: 1e6, At: t0})
	require.NoError(t, err)
	assert.False(t, res.Reading.Known)
	assert.Empty(t, res.Alerts)
}

func TestIngest_ClassifiesAndBroadcasts(t *testing.T) {
	s := newStack(t)

	res, err := s.telemetry.Ingest(context.Background(), temp(27, t0))
	require.NoError(t, err)
	assert.Equal(t, models.ClassWarning, res.Reading.Classification)
	assert.Equal(t, 1, s.hub.count(websocket.TypeReading))
}

func TestLatest_IgnoresOlderReadings(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.telemetry.Ingest(ctx, temp(24, t0.Add(time.Minute)))
	require.NoError(t, err)
	_, err = s.telemetry.Ingest(ctx, temp(30, t0))
	require.NoError(t, err)
	_, err = s.telemetry.Ingest(ctx, models.Reading{SensorKey: "Humidity", Value: 70, At: t0})
	require.NoError(t, err)

	latest := s.telemetry.Latest()
	require.Len(t, latest, 2)
	assert.Equal(t, "Humidity", latest[0].SensorKey)
	assert.Equal(t, 24.0, latest[1].Value)
}

func TestIngest_ConcurrentSameSensorFiresOnce(t *testing.T) {
	s := newStack(t, tempHighRule())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.telemetry.Ingest(ctx, temp(29, t0.Add(time.Duration(i)*time.Second)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := s.alerts.List(ctx, models.AlertFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestIngest_FutureTimestampDoesNotHoldCooldown(t *testing.T) {
	s := newStack(t, tempHighRule())
	ctx := context.Background()

	res, err := s.telemetry.Ingest(ctx, temp(29, t0.Add(365*24*time.Hour)))
	require.NoError(t, err)
	require.Len(t, res.Alerts, 1)
	last, ok := s.engine.LastFired("temp_high")
	require.True(t, ok)
	assert.Equal(t, t0, last, "fire state follows the service clock")

	for _, d := range []time.Duration{30, 60, 90} {
		s.clock.Set(t0.Add(d * time.Minute))
		res, err := s.telemetry.Ingest(ctx, temp(35, t0.Add(d*time.Minute)))
		require.NoError(t, err)
		assert.Len(t, res.Alerts, 1, "reading at +%dm", d)
	}
}

func TestDecode_RejectsFutureTimestamp(t *testing.T) {
	s := newStack(t, tempHighRule())
	v := 24.0

	near := t0.Add(DefaultMaxReadingSkew)
	r, err := s.telemetry.Decode(models.ReadingMessage{SensorKey: "Temperature", Value: &v, At: &near})
	require.NoError(t, err)
	assert.Equal(t, near, r.At)

	far := t0.Add(DefaultMaxReadingSkew + time.Second)
	_, err = s.telemetry.Decode(models.ReadingMessage{SensorKey: "Temperature", Value: &v, At: &far})
	assert.ErrorIs(t, err, ErrInvalidReading)

	err = s.telemetry.ProcessMessage(context.Background(), "farm/sensors/Temperature/reading",
		[]byte(`{"value": 29, "epoch": 4102444800}`))
	assert.ErrorIs(t, err, ErrInvalidReading)
	_, ok := s.engine.LastFired("temp_high")
	assert.False(t, ok)
}

// failingRepo refuses the nth Create.
type failingRepo struct {
	*repository.AlertRepository
	mu     sync.Mutex
	calls  int
	failOn int
}

func (f *failingRepo) Create(ctx context.Context, a *models.AlertEvent) error {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n == f.failOn {
		return errors.New("disk full")
	}
	return f.AlertRepository.Create(ctx, a)
}

func TestIngest_UnstoredAlertReleasesCooldown(t *testing.T) {
	extreme := tempHighRule()
	extreme.ID = "temp_extreme"
	extreme.Name = "Temperature Extreme"
	extreme.TriggerValue = 32
	extreme.Severity = models.SeverityCritical

	s := newStack(t, tempHighRule(), extreme)
	ctx := context.Background()
	log := logger.NewNop()

	repo := &failingRepo{AlertRepository: repository.NewAlertRepository(), failOn: 2}
	alerts := NewAlertService(repo, s.hub, s.notifier, log, WithAlertClock(s.clock))
	telemetry := NewTelemetryService(s.thresholds, s.rules, s.engine, alerts, s.hub, log, WithTelemetryClock(s.clock))

	res, err := telemetry.Ingest(ctx, temp(35, t0))
	require.Error(t, err)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, "temp_high", res.Alerts[0].RuleID)

	_, ok := s.engine.LastFired("temp_extreme")
	assert.False(t, ok, "the rule whose alert was lost keeps no cooldown")
	last, ok := s.engine.LastFired("temp_high")
	require.True(t, ok)
	assert.Equal(t, t0, last)

	s.clock.Set(t0.Add(time.Minute))
	res, err = telemetry.Ingest(ctx, temp(35, t0.Add(time.Minute)))
	require.NoError(t, err)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, "temp_extreme", res.Alerts[0].RuleID)
}
