package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/metrics"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/service/utils"
	"FarmMonitorAPI/internal/websocket"
)

var ErrInvalidReading = errors.New("invalid reading")

// RuleSource lists the rules a reading is evaluated against.
type RuleSource interface {
	Rules(ctx context.Context) ([]models.AlertRule, error)
}

// TelemetryService turns raw readings into classified readings and alerts.
// Readings for one sensor are processed one at a time; different sensors
// proceed in parallel.
type TelemetryService struct {
	thresholds *ThresholdService
	rules      RuleSource
	engine     utils.IRuleEngine
	alerts     IAlertService
	hub        Broadcaster
	clock      Clock
	maxSkew    time.Duration
	log        *logger.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	latestMu sync.RWMutex
	latest   map[string]models.ClassifiedReading
}

// DefaultMaxReadingSkew is how far ahead of the service clock a reading
// timestamp may be before it is rejected.
const DefaultMaxReadingSkew = 2 * time.Minute

type TelemetryServiceOption func(*TelemetryService)

func WithTelemetryClock(c Clock) TelemetryServiceOption {
	return func(s *TelemetryService) { s.clock = c }
}

func WithMaxReadingSkew(d time.Duration) TelemetryServiceOption {
	return func(s *TelemetryService) { s.maxSkew = d }
}

func NewTelemetryService(
	thresholds *ThresholdService,
	rules RuleSource,
	engine utils.IRuleEngine,
	alerts IAlertService,
	hub Broadcaster,
	log *logger.Logger,
	opts ...TelemetryServiceOption,
) *TelemetryService {
	s := &TelemetryService{
		thresholds: thresholds,
		rules:      rules,
		engine:     engine,
		alerts:     alerts,
		hub:        hub,
		clock:      SystemClock,
		maxSkew:    DefaultMaxReadingSkew,
		log:        log.WithComponent("telemetry"),
		locks:      make(map[string]*sync.Mutex),
		latest:     make(map[string]models.ClassifiedReading),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessMessage handles one MQTT payload. When the payload carries no
// sensor key it is taken from the topic segment before the last one, so
// farm/sensors/Humidity/reading reports Humidity.
func (s *TelemetryService) ProcessMessage(ctx context.Context, topic string, payload []byte) error {
	s.log.Debug("Processing reading message on %s: %d bytes", topic, len(payload))

	var msg models.ReadingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		metrics.ReadingsRejected.WithLabelValues("mqtt").Inc()
		return fmt.Errorf("%w: invalid JSON: %v", ErrInvalidReading, err)
	}
	if msg.SensorKey == "" {
		msg.SensorKey = sensorKeyFromTopic(topic)
	}

	reading, err := s.Decode(msg)
	if err != nil {
		metrics.ReadingsRejected.WithLabelValues("mqtt").Inc()
		return err
	}

	_, err = s.Ingest(ctx, reading)
	return err
}

func sensorKeyFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// Decode validates a wire reading. A missing timestamp falls back to the
// epoch field, then to the current time. Timestamps further ahead of the
// clock than the allowed skew are rejected.
func (s *TelemetryService) Decode(msg models.ReadingMessage) (models.Reading, error) {
	if msg.SensorKey == "" {
		return models.Reading{}, fmt.Errorf("%w: missing sensorKey", ErrInvalidReading)
	}
	if msg.Value == nil {
		return models.Reading{}, fmt.Errorf("%w: missing value", ErrInvalidReading)
	}
	if math.IsNaN(*msg.Value) || math.IsInf(*msg.Value, 0) {
		return models.Reading{}, fmt.Errorf("%w: value is not a finite number", ErrInvalidReading)
	}

	var at time.Time
	switch {
	case msg.At != nil && !msg.At.IsZero():
		at = msg.At.UTC()
	case msg.Epoch > 0:
		at = time.Unix(msg.Epoch, 0).UTC()
	default:
		at = s.clock.Now()
	}

	if limit := s.clock.Now().Add(s.maxSkew); at.After(limit) {
		return models.Reading{}, fmt.Errorf("%w: timestamp %s is ahead of server time", ErrInvalidReading, at.Format(time.RFC3339))
	}

	return models.Reading{SensorKey: msg.SensorKey, Value: *msg.Value, At: at}, nil
}

// Ingest classifies the reading, evaluates every rule against it and stores
// the alerts that fired. Cooldowns are measured on the service clock, never
// on the reading timestamp.
func (s *TelemetryService) Ingest(ctx context.Context, reading models.Reading) (*models.EvaluationResult, error) {
	if reading.At.IsZero() {
		reading.At = s.clock.Now()
	}

	lock := s.sensorLock(reading.SensorKey)
	lock.Lock()
	defer lock.Unlock()

	classified := s.thresholds.Classify(ctx, reading)
	s.remember(classified)

	status := string(classified.Classification)
	if !classified.Known {
		status = "unknown"
	}
	metrics.ReadingsTotal.WithLabelValues(reading.SensorKey, status).Inc()

	if s.hub != nil {
		s.hub.Broadcast(websocket.TypeReading, classified)
	}

	rules, err := s.rules.Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	fired := s.engine.Evaluate(reading, rules, s.clock.Now())

	result := &models.EvaluationResult{Reading: classified, Alerts: []models.AlertEvent{}}
	if len(fired) == 0 {
		return result, nil
	}

	stored, err := s.alerts.Dispatch(ctx, fired)
	result.Alerts = stored
	if err != nil {
		// Dispatch stores in order, so everything past the stored prefix
		// was lost. Give those rules their cooldown back.
		lost := make([]string, 0, len(fired)-len(stored))
		for _, f := range fired[len(stored):] {
			s.engine.Release(f.Rule.ID, f.At)
			lost = append(lost, f.Rule.ID)
		}
		s.log.Error("Failed to dispatch alerts for %s, rules %v not stored: %v", reading.SensorKey, lost, err)
		return result, err
	}

	return result, nil
}

func (s *TelemetryService) sensorLock(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

// remember keeps the newest reading per sensor; late readings do not
// replace newer ones.
func (s *TelemetryService) remember(r models.ClassifiedReading) {
	s.latestMu.Lock()
	defer s.latestMu.Unlock()

	if prev, ok := s.latest[r.SensorKey]; ok && prev.At.After(r.At) {
		return
	}
	s.latest[r.SensorKey] = r
}

// Latest returns the newest reading of every sensor, sorted by sensor key.
func (s *TelemetryService) Latest() []models.ClassifiedReading {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()

	out := make([]models.ClassifiedReading, 0, len(s.latest))
	for _, r := range s.latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SensorKey < out[j].SensorKey })
	return out
}
