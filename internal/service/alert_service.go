package service

import (
	"context"
	"fmt"
	"time"

	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/metrics"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/notify"
	"FarmMonitorAPI/internal/repository"
	"FarmMonitorAPI/internal/websocket"
)

// IAlertService defines the business logic for handling alerts.
type IAlertService interface {
	Dispatch(ctx context.Context, fired []models.NewAlertEvent) ([]models.AlertEvent, error)
	Acknowledge(ctx context.Context, id, actor string) (*models.AlertEvent, error)
	Resolve(ctx context.Context, id, actor string, at time.Time) (*models.AlertEvent, error)
	List(ctx context.Context, filter models.AlertFilter) ([]models.AlertEvent, error)
	Get(ctx context.Context, id string) (*models.AlertEvent, error)
	Summary(ctx context.Context) (*models.AlertSummary, error)
	ChannelsFor(ctx context.Context, id string) ([]models.Channel, error)
	SendTestAlert(ctx context.Context, channels models.ChannelSet) error
}

// Notifier accepts alerts for asynchronous delivery.
type Notifier interface {
	Handoff(alert models.AlertEvent) bool
}

type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) bool
}

type AlertService struct {
	repo     repository.IAlertRepository
	hub      Broadcaster
	notifier Notifier
	journal  *JournalWriter
	clock    Clock
	log      *logger.Logger
}

type AlertServiceOption func(*AlertService)

func WithAlertClock(c Clock) AlertServiceOption {
	return func(s *AlertService) { s.clock = c }
}

// WithJournal mirrors every lifecycle step to w.
func WithJournal(w *JournalWriter) AlertServiceOption {
	return func(s *AlertService) { s.journal = w }
}

func NewAlertService(repo repository.IAlertRepository, hub Broadcaster, notifier Notifier, log *logger.Logger, opts ...AlertServiceOption) *AlertService {
	s := &AlertService{
		repo:     repo,
		hub:      hub,
		notifier: notifier,
		clock:    SystemClock,
		log:      log.WithComponent("alerts"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch stores each fired rule as an active alert, then pushes it to
// dashboards and notification delivery.
func (s *AlertService) Dispatch(ctx context.Context, fired []models.NewAlertEvent) ([]models.AlertEvent, error) {
	stored := make([]models.AlertEvent, 0, len(fired))

	for _, f := range fired {
		alert := &models.AlertEvent{
			Timestamp:   f.At,
			RuleID:      f.Rule.ID,
			RuleName:    f.Rule.Name,
			Sensor:      f.Rule.Sensor,
			Condition:   f.Rule.Condition,
			Threshold:   f.Rule.TriggerValue,
			RangeLow:    f.Rule.RangeLow,
			RangeHigh:   f.Rule.RangeHigh,
			Severity:    f.Rule.Severity,
			Channels:    f.Rule.Channels,
			SensorValue: f.SensorValue,
			Message:     f.Message,
		}

		if err := s.repo.Create(ctx, alert); err != nil {
			return stored, fmt.Errorf("failed to store alert for rule %s: %w", f.Rule.ID, err)
		}

		metrics.AlertsFired.WithLabelValues(alert.RuleID, string(alert.Severity)).Inc()
		metrics.AlertTransitions.WithLabelValues(string(models.StatusActive)).Inc()

		if alert.Severity == models.SeverityCritical {
			s.log.Warn("CRITICAL alert %s: %s", alert.RuleName, alert.Message)
		} else {
			s.log.Info("Alert %s (%s): %s", alert.RuleName, alert.Severity, alert.Message)
		}

		s.publish(websocket.TypeAlert, *alert)
		s.record(repository.ActionCreated, "", *alert)
		if s.notifier != nil {
			s.notifier.Handoff(*alert)
		}

		stored = append(stored, *alert)
	}

	return stored, nil
}

// Acknowledge moves an active alert to acknowledged on behalf of actor.
func (s *AlertService) Acknowledge(ctx context.Context, id, actor string) (*models.AlertEvent, error) {
	alert, err := s.repo.Acknowledge(ctx, id, actor, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	metrics.AlertTransitions.WithLabelValues(string(models.StatusAcknowledged)).Inc()
	s.log.Info("Alert %s acknowledged by %s", id, actor)
	s.publish(websocket.TypeAlertUpdate, *alert)
	s.record(repository.ActionAcknowledged, actor, *alert)

	return alert, nil
}

// Resolve closes an active or acknowledged alert. A zero at means now.
func (s *AlertService) Resolve(ctx context.Context, id, actor string, at time.Time) (*models.AlertEvent, error) {
	if at.IsZero() {
		at = s.clock.Now()
	}

	alert, err := s.repo.Resolve(ctx, id, actor, at)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}

	metrics.AlertTransitions.WithLabelValues(string(models.StatusResolved)).Inc()
	s.log.Info("Alert %s resolved", id)
	s.publish(websocket.TypeAlertUpdate, *alert)
	s.record(repository.ActionResolved, actor, *alert)

	return alert, nil
}

func (s *AlertService) List(ctx context.Context, filter models.AlertFilter) ([]models.AlertEvent, error) {
	return s.repo.List(ctx, filter)
}

func (s *AlertService) Get(ctx context.Context, id string) (*models.AlertEvent, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AlertService) Summary(ctx context.Context) (*models.AlertSummary, error) {
	return s.repo.GetStatistics(ctx)
}

// ChannelsFor returns the channels captured on the alert when it fired.
func (s *AlertService) ChannelsFor(ctx context.Context, id string) ([]models.Channel, error) {
	alert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return notify.ChannelsFor(*alert), nil
}

// SendTestAlert hands a synthetic alert to notification delivery. It is not
// stored and does not appear in alert listings.
func (s *AlertService) SendTestAlert(ctx context.Context, channels models.ChannelSet) error {
	test := models.AlertEvent{
		ID:        "test-" + s.clock.Now().Format("20060102T150405"),
		Timestamp: s.clock.Now(),
		RuleID:    "test",
		RuleName:  "Test Notification",
		Sensor:    "system",
		Severity:  models.SeverityLow,
		Channels:  channels,
		Message:   "This is a test notification from the farm monitor.",
		Status:    models.StatusActive,
	}

	if s.notifier == nil || !s.notifier.Handoff(test) {
		return fmt.Errorf("notification queue unavailable")
	}
	s.log.Info("Test notification queued for %v", channels.List())
	return nil
}

func (s *AlertService) publish(msgType string, alert models.AlertEvent) {
	if s.hub != nil {
		s.hub.Broadcast(msgType, alert)
	}
}

func (s *AlertService) record(action repository.JournalAction, actor string, alert models.AlertEvent) {
	if s.journal == nil {
		return
	}
	s.journal.Record(repository.JournalEntry{
		Action:     action,
		Actor:      actor,
		Alert:      alert,
		RecordedAt: s.clock.Now(),
	})
}
