package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FarmMonitorAPI/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("alert not found")
	ErrInvalidTransition  = errors.New("invalid alert status transition")
	ErrInvalidResolveTime = errors.New("resolve time precedes alert history")
)

// IAlertRepository defines the operations for managing alert events.
type IAlertRepository interface {
	Create(ctx context.Context, alert *models.AlertEvent) error
	GetByID(ctx context.Context, id string) (*models.AlertEvent, error)
	List(ctx context.Context, filter models.AlertFilter) ([]models.AlertEvent, error)
	Acknowledge(ctx context.Context, id, actor string, at time.Time) (*models.AlertEvent, error)
	Resolve(ctx context.Context, id, actor string, at time.Time) (*models.AlertEvent, error)
	GetStatistics(ctx context.Context) (*models.AlertSummary, error)
}

// AlertRepository keeps every alert event in process memory. Events are never
// removed; status changes are checked and applied under one lock.
type AlertRepository struct {
	events []*models.AlertEvent
	byID   map[string]*models.AlertEvent
	seq    uint64
	mu     sync.RWMutex
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		byID: make(map[string]*models.AlertEvent),
	}
}

// Create assigns an ID and sequence number and stores the alert as active.
func (r *AlertRepository) Create(ctx context.Context, alert *models.AlertEvent) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate alert id: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	alert.ID = id.String()
	alert.Seq = r.seq
	alert.Status = models.StatusActive
	alert.AcknowledgedBy = ""
	alert.AcknowledgedAt = nil
	alert.ResolvedAt = nil
	alert.ResolvedBy = ""

	stored := copyEvent(alert)
	r.events = append(r.events, stored)
	r.byID[stored.ID] = stored

	return nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id string) (*models.AlertEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return copyEvent(e), nil
}

// List returns matching alerts, newest first.
func (r *AlertRepository) List(ctx context.Context, filter models.AlertFilter) ([]models.AlertEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alerts := make([]models.AlertEvent, 0)
	for i := len(r.events) - 1; i >= 0; i-- {
		if filter.Match(r.events[i]) {
			alerts = append(alerts, *copyEvent(r.events[i]))
		}
	}
	return alerts, nil
}

// Acknowledge moves an active alert to acknowledged.
func (r *AlertRepository) Acknowledge(ctx context.Context, id, actor string, at time.Time) (*models.AlertEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if e.Status != models.StatusActive {
		return nil, fmt.Errorf("cannot acknowledge %s alert %s: %w", e.Status, id, ErrInvalidTransition)
	}

	e.Status = models.StatusAcknowledged
	e.AcknowledgedBy = actor
	ackAt := at
	e.AcknowledgedAt = &ackAt

	return copyEvent(e), nil
}

// Resolve moves an active or acknowledged alert to resolved. at may not be
// earlier than the alert's fire or acknowledge time.
func (r *AlertRepository) Resolve(ctx context.Context, id, actor string, at time.Time) (*models.AlertEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if e.Status == models.StatusResolved {
		return nil, fmt.Errorf("alert %s already resolved: %w", id, ErrInvalidTransition)
	}
	if at.Before(e.Timestamp) {
		return nil, fmt.Errorf("alert %s fired at %s: %w", id, e.Timestamp.Format(time.RFC3339), ErrInvalidResolveTime)
	}
	if e.AcknowledgedAt != nil && at.Before(*e.AcknowledgedAt) {
		return nil, fmt.Errorf("alert %s acknowledged at %s: %w", id, e.AcknowledgedAt.Format(time.RFC3339), ErrInvalidResolveTime)
	}

	e.Status = models.StatusResolved
	e.ResolvedBy = actor
	resolvedAt := at
	e.ResolvedAt = &resolvedAt

	return copyEvent(e), nil
}

// GetStatistics counts alerts by status and by severity.
func (r *AlertRepository) GetStatistics(ctx context.Context) (*models.AlertSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.AlertSummary{
		BySeverity: make(map[models.Severity]int),
	}
	for _, e := range r.events {
		stats.Total++
		stats.BySeverity[e.Severity]++
		switch e.Status {
		case models.StatusActive:
			stats.Active++
		case models.StatusAcknowledged:
			stats.Acknowledged++
		case models.StatusResolved:
			stats.Resolved++
		}
	}
	return stats, nil
}

func copyEvent(e *models.AlertEvent) *models.AlertEvent {
	c := *e
	if e.RangeLow != nil {
		v := *e.RangeLow
		c.RangeLow = &v
	}
	if e.RangeHigh != nil {
		v := *e.RangeHigh
		c.RangeHigh = &v
	}
	if e.AcknowledgedAt != nil {
		v := *e.AcknowledgedAt
		c.AcknowledgedAt = &v
	}
	if e.ResolvedAt != nil {
		v := *e.ResolvedAt
		c.ResolvedAt = &v
	}
	return &c
}
