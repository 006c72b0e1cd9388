package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"FarmMonitorAPI/internal/models"
)

var ErrThresholdNotFound = errors.New("sensor threshold not found")

// ThresholdRepository keeps the threshold band per sensor key. Thresholds are
// seeded from configuration and never removed.
type ThresholdRepository struct {
	defaults []models.SensorThreshold
	order    []string
	current  map[string]models.SensorThreshold
	mu       sync.RWMutex
}

func NewThresholdRepository(defaults []models.SensorThreshold) *ThresholdRepository {
	r := &ThresholdRepository{
		defaults: append([]models.SensorThreshold(nil), defaults...),
	}
	r.load()
	return r
}

func (r *ThresholdRepository) load() {
	r.order = make([]string, 0, len(r.defaults))
	r.current = make(map[string]models.SensorThreshold, len(r.defaults))
	for _, t := range r.defaults {
		if _, dup := r.current[t.ID]; !dup {
			r.order = append(r.order, t.ID)
		}
		r.current[t.ID] = t
	}
}

func (r *ThresholdRepository) GetByID(ctx context.Context, id string) (*models.SensorThreshold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.current[id]
	if !ok {
		return nil, fmt.Errorf("threshold %s: %w", id, ErrThresholdNotFound)
	}
	return &t, nil
}

func (r *ThresholdRepository) List(ctx context.Context) ([]models.SensorThreshold, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.SensorThreshold, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.current[id])
	}
	return out, nil
}

func (r *ThresholdRepository) Update(ctx context.Context, t models.SensorThreshold) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.current[t.ID]; !ok {
		return fmt.Errorf("threshold %s: %w", t.ID, ErrThresholdNotFound)
	}
	r.current[t.ID] = t
	return nil
}

// Reset restores every threshold to its configured default.
func (r *ThresholdRepository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.load()
	return nil
}

func (r *ThresholdRepository) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.current[id]
	return ok
}
