package service

import (
	"context"

	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/repository"
)

type ThresholdService struct {
	repo   *repository.ThresholdRepository
	policy models.TolerancePolicy
	log    *logger.Logger
}

func NewThresholdService(repo *repository.ThresholdRepository, policy models.TolerancePolicy, log *logger.Logger) *ThresholdService {
	return &ThresholdService{
		repo:   repo,
		policy: policy,
		log:    log.WithComponent("thresholds"),
	}
}

func (s *ThresholdService) Policy() models.TolerancePolicy {
	return s.policy
}

func (s *ThresholdService) Exists(sensorKey string) bool {
	return s.repo.Exists(sensorKey)
}

func (s *ThresholdService) List(ctx context.Context) ([]models.SensorThreshold, error) {
	return s.repo.List(ctx)
}

func (s *ThresholdService) Get(ctx context.Context, id string) (*models.SensorThreshold, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ThresholdService) Update(ctx context.Context, id string, req models.UpdateThresholdRequest) (*models.SensorThreshold, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := current.Apply(req)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}

	s.log.Info("Threshold %s updated: [%v, %v] tolerance %v enabled=%v",
		id, next.Min, next.Max, next.Tolerance, next.Enabled)
	return &next, nil
}

func (s *ThresholdService) Reset(ctx context.Context) ([]models.SensorThreshold, error) {
	if err := s.repo.Reset(ctx); err != nil {
		return nil, err
	}
	s.log.Info("Thresholds reset to defaults")
	return s.repo.List(ctx)
}

// Classify annotates a reading with its threshold band. Readings for sensors
// without a threshold come back with Known=false and no classification.
func (s *ThresholdService) Classify(ctx context.Context, r models.Reading) models.ClassifiedReading {
	out := models.ClassifiedReading{Reading: r}

	t, err := s.repo.GetByID(ctx, r.SensorKey)
	if err != nil {
		return out
	}

	out.Known = true
	out.Name = t.Name
	out.Unit = t.Unit
	out.Min, out.Max = t.Band(s.policy)
	out.Classification = models.Classify(r.Value, *t, s.policy)
	return out
}
