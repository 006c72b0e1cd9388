package service

import (
	"context"
	"errors"
	"fmt"

	"FarmMonitorAPI/internal/logger"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/repository"
	"FarmMonitorAPI/internal/service/utils"
)

var ErrUnknownSensor = errors.New("unknown sensor")

// SensorCatalog reports which sensor keys have a threshold configured.
type SensorCatalog interface {
	Exists(sensorKey string) bool
}

type RuleService struct {
	repo    *repository.RuleRepository
	sensors SensorCatalog
	engine  utils.IRuleEngine
	log     *logger.Logger
}

func NewRuleService(repo *repository.RuleRepository, sensors SensorCatalog, engine utils.IRuleEngine, log *logger.Logger) *RuleService {
	return &RuleService{
		repo:    repo,
		sensors: sensors,
		engine:  engine,
		log:     log.WithComponent("rules"),
	}
}

func (s *RuleService) validate(rule models.AlertRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if !s.sensors.Exists(rule.Sensor) {
		return fmt.Errorf("rule %s: %w %q", rule.ID, ErrUnknownSensor, rule.Sensor)
	}
	return nil
}

// Seed registers the startup rules, stopping at the first invalid one.
func (s *RuleService) Seed(ctx context.Context, rules []models.AlertRule) error {
	for _, r := range rules {
		if _, err := s.Create(ctx, r); err != nil {
			return err
		}
	}
	s.log.Info("Loaded %d alert rules", len(rules))
	return nil
}

// Rules returns the registry in evaluation order.
func (s *RuleService) Rules(ctx context.Context) ([]models.AlertRule, error) {
	return s.repo.List(ctx)
}

func (s *RuleService) List(ctx context.Context) ([]models.RuleView, error) {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.RuleView, 0, len(rules))
	for _, r := range rules {
		views = append(views, s.view(r))
	}
	return views, nil
}

func (s *RuleService) Get(ctx context.Context, id string) (*models.RuleView, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(*r)
	return &v, nil
}

func (s *RuleService) view(r models.AlertRule) models.RuleView {
	v := models.RuleView{AlertRule: r}
	if at, ok := s.engine.LastFired(r.ID); ok {
		v.LastFiredAt = &at
	}
	return v
}

func (s *RuleService) Create(ctx context.Context, rule models.AlertRule) (*models.AlertRule, error) {
	if err := s.validate(rule); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	s.log.Debug("Rule %s registered for %s", rule.ID, rule.Sensor)
	return &rule, nil
}

func (s *RuleService) Update(ctx context.Context, id string, req models.UpdateRuleRequest) (*models.AlertRule, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := current.Apply(req)
	if err := s.validate(next); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}

	s.log.Info("Rule %s updated", id)
	return &next, nil
}

// Delete removes the rule and its fire state. Alerts it produced remain.
func (s *RuleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.engine.Forget(id)
	s.log.Info("Rule %s deleted", id)
	return nil
}

func (s *RuleService) SetEnabled(ctx context.Context, id string, enabled bool) (*models.AlertRule, error) {
	return s.Update(ctx, id, models.UpdateRuleRequest{Enabled: &enabled})
}

func (s *RuleService) SetChannel(ctx context.Context, id string, ch models.Channel, on bool) (*models.AlertRule, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	channels := current.Channels.With(ch, on)
	return s.Update(ctx, id, models.UpdateRuleRequest{Channels: &channels})
}
