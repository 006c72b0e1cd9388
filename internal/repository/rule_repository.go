package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"FarmMonitorAPI/internal/models"
)

var (
	ErrRuleNotFound = errors.New("alert rule not found")
	ErrRuleExists   = errors.New("alert rule already exists")
)

// RuleRepository is the in-memory rule registry. List preserves registration
// order, which is also the rule evaluation order.
type RuleRepository struct {
	order []string
	rules map[string]models.AlertRule
	mu    sync.RWMutex
}

func NewRuleRepository() *RuleRepository {
	return &RuleRepository{
		rules: make(map[string]models.AlertRule),
	}
}

func (r *RuleRepository) Create(ctx context.Context, rule models.AlertRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.ID]; exists {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrRuleExists)
	}
	r.rules[rule.ID] = rule.Clone()
	r.order = append(r.order, rule.ID)
	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.AlertRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %s: %w", id, ErrRuleNotFound)
	}
	c := rule.Clone()
	return &c, nil
}

func (r *RuleRepository) List(ctx context.Context) ([]models.AlertRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]models.AlertRule, 0, len(r.order))
	for _, id := range r.order {
		rules = append(rules, r.rules[id].Clone())
	}
	return rules, nil
}

// Update replaces a stored rule in place, keeping its position.
func (r *RuleRepository) Update(ctx context.Context, rule models.AlertRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.ID]; !ok {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrRuleNotFound)
	}
	r.rules[rule.ID] = rule.Clone()
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[id]; !ok {
		return fmt.Errorf("rule %s: %w", id, ErrRuleNotFound)
	}
	delete(r.rules, id)
	for i, ruleID := range r.order {
		if ruleID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
