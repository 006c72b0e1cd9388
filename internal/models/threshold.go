package models

import (
	"errors"
	"fmt"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Classification string

const (
	ClassOptimal Classification = "optimal"
	ClassWarning Classification = "warning"
)

// TolerancePolicy decides what a threshold's tolerance does during classification.
type TolerancePolicy string

const (
	// ToleranceAdvisory keeps the band at [min, max]; tolerance is display metadata.
	ToleranceAdvisory TolerancePolicy = "advisory"
	// ToleranceWiden accepts readings in [min-tolerance, max+tolerance].
	ToleranceWiden TolerancePolicy = "widen"
)

var ErrInvalidThreshold = errors.New("invalid threshold")

// SensorThreshold is the configured acceptable band for one sensor.
type SensorThreshold struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Unit      string   `json:"unit" yaml:"unit"`
	Min       float64  `json:"min" yaml:"min"`
	Max       float64  `json:"max" yaml:"max"`
	Tolerance float64  `json:"tolerance" yaml:"tolerance"`
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Priority  Priority `json:"priority" yaml:"priority"`
}

type UpdateThresholdRequest struct {
	Min       *float64  `json:"min"`
	Max       *float64  `json:"max"`
	Tolerance *float64  `json:"tolerance"`
	Enabled   *bool     `json:"enabled"`
	Priority  *Priority `json:"priority"`
}

func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	}
	return "", false
}

func ParseTolerancePolicy(s string) (TolerancePolicy, bool) {
	switch p := TolerancePolicy(s); p {
	case ToleranceAdvisory, ToleranceWiden:
		return p, true
	}
	return "", false
}

func (t SensorThreshold) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidThreshold)
	}
	if t.Min > t.Max {
		return fmt.Errorf("%w: %s min %v is greater than max %v", ErrInvalidThreshold, t.ID, t.Min, t.Max)
	}
	if t.Tolerance < 0 {
		return fmt.Errorf("%w: %s tolerance must be >= 0", ErrInvalidThreshold, t.ID)
	}
	if _, ok := ParsePriority(string(t.Priority)); !ok {
		return fmt.Errorf("%w: %s unknown priority %q", ErrInvalidThreshold, t.ID, t.Priority)
	}
	return nil
}

// Apply returns a copy of t with the non-nil fields of req set.
func (t SensorThreshold) Apply(req UpdateThresholdRequest) SensorThreshold {
	if req.Min != nil {
		t.Min = *req.Min
	}
	if req.Max != nil {
		t.Max = *req.Max
	}
	if req.Tolerance != nil {
		t.Tolerance = *req.Tolerance
	}
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	return t
}

// Band returns the acceptable interval under the given policy.
func (t SensorThreshold) Band(policy TolerancePolicy) (float64, float64) {
	if policy == ToleranceWiden {
		return t.Min - t.Tolerance, t.Max + t.Tolerance
	}
	return t.Min, t.Max
}

// Classify reports whether value sits inside the threshold band. Disabled
// thresholds never flag.
func Classify(value float64, t SensorThreshold, policy TolerancePolicy) Classification {
	if !t.Enabled {
		return ClassOptimal
	}
	lo, hi := t.Band(policy)
	if value >= lo && value <= hi {
		return ClassOptimal
	}
	return ClassWarning
}
