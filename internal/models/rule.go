package models

import (
	"errors"
	"fmt"
	"time"
)

type Condition string

const (
	ConditionAbove        Condition = "above"
	ConditionBelow        Condition = "below"
	ConditionOutsideRange Condition = "outside_range"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelInApp Channel = "inApp"
)

var ErrInvalidRule = errors.New("invalid alert rule")

// ChannelSet holds the notification flags of a rule.
type ChannelSet struct {
	Email bool `json:"email" yaml:"email"`
	SMS   bool `json:"sms" yaml:"sms"`
	InApp bool `json:"inApp" yaml:"inApp"`
}

// List returns the enabled channels in a fixed order: email, sms, inApp.
func (c ChannelSet) List() []Channel {
	out := make([]Channel, 0, 3)
	if c.Email {
		out = append(out, ChannelEmail)
	}
	if c.SMS {
		out = append(out, ChannelSMS)
	}
	if c.InApp {
		out = append(out, ChannelInApp)
	}
	return out
}

func (c ChannelSet) Has(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return c.Email
	case ChannelSMS:
		return c.SMS
	case ChannelInApp:
		return c.InApp
	}
	return false
}

// With returns a copy of c with ch set to on. Unknown channels leave c unchanged.
func (c ChannelSet) With(ch Channel, on bool) ChannelSet {
	switch ch {
	case ChannelEmail:
		c.Email = on
	case ChannelSMS:
		c.SMS = on
	case ChannelInApp:
		c.InApp = on
	}
	return c
}

type AlertRule struct {
	ID              string     `json:"id" yaml:"id"`
	Name            string     `json:"name" yaml:"name"`
	Sensor          string     `json:"sensor" yaml:"sensor"`
	Condition       Condition  `json:"condition" yaml:"condition"`
	TriggerValue    float64    `json:"triggerValue" yaml:"triggerValue"`
	RangeLow        *float64   `json:"rangeLow,omitempty" yaml:"rangeLow,omitempty"`
	RangeHigh       *float64   `json:"rangeHigh,omitempty" yaml:"rangeHigh,omitempty"`
	Severity        Severity   `json:"severity" yaml:"severity"`
	Enabled         bool       `json:"enabled" yaml:"enabled"`
	Channels        ChannelSet `json:"notificationChannels" yaml:"notificationChannels"`
	CooldownMinutes float64    `json:"cooldownMinutes" yaml:"cooldownMinutes"`
}

func ParseCondition(s string) (Condition, bool) {
	switch c := Condition(s); c {
	case ConditionAbove, ConditionBelow, ConditionOutsideRange:
		return c, true
	}
	return "", false
}

func ParseSeverity(s string) (Severity, bool) {
	switch sev := Severity(s); sev {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev, true
	}
	return "", false
}

func ParseChannel(s string) (Channel, bool) {
	switch ch := Channel(s); ch {
	case ChannelEmail, ChannelSMS, ChannelInApp:
		return ch, true
	}
	return "", false
}

func (r AlertRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRule)
	}
	if r.Name == "" {
		return fmt.Errorf("%w: %s name is required", ErrInvalidRule, r.ID)
	}
	if r.Sensor == "" {
		return fmt.Errorf("%w: %s sensor reference is required", ErrInvalidRule, r.ID)
	}
	if _, ok := ParseCondition(string(r.Condition)); !ok {
		return fmt.Errorf("%w: %s unknown condition %q", ErrInvalidRule, r.ID, r.Condition)
	}
	if _, ok := ParseSeverity(string(r.Severity)); !ok {
		return fmt.Errorf("%w: %s unknown severity %q", ErrInvalidRule, r.ID, r.Severity)
	}
	if r.CooldownMinutes < 0 {
		return fmt.Errorf("%w: %s cooldown must be >= 0", ErrInvalidRule, r.ID)
	}
	if r.Condition == ConditionOutsideRange {
		if r.RangeLow == nil || r.RangeHigh == nil {
			return fmt.Errorf("%w: %s outside_range needs rangeLow and rangeHigh", ErrInvalidRule, r.ID)
		}
		if *r.RangeLow > *r.RangeHigh {
			return fmt.Errorf("%w: %s rangeLow is greater than rangeHigh", ErrInvalidRule, r.ID)
		}
	}
	return nil
}

// Matches reports whether value satisfies the rule condition.
func (r AlertRule) Matches(value float64) bool {
	switch r.Condition {
	case ConditionAbove:
		return value > r.TriggerValue
	case ConditionBelow:
		return value < r.TriggerValue
	case ConditionOutsideRange:
		if r.RangeLow == nil || r.RangeHigh == nil {
			return false
		}
		return value < *r.RangeLow || value > *r.RangeHigh
	}
	return false
}

// UpdateRuleRequest carries a partial rule edit. ID is never changed.
type UpdateRuleRequest struct {
	Name            *string     `json:"name"`
	Sensor          *string     `json:"sensor"`
	Condition       *Condition  `json:"condition"`
	TriggerValue    *float64    `json:"triggerValue"`
	RangeLow        *float64    `json:"rangeLow"`
	RangeHigh       *float64    `json:"rangeHigh"`
	Severity        *Severity   `json:"severity"`
	Enabled         *bool       `json:"enabled"`
	Channels        *ChannelSet `json:"notificationChannels"`
	CooldownMinutes *float64    `json:"cooldownMinutes"`
}

func (r AlertRule) Apply(req UpdateRuleRequest) AlertRule {
	if req.Name != nil {
		r.Name = *req.Name
	}
	if req.Sensor != nil {
		r.Sensor = *req.Sensor
	}
	if req.Condition != nil {
		r.Condition = *req.Condition
	}
	if req.TriggerValue != nil {
		r.TriggerValue = *req.TriggerValue
	}
	if req.RangeLow != nil {
		v := *req.RangeLow
		r.RangeLow = &v
	}
	if req.RangeHigh != nil {
		v := *req.RangeHigh
		r.RangeHigh = &v
	}
	if req.Severity != nil {
		r.Severity = *req.Severity
	}
	if req.Enabled != nil {
		r.Enabled = *req.Enabled
	}
	if req.Channels != nil {
		r.Channels = *req.Channels
	}
	if req.CooldownMinutes != nil {
		r.CooldownMinutes = *req.CooldownMinutes
	}
	return r
}

// Clone copies the range pointers so callers cannot alias stored rules.
func (r AlertRule) Clone() AlertRule {
	if r.RangeLow != nil {
		v := *r.RangeLow
		r.RangeLow = &v
	}
	if r.RangeHigh != nil {
		v := *r.RangeHigh
		r.RangeHigh = &v
	}
	return r
}

// RuleView is a rule as served by the API, with its fire state.
type RuleView struct {
	AlertRule
	LastFiredAt *time.Time `json:"lastFiredAt,omitempty"`
}
