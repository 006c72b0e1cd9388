package models

import (
	"strings"
	"time"
)

type AlertStatus string

// Alert Constants
const (
	StatusActive       AlertStatus = "active"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusResolved     AlertStatus = "resolved"
)

func ParseStatus(s string) (AlertStatus, bool) {
	switch st := AlertStatus(s); st {
	case StatusActive, StatusAcknowledged, StatusResolved:
		return st, true
	}
	return "", false
}

// NewAlertEvent is what the rule engine emits when a rule fires. It carries a
// snapshot of the rule so later edits do not change what the event means.
type NewAlertEvent struct {
	Rule        AlertRule
	SensorValue float64
	At          time.Time
	Message     string
}

// AlertEvent is the stored record of one rule firing.
type AlertEvent struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`

	RuleID    string     `json:"ruleId"`
	RuleName  string     `json:"rule"`
	Sensor    string     `json:"sensor"`
	Condition Condition  `json:"condition"`
	Threshold float64    `json:"threshold"`
	RangeLow  *float64   `json:"rangeLow,omitempty"`
	RangeHigh *float64   `json:"rangeHigh,omitempty"`
	Severity  Severity   `json:"severity"`
	Channels  ChannelSet `json:"notificationChannels"`

	SensorValue float64     `json:"value"`
	Message     string      `json:"message"`
	Status      AlertStatus `json:"status"`

	AcknowledgedBy string     `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy     string     `json:"resolvedBy,omitempty"`
}

// AlertFilter is a conjunction; zero-value fields match everything.
type AlertFilter struct {
	Search   string
	Severity Severity
	Status   AlertStatus
}

func (f AlertFilter) Match(e *AlertEvent) bool {
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.RuleName), q) &&
			!strings.Contains(strings.ToLower(e.Sensor), q) {
			return false
		}
	}
	return true
}

type AlertSummary struct {
	Total        int              `json:"total"`
	Active       int              `json:"active"`
	Acknowledged int              `json:"acknowledged"`
	Resolved     int              `json:"resolved"`
	BySeverity   map[Severity]int `json:"bySeverity"`
}

type AcknowledgeRequest struct {
	Actor string `json:"actor"`
}

type ResolveRequest struct {
	Actor string     `json:"actor"`
	At    *time.Time `json:"at"`
}
