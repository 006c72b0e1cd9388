// Package notify delivers alert events over the channels their rule selected.
package notify

import (
	"context"
	"fmt"
	"strings"

	"FarmMonitorAPI/internal/models"
)

// Notification is one alert handed to delivery together with its channels.
type Notification struct {
	Alert    models.AlertEvent `json:"alert"`
	Channels []models.Channel  `json:"channels"`
}

// Sender delivers notifications over a single channel.
type Sender interface {
	Channel() models.Channel
	Send(ctx context.Context, n Notification, settings models.NotificationSettings) error
}

// Sink receives every handoff regardless of channel selection.
type Sink interface {
	Publish(ctx context.Context, n Notification) error
	Close() error
}

// ChannelsFor returns the channels captured on the alert when its rule
// fired, in the order email, sms, inApp. Later rule edits do not change it.
func ChannelsFor(alert models.AlertEvent) []models.Channel {
	return alert.Channels.List()
}

func subject(a models.AlertEvent) string {
	return fmt.Sprintf("[Farm Alert] %s: %s", strings.ToUpper(string(a.Severity)), a.RuleName)
}

func formatAlertText(a models.AlertEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rule: %s\n", a.RuleName)
	fmt.Fprintf(&b, "Sensor: %s\n", a.Sensor)
	fmt.Fprintf(&b, "Severity: %s\n", a.Severity)
	fmt.Fprintf(&b, "Message: %s\n", a.Message)
	fmt.Fprintf(&b, "Time: %s\n", a.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Alert ID: %s", a.ID)
	return b.String()
}
