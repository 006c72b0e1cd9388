// internal/models/models.go

package models

import (
	"time"
)

// Reading is a single timestamped observation from one sensor.
type Reading struct {
	SensorKey string    `json:"sensorKey"`
	Value     float64   `json:"value"`
	At        time.Time `json:"at"`
}

// ReadingMessage is the wire shape accepted on MQTT and POST /readings.
// Epoch is used when At is missing.
type ReadingMessage struct {
	SensorKey string     `json:"sensorKey"`
	Value     *float64   `json:"value"`
	At        *time.Time `json:"at,omitempty"`
	Epoch     int64      `json:"epoch,omitempty"`
}

// ClassifiedReading is a reading annotated for the live display.
type ClassifiedReading struct {
	Reading
	Name           string         `json:"name,omitempty"`
	Unit           string         `json:"unit,omitempty"`
	Min            float64        `json:"min"`
	Max            float64        `json:"max"`
	Classification Classification `json:"status"`
	Known          bool           `json:"known"`
}

type EvaluationResult struct {
	Reading ClassifiedReading `json:"reading"`
	Alerts  []AlertEvent      `json:"alerts"`
}

type NotificationSettings struct {
	Email EmailSettings `json:"email"`
	SMS   SMSSettings   `json:"sms"`
	InApp InAppSettings `json:"inApp"`
}

type EmailSettings struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

type SMSSettings struct {
	Enabled bool   `json:"enabled"`
	Number  string `json:"number"`
}

type InAppSettings struct {
	Enabled bool `json:"enabled"`
}

func (s NotificationSettings) Allows(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return s.Email.Enabled && s.Email.Address != ""
	case ChannelSMS:
		return s.SMS.Enabled && s.SMS.Number != ""
	case ChannelInApp:
		return s.InApp.Enabled
	}
	return false
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  struct {
		Database bool `json:"database"`
		MQTT     bool `json:"mqtt"`
	} `json:"services"`
}
