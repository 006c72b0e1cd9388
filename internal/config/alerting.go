package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"FarmMonitorAPI/internal/models"

	"gopkg.in/yaml.v3"
)

// Definitions are the thresholds and rules the service starts with.
type Definitions struct {
	Thresholds []models.SensorThreshold `yaml:"thresholds"`
	Rules      []models.AlertRule       `yaml:"rules"`
}

// LoadDefinitions reads the YAML definitions file at path. An empty path
// yields the built-in farm defaults. A section missing from the file falls
// back to its built-in default.
func LoadDefinitions(path string) (*Definitions, error) {
	if path == "" {
		defs := DefaultDefinitions()
		return &defs, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alerting definitions: %w", err)
	}

	return ParseDefinitions(data)
}

func ParseDefinitions(data []byte) (*Definitions, error) {
	var defs Definitions

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse alerting definitions: %w", err)
	}

	builtin := DefaultDefinitions()
	if len(defs.Thresholds) == 0 {
		defs.Thresholds = builtin.Thresholds
	}
	if defs.Rules == nil {
		defs.Rules = builtin.Rules
	}

	if err := defs.Validate(); err != nil {
		return nil, err
	}

	return &defs, nil
}

// Validate checks every definition and the references between them.
func (d *Definitions) Validate() error {
	sensors := make(map[string]bool, len(d.Thresholds))
	for _, t := range d.Thresholds {
		if err := t.Validate(); err != nil {
			return err
		}
		if sensors[t.ID] {
			return fmt.Errorf("%w: duplicate threshold %s", models.ErrInvalidThreshold, t.ID)
		}
		sensors[t.ID] = true
	}

	ruleIDs := make(map[string]bool, len(d.Rules))
	for _, r := range d.Rules {
		if err := r.Validate(); err != nil {
			return err
		}
		if ruleIDs[r.ID] {
			return fmt.Errorf("%w: duplicate rule %s", models.ErrInvalidRule, r.ID)
		}
		if !sensors[r.Sensor] {
			return fmt.Errorf("%w: %s references unknown sensor %q", models.ErrInvalidRule, r.ID, r.Sensor)
		}
		ruleIDs[r.ID] = true
	}

	return nil
}

func DefaultDefinitions() Definitions {
	return Definitions{
		Thresholds: DefaultThresholds(),
		Rules:      DefaultRules(),
	}
}

// Sensor keys shared by thresholds, rules and incoming readings.
const (
	SensorTemperature  = "Temperature"
	SensorHumidity     = "Humidity"
	SensorCO2          = "CO2"
	SensorSoilMoisture = "SoilMoisture"
	SensorPH           = "pH"
	SensorEC           = "EC"
	SensorLight        = "Light"
)

func DefaultThresholds() []models.SensorThreshold {
	return []models.SensorThreshold{
		{ID: SensorTemperature, Name: "Temperature", Unit: "°C", Min: 22, Max: 26, Tolerance: 1, Enabled: true, Priority: models.PriorityHigh},
		{ID: SensorHumidity, Name: "Humidity", Unit: "%", Min: 60, Max: 80, Tolerance: 5, Enabled: true, Priority: models.PriorityHigh},
		{ID: SensorCO2, Name: "CO₂", Unit: "ppm", Min: 400, Max: 500, Tolerance: 25, Enabled: true, Priority: models.PriorityMedium},
		{ID: SensorSoilMoisture, Name: "Soil Moisture", Unit: "%", Min: 70, Max: 85, Tolerance: 3, Enabled: true, Priority: models.PriorityHigh},
		{ID: SensorPH, Name: "pH Level", Unit: "", Min: 6.0, Max: 6.5, Tolerance: 0.2, Enabled: true, Priority: models.PriorityMedium},
		{ID: SensorEC, Name: "EC", Unit: "mS/cm", Min: 1.5, Max: 2.0, Tolerance: 0.1, Enabled: true, Priority: models.PriorityMedium},
		{ID: SensorLight, Name: "Light Intensity", Unit: "k lux", Min: 40, Max: 50, Tolerance: 2, Enabled: true, Priority: models.PriorityLow},
	}
}

func DefaultRules() []models.AlertRule {
	humidityLow, humidityHigh := 50.0, 90.0

	return []models.AlertRule{
		{
			ID: "temp_high", Name: "Temperature Too High", Sensor: SensorTemperature,
			Condition: models.ConditionAbove, TriggerValue: 28, Severity: models.SeverityHigh,
			Enabled: true, Channels: models.ChannelSet{Email: true, InApp: true}, CooldownMinutes: 15,
		},
		{
			ID: "temp_low", Name: "Temperature Too Low", Sensor: SensorTemperature,
			Condition: models.ConditionBelow, TriggerValue: 20, Severity: models.SeverityMedium,
			Enabled: true, Channels: models.ChannelSet{Email: true, InApp: true}, CooldownMinutes: 15,
		},
		{
			ID: "humidity_critical", Name: "Humidity Critical", Sensor: SensorHumidity,
			Condition: models.ConditionOutsideRange, TriggerValue: 50,
			RangeLow: &humidityLow, RangeHigh: &humidityHigh, Severity: models.SeverityCritical,
			Enabled: true, Channels: models.ChannelSet{Email: true, SMS: true, InApp: true}, CooldownMinutes: 5,
		},
		{
			ID: "co2_high", Name: "CO₂ Level High", Sensor: SensorCO2,
			Condition: models.ConditionAbove, TriggerValue: 600, Severity: models.SeverityMedium,
			Enabled: true, Channels: models.ChannelSet{InApp: true}, CooldownMinutes: 30,
		},
		{
			ID: "soil_low", Name: "Soil Moisture Low", Sensor: SensorSoilMoisture,
			Condition: models.ConditionBelow, TriggerValue: 60, Severity: models.SeverityHigh,
			Enabled: true, Channels: models.ChannelSet{Email: true, InApp: true}, CooldownMinutes: 10,
		},
	}
}
