package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FarmMonitorAPI/internal/models"

	"github.com/lib/pq"
)

// JournalAction names the lifecycle step a journal row records.
type JournalAction string

const (
	ActionCreated      JournalAction = "created"
	ActionAcknowledged JournalAction = "acknowledged"
	ActionResolved     JournalAction = "resolved"
)

type JournalEntry struct {
	Action     JournalAction     `json:"action"`
	Actor      string            `json:"actor,omitempty"`
	Alert      models.AlertEvent `json:"alert"`
	RecordedAt time.Time         `json:"recordedAt"`
}

// AlertJournal records alert lifecycle steps outside process memory.
type AlertJournal interface {
	Append(ctx context.Context, entry JournalEntry) error
}

// PostgresAlertJournal appends one row per lifecycle step to alert_journal.
// The in-memory repository stays the source of truth; the journal is history.
type PostgresAlertJournal struct {
	db *sql.DB
}

func NewPostgresAlertJournal(db *sql.DB) *PostgresAlertJournal {
	return &PostgresAlertJournal{db: db}
}

func (j *PostgresAlertJournal) Append(ctx context.Context, entry JournalEntry) error {
	query := `
		INSERT INTO alert_journal (
			alert_id, seq, action, actor, status, rule_id, rule_name,
			sensor, condition, severity, sensor_value, threshold,
			channels, message, event_time, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	a := entry.Alert
	channels := make([]string, 0, 3)
	for _, ch := range a.Channels.List() {
		channels = append(channels, string(ch))
	}

	var actor sql.NullString
	if entry.Actor != "" {
		actor = sql.NullString{String: entry.Actor, Valid: true}
	}

	_, err := j.db.ExecContext(
		ctx, query,
		a.ID,
		int64(a.Seq),
		string(entry.Action),
		actor,
		string(a.Status),
		a.RuleID,
		a.RuleName,
		a.Sensor,
		string(a.Condition),
		string(a.Severity),
		a.SensorValue,
		a.Threshold,
		pq.Array(channels),
		a.Message,
		a.Timestamp,
		entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append alert journal entry: %w", err)
	}

	return nil
}

// History returns the journal rows of one alert, oldest first.
func (j *PostgresAlertJournal) History(ctx context.Context, alertID string) ([]JournalEntry, error) {
	query := `
		SELECT action, actor, status, rule_id, rule_name, sensor, condition,
		       severity, sensor_value, threshold, channels, message, event_time, recorded_at
		FROM alert_journal
		WHERE alert_id = $1
		ORDER BY recorded_at ASC, id ASC
	`

	rows, err := j.db.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert journal: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var (
			e        JournalEntry
			actor    sql.NullString
			channels []string
		)
		e.Alert.ID = alertID
		if err := rows.Scan(
			&e.Action,
			&actor,
			&e.Alert.Status,
			&e.Alert.RuleID,
			&e.Alert.RuleName,
			&e.Alert.Sensor,
			&e.Alert.Condition,
			&e.Alert.Severity,
			&e.Alert.SensorValue,
			&e.Alert.Threshold,
			pq.Array(&channels),
			&e.Alert.Message,
			&e.Alert.Timestamp,
			&e.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert journal row: %w", err)
		}
		e.Actor = actor.String
		for _, s := range channels {
			if ch, ok := models.ParseChannel(s); ok {
				e.Alert.Channels = e.Alert.Channels.With(ch, true)
			}
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
