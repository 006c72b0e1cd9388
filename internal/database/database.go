// internal/database/database.go

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FarmMonitorAPI/internal/config"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS alert_journal (
	id           BIGSERIAL PRIMARY KEY,
	alert_id     TEXT NOT NULL,
	seq          BIGINT NOT NULL,
	action       TEXT NOT NULL,
	actor        TEXT,
	status       TEXT NOT NULL,
	rule_id      TEXT NOT NULL,
	rule_name    TEXT NOT NULL,
	sensor       TEXT NOT NULL,
	condition    TEXT NOT NULL,
	severity     TEXT NOT NULL,
	sensor_value DOUBLE PRECISION NOT NULL,
	threshold    DOUBLE PRECISION NOT NULL,
	channels     TEXT[] NOT NULL DEFAULT '{}',
	message      TEXT NOT NULL,
	event_time   TIMESTAMPTZ NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_alert_journal_alert_id ON alert_journal (alert_id);
`

// Database wraps the optional Postgres pool that backs the alert journal.
type Database struct {
	DB  *sql.DB
	cfg *config.DatabaseConfig
}

func New(cfg *config.DatabaseConfig) (*Database, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		DB:  db,
		cfg: cfg,
	}, nil
}

// Migrate creates the journal table when it does not exist yet.
func (d *Database) Migrate(ctx context.Context) error {
	if _, err := d.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}
