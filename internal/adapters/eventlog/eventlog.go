// Package eventlog reads the operational event log written by the control
// layer.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ghalamif/PressFlow/internal/adapters/docstore"
	"github.com/ghalamif/PressFlow/internal/domain"
	"github.com/ghalamif/PressFlow/internal/ports"
)

// Config locates the event table.
type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// SQLEventLog queries events ordered by their monotonic id.
type SQLEventLog struct {
	db     *sql.DB
	query  string
	ownsDB bool
}

// NewSQLEventLog wraps an existing handle.
func NewSQLEventLog(db *sql.DB, dialect docstore.Dialect, table string) *SQLEventLog {
	return &SQLEventLog{
		db: db,
		query: fmt.Sprintf("SELECT id, event_type, occurred_at, ended_at, tag FROM %s WHERE run_id = %s ORDER BY id ASC",
			table, dialect.Placeholder(1)),
	}
}

// Open dials the configured database.
func Open(cfg Config) (*SQLEventLog, error) {
	dialect, err := docstore.DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	l := NewSQLEventLog(db, dialect, cfg.Table)
	l.ownsDB = true
	return l, nil
}

func (l *SQLEventLog) Events(ctx context.Context, runID string) ([]domain.OperationalEvent, error) {
	rows, err := l.db.QueryContext(ctx, l.query, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []domain.OperationalEvent
	for rows.Next() {
		var (
			ev        domain.OperationalEvent
			eventType string
			occurred  time.Time
			ended     sql.NullTime
			tag       sql.NullString
		)
		if err := rows.Scan(&ev.ID, &eventType, &occurred, &ended, &tag); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Type, err = domain.ParseEventType(eventType); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}
		ev.OccurredAt = occurred
		if ended.Valid {
			t := ended.Time
			ev.EndedAt = &t
		}
		ev.Tag = tag.String
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (l *SQLEventLog) Close() error {
	if l.ownsDB {
		return l.db.Close()
	}
	return nil
}

var _ ports.EventLog = (*SQLEventLog)(nil)
