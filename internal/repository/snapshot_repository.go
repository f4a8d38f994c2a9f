package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/calendar-manager/internal/models"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS calendars (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	timezone TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS calendar_events (
	id UUID PRIMARY KEY,
	calendar_id UUID NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
	subject TEXT NOT NULL,
	start_at TIMESTAMP NOT NULL,
	end_at TIMESTAMP NOT NULL,
	all_day BOOLEAN NOT NULL DEFAULT FALSE,
	description TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	series_id BIGINT,
	UNIQUE (calendar_id, subject, start_at)
);`

type snapshotEventRow struct {
	CalendarID string `db:"calendar_id"`
	models.Event
}

// SnapshotRepository stores point-in-time copies of calendars in Postgres.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs a snapshot repository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// EnsureSchema creates the snapshot tables when missing.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

// SaveCalendar replaces the stored copy of a calendar and its events.
func (r *SnapshotRepository) SaveCalendar(ctx context.Context, cal models.Calendar, events []models.Event) error {
	if cal.CreatedAt.IsZero() {
		cal.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	const upsertCalendar = `INSERT INTO calendars (id, name, timezone, created_at)
VALUES (:id, :name, :timezone, :created_at)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, timezone = EXCLUDED.timezone`
	if _, err := tx.NamedExecContext(ctx, upsertCalendar, cal); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert calendar snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_events WHERE calendar_id = $1", cal.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear calendar events snapshot: %w", err)
	}
	const insertEvent = `INSERT INTO calendar_events (id, calendar_id, subject, start_at, end_at, all_day, description, location, status, series_id)
VALUES (:id, :calendar_id, :subject, :start_at, :end_at, :all_day, :description, :location, :status, :series_id)`
	for _, ev := range events {
		row := snapshotEventRow{CalendarID: cal.ID, Event: ev}
		if _, err := tx.NamedExecContext(ctx, insertEvent, row); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert event snapshot: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	return nil
}

// ListCalendars returns every saved calendar ordered by creation time.
func (r *SnapshotRepository) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	const query = `SELECT id, name, timezone, created_at FROM calendars ORDER BY created_at ASC, name ASC`
	var calendars []models.Calendar
	if err := r.db.SelectContext(ctx, &calendars, query); err != nil {
		return nil, fmt.Errorf("list calendar snapshots: %w", err)
	}
	return calendars, nil
}

// ListEvents returns the saved events of a calendar ordered by start.
func (r *SnapshotRepository) ListEvents(ctx context.Context, calendarID string) ([]models.Event, error) {
	const query = `SELECT id, subject, start_at, end_at, all_day, description, location, status, series_id
FROM calendar_events WHERE calendar_id = $1 ORDER BY start_at ASC, subject ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, calendarID); err != nil {
		return nil, fmt.Errorf("list event snapshots: %w", err)
	}
	for i := range events {
		events[i].Start = models.Wall(events[i].Start)
		events[i].End = models.Wall(events[i].End)
	}
	return events, nil
}
