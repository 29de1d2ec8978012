// Package postgres persists the audit trail. Events are append-only; the
// worker retries are idempotent via ON CONFLICT DO NOTHING on the event ID.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"caretrack/internal/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id             UUID PRIMARY KEY,
	action         TEXT        NOT NULL,
	visit_id       TEXT        NOT NULL DEFAULT '',
	appointment_id TEXT        NOT NULL DEFAULT '',
	caregiver_id   TEXT        NOT NULL DEFAULT '',
	actor_id       TEXT        NOT NULL DEFAULT '',
	detail         TEXT        NOT NULL DEFAULT '',
	occurred_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS audit_events_visit_idx
	ON audit_events (visit_id, occurred_at DESC);
`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

// Append writes one event. Duplicate IDs are ignored so a worker retry after
// a partial failure cannot double-record.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, action, visit_id, appointment_id, caregiver_id,
			actor_id, detail, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		event.VisitID,
		event.AppointmentID,
		event.CaregiverID,
		event.ActorID,
		event.Detail,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByVisit returns a visit's trail, newest first.
func (s *Store) ListByVisit(ctx context.Context, visitID string) ([]audit.Event, error) {
	query := `
		SELECT id, action, visit_id, appointment_id, caregiver_id,
			   actor_id, detail, occurred_at
		FROM audit_events
		WHERE visit_id = $1
		ORDER BY occurred_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, visitID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events across all visits.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT id, action, visit_id, appointment_id, caregiver_id,
			   actor_id, detail, occurred_at
		FROM audit_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event  audit.Event
			action string
		)
		err := rows.Scan(
			&event.ID,
			&action,
			&event.VisitID,
			&event.AppointmentID,
			&event.CaregiverID,
			&event.ActorID,
			&event.Detail,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = audit.Action(action)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
