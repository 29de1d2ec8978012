// Package postgres persists visit records. The open-visit-per-appointment
// invariant is enforced by a partial unique index, so concurrent check-ins
// race safely at the database rather than through read-then-write.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"caretrack/internal/geo"
	"caretrack/internal/visit"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the visit schema. Called from main and integration tests.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS visit_records (
		id UUID PRIMARY KEY,
		appointment_id TEXT NOT NULL,
		caregiver_id TEXT NOT NULL,
		status TEXT NOT NULL,
		check_in_time TIMESTAMPTZ,
		check_in_location JSONB,
		check_out_time TIMESTAMPTZ,
		check_out_location JSONB,
		expected_site JSONB,
		proximity_tier TEXT NOT NULL DEFAULT 'normal',
		tasks JSONB NOT NULL DEFAULT '[]',
		tasks_completed JSONB NOT NULL DEFAULT '[]',
		caregiver_notes TEXT NOT NULL DEFAULT '',
		supervisor_verification JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS visit_records_open_appointment_idx
		ON visit_records (appointment_id) WHERE status <> 'completed';
	CREATE INDEX IF NOT EXISTS visit_records_caregiver_idx
		ON visit_records (caregiver_id, created_at DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate visit schema: %w", err)
	}
	return nil
}

func (s *Store) CreateIfAbsent(ctx context.Context, rec *visit.Record) (*visit.Record, error) {
	stored := rec.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	cols, err := marshalRecord(stored)
	if err != nil {
		return nil, err
	}

	const q = `
	INSERT INTO visit_records (
		id, appointment_id, caregiver_id, status,
		check_in_time, check_in_location, check_out_time, check_out_location,
		expected_site, proximity_tier, tasks, tasks_completed, caregiver_notes,
		supervisor_verification, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = s.db.ExecContext(ctx, q,
		stored.ID, stored.AppointmentID, stored.CaregiverID, stored.Status,
		stored.CheckInTime, cols.checkInLocation, stored.CheckOutTime, cols.checkOutLocation,
		cols.expectedSite, stored.ProximityTier, cols.tasks, cols.tasksCompleted, stored.CaregiverNotes,
		cols.verification, stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			open, getErr := s.GetOpenByAppointment(ctx, stored.AppointmentID)
			if getErr == nil && open != nil {
				return open, visit.ErrOpenVisitExists
			}
			return nil, visit.ErrOpenVisitExists
		}
		return nil, fmt.Errorf("insert visit record: %w", err)
	}
	return stored, nil
}

func (s *Store) Update(ctx context.Context, rec *visit.Record) (*visit.Record, error) {
	stored := rec.Clone()
	stored.UpdatedAt = time.Now()

	cols, err := marshalRecord(stored)
	if err != nil {
		return nil, err
	}

	const q = `
	UPDATE visit_records SET
		status = $2,
		check_in_time = $3, check_in_location = $4,
		check_out_time = $5, check_out_location = $6,
		expected_site = $7, proximity_tier = $8,
		tasks = $9, tasks_completed = $10, caregiver_notes = $11,
		supervisor_verification = $12, updated_at = $13
	WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q,
		stored.ID, stored.Status,
		stored.CheckInTime, cols.checkInLocation,
		stored.CheckOutTime, cols.checkOutLocation,
		cols.expectedSite, stored.ProximityTier,
		cols.tasks, cols.tasksCompleted, stored.CaregiverNotes,
		cols.verification, stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update visit record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update visit record: rows affected: %w", err)
	}
	if affected == 0 {
		return nil, visit.ErrNotFound
	}
	return s.GetByID(ctx, stored.ID)
}

func (s *Store) GetByID(ctx context.Context, id string) (*visit.Record, error) {
	const q = selectColumns + ` WHERE id = $1`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, visit.ErrNotFound
	}
	return rec, err
}

func (s *Store) GetOpenByAppointment(ctx context.Context, appointmentID string) (*visit.Record, error) {
	const q = selectColumns + ` WHERE appointment_id = $1 AND status <> 'completed'`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, q, appointmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *Store) ListByCaregiver(ctx context.Context, caregiverID string) ([]*visit.Record, error) {
	const q = selectColumns + ` WHERE caregiver_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("list visit records: %w", err)
	}
	defer rows.Close()

	var out []*visit.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list visit records: iterate rows: %w", err)
	}
	return out, nil
}

const selectColumns = `
	SELECT id, appointment_id, caregiver_id, status,
		check_in_time, check_in_location, check_out_time, check_out_location,
		expected_site, proximity_tier, tasks, tasks_completed, caregiver_notes,
		supervisor_verification, created_at, updated_at
	FROM visit_records`

type recordColumns struct {
	checkInLocation  []byte
	checkOutLocation []byte
	expectedSite     []byte
	tasks            []byte
	tasksCompleted   []byte
	verification     []byte
}

func marshalRecord(rec *visit.Record) (recordColumns, error) {
	var cols recordColumns
	var err error
	if rec.CheckInLocation != nil {
		if cols.checkInLocation, err = json.Marshal(rec.CheckInLocation); err != nil {
			return cols, fmt.Errorf("marshal check-in location: %w", err)
		}
	}
	if rec.CheckOutLocation != nil {
		if cols.checkOutLocation, err = json.Marshal(rec.CheckOutLocation); err != nil {
			return cols, fmt.Errorf("marshal check-out location: %w", err)
		}
	}
	if rec.ExpectedSite != nil {
		if cols.expectedSite, err = json.Marshal(rec.ExpectedSite); err != nil {
			return cols, fmt.Errorf("marshal expected site: %w", err)
		}
	}
	planned := rec.Tasks
	if planned == nil {
		planned = []visit.Task{}
	}
	if cols.tasks, err = json.Marshal(planned); err != nil {
		return cols, fmt.Errorf("marshal planned tasks: %w", err)
	}
	completed := rec.TasksCompleted
	if completed == nil {
		completed = []visit.TaskCompletion{}
	}
	if cols.tasksCompleted, err = json.Marshal(completed); err != nil {
		return cols, fmt.Errorf("marshal task completions: %w", err)
	}
	if rec.Verification != nil {
		if cols.verification, err = json.Marshal(rec.Verification); err != nil {
			return cols, fmt.Errorf("marshal supervisor verification: %w", err)
		}
	}
	return cols, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*visit.Record, error) {
	var rec visit.Record
	var tier string
	var checkInLoc, checkOutLoc, expectedSite, planned, completed, verification []byte

	err := row.Scan(
		&rec.ID, &rec.AppointmentID, &rec.CaregiverID, &rec.Status,
		&rec.CheckInTime, &checkInLoc, &rec.CheckOutTime, &checkOutLoc,
		&expectedSite, &tier, &planned, &completed, &rec.CaregiverNotes,
		&verification, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ProximityTier = geo.Tier(tier)

	if len(checkInLoc) > 0 {
		rec.CheckInLocation = &visit.VerifiedLocation{}
		if err := json.Unmarshal(checkInLoc, rec.CheckInLocation); err != nil {
			return nil, fmt.Errorf("unmarshal check-in location: %w", err)
		}
	}
	if len(checkOutLoc) > 0 {
		rec.CheckOutLocation = &visit.VerifiedLocation{}
		if err := json.Unmarshal(checkOutLoc, rec.CheckOutLocation); err != nil {
			return nil, fmt.Errorf("unmarshal check-out location: %w", err)
		}
	}
	if len(expectedSite) > 0 {
		rec.ExpectedSite = &geo.Coordinate{}
		if err := json.Unmarshal(expectedSite, rec.ExpectedSite); err != nil {
			return nil, fmt.Errorf("unmarshal expected site: %w", err)
		}
	}
	if len(planned) > 0 {
		if err := json.Unmarshal(planned, &rec.Tasks); err != nil {
			return nil, fmt.Errorf("unmarshal planned tasks: %w", err)
		}
	}
	if len(completed) > 0 {
		if err := json.Unmarshal(completed, &rec.TasksCompleted); err != nil {
			return nil, fmt.Errorf("unmarshal task completions: %w", err)
		}
	}
	if len(verification) > 0 {
		rec.Verification = &visit.SupervisorVerification{}
		if err := json.Unmarshal(verification, rec.Verification); err != nil {
			return nil, fmt.Errorf("unmarshal supervisor verification: %w", err)
		}
	}
	return &rec, nil
}
