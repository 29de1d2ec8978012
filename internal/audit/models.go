// Package audit captures the append-only EVV activity trail. Events flow
// from a channel-backed publisher through a worker into a store and, when
// configured, onto Kafka for downstream billing/compliance consumers.
package audit

import (
	"context"
	"time"
)

// Action names an auditable EVV event.
type Action string

const (
	ActionCheckedIn          Action = "visit.checked_in"
	ActionTaskCompleted      Action = "visit.task_completed"
	ActionCheckedOut         Action = "visit.checked_out"
	ActionSupervisorVerified Action = "visit.supervisor_verified"
	ActionProximityWarning   Action = "visit.proximity_warning"
	ActionRequiredTaskMissed Action = "visit.required_task_missed"
	ActionLocationError      Action = "location.error"
)

// Event is one audit trail entry. Detail is a short display string, never a
// raw platform error.
type Event struct {
	ID            string    `json:"id"`
	Action        Action    `json:"action"`
	VisitID       string    `json:"visit_id,omitempty"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	CaregiverID   string    `json:"caregiver_id,omitempty"`
	ActorID       string    `json:"actor_id,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Store is the audit persistence sink.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByVisit(ctx context.Context, visitID string) ([]Event, error)
}
