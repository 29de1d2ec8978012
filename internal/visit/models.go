// Package visit holds the EVV visit record aggregate and its store contract.
// The lifecycle rules live in the service subpackage; persistence lives in
// the store subpackages.
package visit

import (
	"time"

	"caretrack/internal/geo"
	"caretrack/internal/location"
)

// Status is the visit lifecycle state.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Task is one entry of an appointment's service package. Task IDs are stable
// per service offering, not per visit; the state machine treats them as
// read-only input.
type Task struct {
	TaskID   string `json:"task_id"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// TaskCompletion records one task outcome within a visit. At most one entry
// per TaskID; re-submission replaces the prior entry.
type TaskCompletion struct {
	TaskID      string    `json:"task_id"`
	Name        string    `json:"name"`
	Completed   bool      `json:"completed"`
	Notes       string    `json:"notes"`
	CompletedAt time.Time `json:"completed_at"`
}

// VerifiedLocation is a location reading plus its resolved address label, as
// attached to a check-in or check-out.
type VerifiedLocation struct {
	Reading location.Reading `json:"reading"`
	Address string           `json:"address"`
}

// SupervisorVerification is the secondary sign-off on a completed visit.
type SupervisorVerification struct {
	Verified   bool      `json:"verified"`
	VerifiedBy string    `json:"verified_by"`
	VerifiedAt time.Time `json:"verified_at"`
	Notes      string    `json:"notes"`
}

// Record is the auditable EVV aggregate for one caregiver visit.
//
// Invariants: CheckOutTime set implies CheckInTime set and CheckOutTime >=
// CheckInTime; status in_progress iff checked in and not out; completed iff
// checked out; at most one non-completed record per appointment.
type Record struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointment_id"`
	CaregiverID   string `json:"caregiver_id"`

	CheckInTime      *time.Time        `json:"check_in_time"`
	CheckInLocation  *VerifiedLocation `json:"check_in_location"`
	CheckOutTime     *time.Time        `json:"check_out_time"`
	CheckOutLocation *VerifiedLocation `json:"check_out_location"`

	// ExpectedSite is captured at check-in so checkout re-validates against
	// the same site with the same tier.
	ExpectedSite  *geo.Coordinate `json:"expected_site"`
	ProximityTier geo.Tier        `json:"proximity_tier"`

	// Tasks is the appointment's planned service package, captured at
	// check-in so checkout can flag required work left incomplete.
	Tasks []Task `json:"tasks"`

	TasksCompleted []TaskCompletion `json:"tasks_completed"`
	CaregiverNotes string           `json:"caregiver_notes"`

	Status       Status                  `json:"status"`
	Verification *SupervisorVerification `json:"supervisor_verification"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open reports whether the record still blocks a new check-in for its
// appointment.
func (r *Record) Open() bool {
	return r.Status != StatusCompleted
}

// UpsertTask replaces the completion for the same task ID or appends a new
// one, preserving insertion order. Last write wins.
func (r *Record) UpsertTask(tc TaskCompletion) {
	for i := range r.TasksCompleted {
		if r.TasksCompleted[i].TaskID == tc.TaskID {
			r.TasksCompleted[i] = tc
			return
		}
	}
	r.TasksCompleted = append(r.TasksCompleted, tc)
}

// MissedRequiredTasks returns the planned required tasks with no completed
// entry, in plan order.
func (r *Record) MissedRequiredTasks() []Task {
	var out []Task
	for _, t := range r.Tasks {
		if !t.Required {
			continue
		}
		done := false
		for _, tc := range r.TasksCompleted {
			if tc.TaskID == t.TaskID && tc.Completed {
				done = true
				break
			}
		}
		if !done {
			out = append(out, t)
		}
	}
	return out
}

// MergeTasks applies a batch of completions in order with upsert semantics,
// as submitted at checkout.
func (r *Record) MergeTasks(tcs []TaskCompletion) {
	for _, tc := range tcs {
		r.UpsertTask(tc)
	}
}

// Clone returns a deep copy so stores can hand out records without sharing
// mutable slices.
func (r *Record) Clone() *Record {
	out := *r
	if r.CheckInTime != nil {
		t := *r.CheckInTime
		out.CheckInTime = &t
	}
	if r.CheckOutTime != nil {
		t := *r.CheckOutTime
		out.CheckOutTime = &t
	}
	if r.CheckInLocation != nil {
		l := *r.CheckInLocation
		out.CheckInLocation = &l
	}
	if r.CheckOutLocation != nil {
		l := *r.CheckOutLocation
		out.CheckOutLocation = &l
	}
	if r.ExpectedSite != nil {
		c := *r.ExpectedSite
		out.ExpectedSite = &c
	}
	if r.Verification != nil {
		v := *r.Verification
		out.Verification = &v
	}
	out.Tasks = append([]Task(nil), r.Tasks...)
	out.TasksCompleted = append([]TaskCompletion(nil), r.TasksCompleted...)
	return &out
}
