package handler

import (
	"caretrack/internal/geo"
	"caretrack/internal/visit"
	dErrors "caretrack/pkg/domain-errors"
)

// SiteRequest carries an expected-site coordinate. Pointer fields so an
// absent value is distinguishable from zero; a half-specified site is
// unresolvable and rejected.
type SiteRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *SiteRequest) coordinate() (*geo.Coordinate, error) {
	if s == nil {
		return nil, nil
	}
	if s.Latitude == nil || s.Longitude == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "expected site needs both latitude and longitude")
	}
	c := geo.Coordinate{Lat: *s.Latitude, Lon: *s.Longitude}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

type CheckInRequest struct {
	AppointmentID string               `json:"appointment_id"`
	CaregiverID   string               `json:"caregiver_id"`
	ExpectedSite  *SiteRequest         `json:"expected_site"`
	ProximityTier string               `json:"proximity_tier"`
	Tasks         []PlannedTaskRequest `json:"tasks"`
}

// PlannedTaskRequest is one entry of the appointment's service package,
// submitted with check-in.
type PlannedTaskRequest struct {
	TaskID   string `json:"task_id"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

func (r CheckInRequest) plannedTasks() []visit.Task {
	var out []visit.Task
	for _, t := range r.Tasks {
		out = append(out, visit.Task{TaskID: t.TaskID, Name: t.Name, Required: t.Required})
	}
	return out
}

type TaskRequest struct {
	TaskID    string `json:"task_id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Notes     string `json:"notes"`
}

func (t TaskRequest) completion() visit.TaskCompletion {
	return visit.TaskCompletion{
		TaskID:    t.TaskID,
		Name:      t.Name,
		Completed: t.Completed,
		Notes:     t.Notes,
	}
}

type CheckOutRequest struct {
	Tasks          []TaskRequest `json:"tasks"`
	CaregiverNotes string        `json:"caregiver_notes"`
}

type VerifyRequest struct {
	VerifiedBy string `json:"verified_by"`
	Verified   bool   `json:"verified"`
	Notes      string `json:"notes"`
}

// VisitResponse pairs the record with the proximity outcome when a
// verification step produced one.
type VisitResponse struct {
	Visit     *visit.Record        `json:"visit"`
	Proximity *geo.ProximityResult `json:"proximity,omitempty"`
}

type ListResponse struct {
	Visits []*visit.Record `json:"visits"`
}
