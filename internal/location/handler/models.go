package handler

import (
	"math"
	"time"

	"caretrack/internal/geo"
	"caretrack/internal/location"
	dErrors "caretrack/pkg/domain-errors"
)

// ReportRequest is one device report: either a fix or a device-side failure.
// ErrorCode set means the device could not produce a fix; coordinate fields
// are ignored in that case.
type ReportRequest struct {
	CaregiverID    string   `json:"caregiver_id"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	AccuracyMeters float64  `json:"accuracy_meters"`
	CapturedAt     string   `json:"captured_at"`

	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

func (r ReportRequest) reading(now time.Time) (location.Reading, error) {
	if r.Latitude == nil || r.Longitude == nil {
		return location.Reading{}, dErrors.New(dErrors.CodeBadRequest, "a fix report needs both latitude and longitude")
	}
	c := geo.Coordinate{Lat: *r.Latitude, Lon: *r.Longitude}
	if err := c.Validate(); err != nil {
		return location.Reading{}, err
	}
	if r.AccuracyMeters < 0 || math.IsNaN(r.AccuracyMeters) || math.IsInf(r.AccuracyMeters, 0) {
		return location.Reading{}, dErrors.New(dErrors.CodeBadRequest, "accuracy_meters must be a non-negative number")
	}
	capturedAt := now
	if r.CapturedAt != "" {
		t, err := time.Parse(time.RFC3339, r.CapturedAt)
		if err != nil {
			return location.Reading{}, dErrors.New(dErrors.CodeBadRequest, "captured_at must be RFC 3339")
		}
		capturedAt = t
	}
	return location.Reading{
		Coordinate:     c,
		AccuracyMeters: r.AccuracyMeters,
		CapturedAt:     capturedAt,
	}, nil
}

// deviceError maps a device-reported failure onto the location error
// taxonomy. An unrecognized code rejects the whole report.
func (r ReportRequest) deviceError() (error, error) {
	msg := r.ErrorMessage
	switch r.ErrorCode {
	case "permission_denied":
		if msg == "" {
			msg = "device denied location permission"
		}
		return dErrors.New(dErrors.CodePermissionDenied, msg), nil
	case "unavailable":
		if msg == "" {
			msg = "device position is unavailable"
		}
		return dErrors.New(dErrors.CodeUnavailable, msg), nil
	case "timeout":
		if msg == "" {
			msg = "device timed out acquiring a fix"
		}
		return dErrors.New(dErrors.CodeTimeout, msg), nil
	case "unsupported":
		if msg == "" {
			msg = "device has no positioning capability"
		}
		return dErrors.New(dErrors.CodeUnsupported, msg), nil
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown device error code: "+r.ErrorCode)
	}
}

type ReportResponse struct {
	Accepted bool `json:"accepted"`
}
