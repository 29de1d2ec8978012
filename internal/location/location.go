// Package location acquires device position fixes for visit verification.
//
// Caregiver devices report fixes into a Feed; the visit service acquires a
// single reading per check-in/check-out through the Provider interface, and
// supervisor tooling can follow a device through a cancellable subscription.
package location

import (
	"context"
	"time"

	"caretrack/internal/geo"
	dErrors "caretrack/pkg/domain-errors"
)

// Reading is a single position fix. Immutable once produced by a provider.
// AccuracyMeters is the device-reported uncertainty radius; it is surfaced to
// callers but never used to reject a reading.
type Reading struct {
	Coordinate     geo.Coordinate `json:"coordinate"`
	AccuracyMeters float64        `json:"accuracy_meters"`
	CapturedAt     time.Time      `json:"captured_at"`
}

// Options bound a single-shot acquisition. A cached fix no older than MaxAge
// satisfies the request; otherwise the provider waits up to Timeout for a
// fresh one. HighAccuracy is a hint forwarded to the device, not a filter.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

// Read-tier presets. These are configuration, not separate code paths.

func HighAccuracyOptions() Options {
	return Options{HighAccuracy: true, Timeout: 10 * time.Second, MaxAge: 30 * time.Second}
}

func MediumOptions() Options {
	return Options{Timeout: 15 * time.Second, MaxAge: 5 * time.Minute}
}

func LowOptions() Options {
	return Options{Timeout: 20 * time.Second, MaxAge: 10 * time.Minute}
}

// ParseTier maps a configured tier name onto its preset. Empty input selects
// the high-accuracy tier, the right default for verification readings.
func ParseTier(s string) (Options, error) {
	switch s {
	case "", "high-accuracy":
		return HighAccuracyOptions(), nil
	case "medium":
		return MediumOptions(), nil
	case "low":
		return LowOptions(), nil
	default:
		return Options{}, dErrors.New(dErrors.CodeBadRequest, "unknown location tier: "+s)
	}
}

// Provider acquires a single reading for a subject (caregiver ID). The call
// suspends until the device reports a fix or fails; it performs no internal
// retries. Failures carry one of the location codes: unsupported,
// permission_denied, unavailable, timeout.
type Provider interface {
	Current(ctx context.Context, subject string, opts Options) (Reading, error)
}

// Static always returns a fixed reading or error. Used in tests and
// single-site dev deployments.
type Static struct {
	Reading Reading
	Err     error
}

func (s Static) Current(context.Context, string, Options) (Reading, error) {
	if s.Err != nil {
		return Reading{}, s.Err
	}
	return s.Reading, nil
}

// Unsupported is the provider for deployments with no positioning source.
type Unsupported struct{}

func (Unsupported) Current(context.Context, string, Options) (Reading, error) {
	return Reading{}, dErrors.New(dErrors.CodeUnsupported, "no positioning capability is configured")
}
