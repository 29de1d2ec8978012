// Package geocode turns coordinates into human-readable address labels for
// visit records. Resolution is strictly best effort: every resolver falls
// back to a numeric "lat, lon" label instead of propagating a failure, so
// address trouble can never block a check-in.
package geocode

import (
	"context"
	"fmt"

	"caretrack/internal/geo"
)

// Resolver produces a display label for a coordinate.
type Resolver interface {
	ReverseGeocode(ctx context.Context, c geo.Coordinate) (string, error)
}

// FallbackLabel formats the coordinate to four decimal places, the label used
// whenever no real geocoding backend is configured or reachable.
func FallbackLabel(c geo.Coordinate) string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lon)
}

// FallbackResolver is the default resolver: always the numeric label, never
// an error. Deployments swap in an HTTP backend without touching callers.
type FallbackResolver struct{}

func (FallbackResolver) ReverseGeocode(_ context.Context, c geo.Coordinate) (string, error) {
	return FallbackLabel(c), nil
}
