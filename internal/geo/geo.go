// Package geo implements great-circle distance and proximity validation for
// visit verification. Everything here is pure; providers and stores live
// elsewhere.
package geo

import (
	"fmt"
	"math"

	dErrors "caretrack/pkg/domain-errors"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Coordinate is an immutable geographic position in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate rejects non-finite values and out-of-range degrees. A coordinate
// that fails validation must never be used as a proximity input.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return dErrors.New(dErrors.CodeBadRequest, "coordinate is not a finite number")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("latitude %.4f outside [-90, 90]", c.Lat))
	}
	if c.Lon < -180 || c.Lon > 180 {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("longitude %.4f outside [-180, 180]", c.Lon))
	}
	return nil
}

// Distance returns the haversine great-circle distance between a and b in
// meters. It is symmetric and zero for identical points. Invalid input is an
// error, never a silent number.
func Distance(a, b Coordinate) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	d := 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, dErrors.New(dErrors.CodeInternal, "distance computation produced a non-finite result")
	}
	return d, nil
}

// ProximityResult is the displayable outcome of a proximity check. It is
// derived on demand and never persisted.
type ProximityResult struct {
	Valid           bool     `json:"is_valid"`
	DistanceMeters  *float64 `json:"distance_meters"`
	ThresholdMeters float64  `json:"threshold_meters"`
	Message         string   `json:"message"`
}

// ValidateProximity checks whether current is within thresholdMeters of
// target. It never returns an error: "too far away" and "unresolvable input"
// are both expected, displayable outcomes.
func ValidateProximity(current, target Coordinate, thresholdMeters float64) ProximityResult {
	res := ProximityResult{ThresholdMeters: thresholdMeters}

	d, err := Distance(current, target)
	if err != nil {
		res.Message = "location could not be verified: " + dErrors.MessageOf(err)
		return res
	}

	res.DistanceMeters = &d
	res.Valid = d <= thresholdMeters
	if res.Valid {
		res.Message = fmt.Sprintf("within range: %.0f m of expected site (limit %.0f m)", d, thresholdMeters)
	} else {
		res.Message = fmt.Sprintf("out of range: %.0f m from expected site (limit %.0f m)", d, thresholdMeters)
	}
	return res
}
