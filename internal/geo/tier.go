package geo

import dErrors "caretrack/pkg/domain-errors"

// Tier selects a distance threshold for proximity validation. Deployments
// pick per local GPS conditions (urban vs. rural).
type Tier string

const (
	TierStrict  Tier = "strict"
	TierNormal  Tier = "normal"
	TierRelaxed Tier = "relaxed"
)

var tierThresholds = map[Tier]float64{
	TierStrict:  50,
	TierNormal:  100,
	TierRelaxed: 200,
}

// ParseTier validates external input. Empty input selects the normal tier;
// security-sensitive callers must name a stricter tier explicitly.
func ParseTier(s string) (Tier, error) {
	if s == "" {
		return TierNormal, nil
	}
	t := Tier(s)
	if _, ok := tierThresholds[t]; !ok {
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown proximity tier: "+s)
	}
	return t, nil
}

// ThresholdMeters returns the distance limit for the tier, defaulting to the
// normal tier for zero values.
func (t Tier) ThresholdMeters() float64 {
	if m, ok := tierThresholds[t]; ok {
		return m
	}
	return tierThresholds[TierNormal]
}

func (t Tier) String() string { return string(t) }
