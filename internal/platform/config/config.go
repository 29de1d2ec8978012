package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"caretrack/internal/geo"
	"caretrack/internal/location"
	"caretrack/internal/visit/service"
	dErrors "caretrack/pkg/domain-errors"
)

// Config captures everything main needs to wire the service.
type Config struct {
	Addr     string
	LogLevel slog.Level

	// DatabaseURL is a lib/pq DSN. Empty selects the in-memory store for
	// local runs.
	DatabaseURL string

	// RedisURL enables the reverse-geocode label cache. Empty disables it.
	RedisURL string

	// GeocodeBaseURL points at a Pelias-compatible reverse geocoder. Empty
	// selects the numeric fallback resolver.
	GeocodeBaseURL string

	KafkaBrokers []string
	KafkaTopic   string

	// DeviceReportLimit caps location reports per client per minute. Zero
	// disables throttling.
	DeviceReportLimit int

	// ProximityPolicy decides whether a failed proximity check blocks
	// check-in/check-out or only attaches a warning.
	ProximityPolicy service.ProximityPolicy
	ProximityTier   geo.Tier
	LocationTier    location.Options
}

// FromEnv builds the config from environment variables so main stays lean.
// Invalid values fail loudly rather than silently selecting a default tier.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:           getEnv("CARETRACK_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		GeocodeBaseURL: os.Getenv("GEOCODE_BASE_URL"),
		KafkaTopic:     getEnv("KAFKA_AUDIT_TOPIC", "caretrack.evv.audit"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	limit, err := strconv.Atoi(getEnv("EVV_DEVICE_REPORT_LIMIT", "120"))
	if err != nil || limit < 0 {
		return Config{}, dErrors.New(dErrors.CodeBadRequest, "EVV_DEVICE_REPORT_LIMIT must be a non-negative integer")
	}
	cfg.DeviceReportLimit = limit

	switch getEnv("LOG_LEVEL", "info") {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	policy, err := service.ParseProximityPolicy(os.Getenv("EVV_PROXIMITY_POLICY"))
	if err != nil {
		return Config{}, err
	}
	cfg.ProximityPolicy = policy

	tier, err := geo.ParseTier(os.Getenv("EVV_PROXIMITY_TIER"))
	if err != nil {
		return Config{}, err
	}
	cfg.ProximityTier = tier

	opts, err := location.ParseTier(os.Getenv("EVV_LOCATION_TIER"))
	if err != nil {
		return Config{}, err
	}
	cfg.LocationTier = opts

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
