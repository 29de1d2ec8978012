package geocode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"caretrack/internal/geo"
)

// labelTTL bounds how long a resolved label is reused. Addresses move rarely;
// a day keeps repeat visits to the same home cheap.
const labelTTL = 24 * time.Hour

// CachedResolver fronts another resolver with a Redis label cache keyed on
// the rounded coordinate. Cache trouble degrades to the inner resolver.
type CachedResolver struct {
	inner  Resolver
	client *redis.Client
	logger *slog.Logger
}

func NewCachedResolver(inner Resolver, client *redis.Client, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{inner: inner, client: client, logger: logger}
}

func cacheKey(c geo.Coordinate) string {
	// Four decimal places ≈ 11 m grid, matching the fallback label precision.
	return fmt.Sprintf("geocode:%.4f:%.4f", c.Lat, c.Lon)
}

func (r *CachedResolver) ReverseGeocode(ctx context.Context, c geo.Coordinate) (string, error) {
	key := cacheKey(c)

	label, err := r.client.Get(ctx, key).Result()
	if err == nil && label != "" {
		return label, nil
	}
	if err != nil && err != redis.Nil {
		r.logger.WarnContext(ctx, "geocode cache read failed", "error", err.Error())
	}

	label, err = r.inner.ReverseGeocode(ctx, c)
	if err != nil {
		// Inner resolvers absorb their own failures; keep the contract anyway.
		return FallbackLabel(c), nil
	}

	if err := r.client.Set(ctx, key, label, labelTTL).Err(); err != nil {
		r.logger.WarnContext(ctx, "geocode cache write failed", "error", err.Error())
	}
	return label, nil
}
