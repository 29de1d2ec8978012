//go:build integration

package geocode_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"caretrack/internal/geo"
	"caretrack/internal/geocode"
	"caretrack/pkg/testutil/containers"
)

type countingResolver struct {
	calls atomic.Int32
	label string
}

func (c *countingResolver) ReverseGeocode(_ context.Context, coord geo.Coordinate) (string, error) {
	c.calls.Add(1)
	if c.label != "" {
		return c.label, nil
	}
	return geocode.FallbackLabel(coord), nil
}

type CachedResolverSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestCachedResolverSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedResolverSuite))
}

func (s *CachedResolverSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *CachedResolverSuite) TearDownSuite() {
	s.redis.Terminate(context.Background())
}

func (s *CachedResolverSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *CachedResolverSuite) TestSecondLookupServedFromCache() {
	ctx := context.Background()
	inner := &countingResolver{label: "742 Evergreen Terrace, Springfield, IL"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := geocode.NewCachedResolver(inner, s.redis.Client, logger)
	coord := geo.Coordinate{Lat: 39.7817, Lon: -89.6501}

	first, err := resolver.ReverseGeocode(ctx, coord)
	s.Require().NoError(err)
	s.Equal("742 Evergreen Terrace, Springfield, IL", first)

	second, err := resolver.ReverseGeocode(ctx, coord)
	s.Require().NoError(err)
	s.Equal(first, second)
	s.Equal(int32(1), inner.calls.Load())
}

func (s *CachedResolverSuite) TestDistinctCoordinatesMissCache() {
	ctx := context.Background()
	inner := &countingResolver{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := geocode.NewCachedResolver(inner, s.redis.Client, logger)

	_, err := resolver.ReverseGeocode(ctx, geo.Coordinate{Lat: 39.7817, Lon: -89.6501})
	s.Require().NoError(err)
	_, err = resolver.ReverseGeocode(ctx, geo.Coordinate{Lat: 39.8000, Lon: -89.7000})
	s.Require().NoError(err)

	s.Equal(int32(2), inner.calls.Load())
}
