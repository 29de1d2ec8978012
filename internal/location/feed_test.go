package location

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caretrack/internal/geo"
	dErrors "caretrack/pkg/domain-errors"
)

func testReading(lat, lon float64, at time.Time) Reading {
	return Reading{
		Coordinate:     geo.Coordinate{Lat: lat, Lon: lon},
		AccuracyMeters: 12,
		CapturedAt:     at,
	}
}

func TestCurrentReturnsCachedFixWithinMaxAge(t *testing.T) {
	feed := NewFeed()
	r := testReading(39.7817, -89.6501, time.Now().Add(-10*time.Second))
	feed.Publish("cg-1", r)

	got, err := feed.Current(context.Background(), "cg-1", HighAccuracyOptions())
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestCurrentIgnoresStaleCachedFix(t *testing.T) {
	feed := NewFeed()
	stale := testReading(39.7817, -89.6501, time.Now().Add(-time.Hour))
	feed.Publish("cg-1", stale)

	opts := Options{Timeout: 50 * time.Millisecond, MaxAge: 30 * time.Second}
	_, err := feed.Current(context.Background(), "cg-1", opts)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeTimeout))
}

func TestCurrentWaitsForFreshFix(t *testing.T) {
	feed := NewFeed()
	fresh := testReading(39.7820, -89.6505, time.Now())

	var wg sync.WaitGroup
	wg.Add(1)
	var got Reading
	var err error
	go func() {
		defer wg.Done()
		got, err = feed.Current(context.Background(), "cg-1", Options{Timeout: 2 * time.Second, MaxAge: time.Second})
	}()

	time.Sleep(20 * time.Millisecond)
	feed.Publish("cg-1", fresh)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestCurrentSurfacesPublishedError(t *testing.T) {
	feed := NewFeed()

	var wg sync.WaitGroup
	wg.Add(1)
	var err error
	go func() {
		defer wg.Done()
		_, err = feed.Current(context.Background(), "cg-1", Options{Timeout: 2 * time.Second, MaxAge: time.Second})
	}()

	time.Sleep(20 * time.Millisecond)
	feed.PublishError("cg-1", dErrors.New(dErrors.CodePermissionDenied, "location permission denied on device"))
	wg.Wait()

	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodePermissionDenied))
}

func TestCurrentTimesOutWithoutFix(t *testing.T) {
	feed := NewFeed()
	start := time.Now()
	_, err := feed.Current(context.Background(), "cg-silent", Options{Timeout: 40 * time.Millisecond, MaxAge: time.Second})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCurrentHonorsContextCancellation(t *testing.T) {
	feed := NewFeed()
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	var err error
	go func() {
		defer wg.Done()
		_, err = feed.Current(ctx, "cg-1", Options{Timeout: 5 * time.Second, MaxAge: time.Second})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	wg.Wait()

	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnavailable))
}

func TestCurrentIsolatesSubjects(t *testing.T) {
	feed := NewFeed()
	feed.Publish("cg-other", testReading(1, 1, time.Now()))

	_, err := feed.Current(context.Background(), "cg-1", Options{Timeout: 40 * time.Millisecond, MaxAge: time.Minute})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeTimeout))
}

func TestWatchDeliversUntilCancel(t *testing.T) {
	feed := NewFeed()
	sub := feed.Watch("cg-1")

	first := testReading(39.7817, -89.6501, time.Now())
	feed.Publish("cg-1", first)

	select {
	case got := <-sub.Updates():
		assert.Equal(t, first, got)
	case <-time.After(time.Second):
		t.Fatal("expected a delivered fix")
	}

	sub.Cancel()
	sub.Cancel() // idempotent

	feed.Publish("cg-1", testReading(40, -90, time.Now()))
	select {
	case r, ok := <-sub.Updates():
		if ok {
			t.Fatalf("unexpected delivery after cancel: %+v", r)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchSurfacesErrors(t *testing.T) {
	feed := NewFeed()
	sub := feed.Watch("cg-1")
	defer sub.Cancel()

	feed.PublishError("cg-1", dErrors.New(dErrors.CodeUnavailable, "no GPS signal"))

	select {
	case err := <-sub.Errs():
		assert.True(t, dErrors.Is(err, dErrors.CodeUnavailable))
	case <-time.After(time.Second):
		t.Fatal("expected a delivered error")
	}
}

func TestWatchDropsOldestWhenSlow(t *testing.T) {
	feed := NewFeed()
	sub := feed.Watch("cg-1")
	defer sub.Cancel()

	for i := 0; i < 40; i++ {
		feed.Publish("cg-1", testReading(float64(i)/1000, 0, time.Now()))
	}

	// The subscription buffer holds the most recent samples; draining must
	// not block and must end with the newest fix.
	var last Reading
	for {
		select {
		case r := <-sub.Updates():
			last = r
			continue
		default:
		}
		break
	}
	assert.InDelta(t, 0.039, last.Coordinate.Lat, 1e-9)
}

func TestStaticProvider(t *testing.T) {
	r := testReading(1, 2, time.Now())
	got, err := Static{Reading: r}.Current(context.Background(), "cg-1", MediumOptions())
	require.NoError(t, err)
	assert.Equal(t, r, got)

	_, err = Static{Err: dErrors.New(dErrors.CodeUnavailable, "no fix")}.Current(context.Background(), "cg-1", MediumOptions())
	assert.True(t, dErrors.Is(err, dErrors.CodeUnavailable))
}

func TestUnsupportedProvider(t *testing.T) {
	_, err := Unsupported{}.Current(context.Background(), "cg-1", LowOptions())
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnsupported))
}

func TestParseLocationTier(t *testing.T) {
	opts, err := ParseTier("")
	require.NoError(t, err)
	assert.True(t, opts.HighAccuracy)
	assert.Equal(t, 10*time.Second, opts.Timeout)

	opts, err = ParseTier("medium")
	require.NoError(t, err)
	assert.False(t, opts.HighAccuracy)
	assert.Equal(t, 5*time.Minute, opts.MaxAge)

	opts, err = ParseTier("low")
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, opts.Timeout)

	_, err = ParseTier("ultra")
	require.Error(t, err)
}
