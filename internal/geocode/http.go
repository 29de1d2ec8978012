package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"caretrack/internal/geo"
	"caretrack/pkg/circuit"
)

// HTTPResolver reverse-geocodes against a Pelias-compatible endpoint
// (/v1/reverse). Any failure degrades to the numeric fallback label; callers
// never see a geocode error. A circuit breaker guards the upstream: while
// open, lookups short-circuit straight to the fallback and only a single
// trial call per cooldown interval checks whether the geocoder recovered.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	breaker *circuit.Breaker
}

func NewHTTPResolver(baseURL string, logger *slog.Logger) *HTTPResolver {
	return &HTTPResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
		breaker: circuit.New("geocode", circuit.WithFailureThreshold(5)),
	}
}

type reverseResponse struct {
	Features []struct {
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

func (r *HTTPResolver) ReverseGeocode(ctx context.Context, c geo.Coordinate) (string, error) {
	if !r.breaker.Allow() {
		return FallbackLabel(c), nil
	}

	label, err := r.lookup(ctx, c)
	if err != nil {
		open, change := r.breaker.RecordFailure()
		switch {
		case change.Opened:
			r.logger.ErrorContext(ctx, "reverse geocoder failing, circuit opened",
				"error", err.Error(),
			)
		case !open:
			r.logger.WarnContext(ctx, "reverse geocode failed, using fallback label",
				"error", err.Error(),
			)
		}
		return FallbackLabel(c), nil
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "reverse geocoder recovered, circuit closed")
	}
	return label, nil
}

func (r *HTTPResolver) lookup(ctx context.Context, c geo.Coordinate) (string, error) {
	endpoint := r.baseURL + "/v1/reverse"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build reverse geocode request: %w", err)
	}
	q := url.Values{}
	q.Set("point.lat", fmt.Sprintf("%f", c.Lat))
	q.Set("point.lon", fmt.Sprintf("%f", c.Lon))
	q.Set("size", "1")
	req.URL.RawQuery = q.Encode()

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var decoded reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode reverse geocode response: %w", err)
	}
	if len(decoded.Features) == 0 || decoded.Features[0].Properties.Label == "" {
		return "", fmt.Errorf("no reverse geocode results for %s", FallbackLabel(c))
	}
	return decoded.Features[0].Properties.Label, nil
}
