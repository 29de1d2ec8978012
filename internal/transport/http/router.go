// Package httptransport assembles the public HTTP surface: the visit and
// location routers, health, and metrics.
package httptransport

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	locationHandler "caretrack/internal/location/handler"
	"caretrack/internal/transport/http/shared"
	visitHandler "caretrack/internal/visit/handler"
)

// Deps carries everything the router mounts. DB and Redis are optional; the
// health endpoint only probes what is configured.
type Deps struct {
	Logger    *slog.Logger
	Visits    *visitHandler.Handler
	Locations *locationHandler.Handler

	Gatherer prometheus.Gatherer
	DB       *sql.DB
	Redis    *redis.Client
}

// NewRouter mounts all routes. Domain handlers bring their own middleware
// stacks; health and metrics stay bare.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth(d))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	d.Visits.Register(r)
	d.Locations.Register(r)

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK

		if d.DB != nil {
			if err := d.DB.PingContext(ctx); err != nil {
				resp.Checks["postgres"] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				resp.Checks["postgres"] = "ok"
			}
		}
		if d.Redis != nil {
			if err := d.Redis.Ping(ctx).Err(); err != nil {
				resp.Checks["redis"] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				resp.Checks["redis"] = "ok"
			}
		}

		shared.WriteJSON(w, status, resp)
	}
}
