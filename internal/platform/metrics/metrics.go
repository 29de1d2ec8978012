package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CheckInsTotal       prometheus.Counter
	CheckOutsTotal      prometheus.Counter
	TasksCompletedTotal prometheus.Counter
	VerificationsTotal  prometheus.Counter

	// ProximityFailuresTotal counts failed proximity validations by phase
	// (check_in / check_out) regardless of whether policy blocked the call.
	ProximityFailuresTotal *prometheus.CounterVec

	// LocationErrorsTotal counts location acquisition failures by code.
	LocationErrorsTotal *prometheus.CounterVec

	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics against the given registerer. Tests
// pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CheckInsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "caretrack_evv_check_ins_total",
			Help: "Total number of successful visit check-ins",
		}),
		CheckOutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "caretrack_evv_check_outs_total",
			Help: "Total number of successful visit check-outs",
		}),
		TasksCompletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "caretrack_evv_tasks_completed_total",
			Help: "Total number of task completion submissions",
		}),
		VerificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "caretrack_evv_supervisor_verifications_total",
			Help: "Total number of supervisor verification submissions",
		}),
		ProximityFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caretrack_evv_proximity_failures_total",
			Help: "Failed proximity validations by visit phase",
		}, []string{"phase"}),
		LocationErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caretrack_evv_location_errors_total",
			Help: "Location acquisition failures by error code",
		}, []string{"code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caretrack_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}
