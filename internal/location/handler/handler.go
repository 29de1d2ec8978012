// Package handler exposes the device-facing side of the location feed:
// fix ingest and a server-sent-events stream for supervisor tooling.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"caretrack/internal/location"
	"caretrack/internal/platform/metrics"
	"caretrack/internal/platform/middleware"
	"caretrack/internal/ratelimit"
	"caretrack/internal/transport/http/shared"
	dErrors "caretrack/pkg/domain-errors"
)

// Handler bridges HTTP device reports into the in-process feed.
type Handler struct {
	logger  *slog.Logger
	feed    *location.Feed
	metrics *metrics.Metrics
	limiter *ratelimit.SlidingWindow

	now func() time.Time
}

// New creates a location Handler. A nil limiter disables report throttling.
func New(feed *location.Feed, logger *slog.Logger, m *metrics.Metrics, limiter *ratelimit.SlidingWindow) *Handler {
	return &Handler{logger: logger, feed: feed, metrics: m, limiter: limiter, now: time.Now}
}

// Register mounts the location routes. The watch route skips the JSON
// content-type middleware; it speaks text/event-stream.
func (h *Handler) Register(r chi.Router) {
	locRouter := chi.NewRouter()
	locRouter.Use(middleware.Recovery(h.logger))
	locRouter.Use(middleware.RequestID)
	locRouter.Use(middleware.Logger(h.logger))
	locRouter.Use(middleware.Latency(h.metrics))
	if h.limiter != nil {
		locRouter.Use(ratelimit.Middleware(h.limiter))
	}

	locRouter.Post("/", h.handleReport)
	locRouter.Get("/watch", h.handleWatch)

	r.Mount("/evv/locations", locRouter)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.CaregiverID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "caregiver_id is required"))
		return
	}

	if req.ErrorCode != "" {
		devErr, err := req.deviceError()
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		h.feed.PublishError(req.CaregiverID, devErr)
		h.metrics.LocationErrorsTotal.WithLabelValues(string(dErrors.CodeOf(devErr))).Inc()
		h.logger.WarnContext(ctx, "device reported location failure",
			"request_id", middleware.GetRequestID(ctx),
			"caregiver_id", req.CaregiverID,
			"code", string(dErrors.CodeOf(devErr)),
		)
		shared.WriteJSON(w, http.StatusAccepted, ReportResponse{Accepted: true})
		return
	}

	reading, err := req.reading(h.now())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.feed.Publish(req.CaregiverID, reading)
	shared.WriteJSON(w, http.StatusAccepted, ReportResponse{Accepted: true})
}

// handleWatch streams fixes for one caregiver as server-sent events until the
// client disconnects.
func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caregiverID := r.URL.Query().Get("caregiver_id")
	if caregiverID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "caregiver_id is required"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming is not supported"))
		return
	}

	sub := h.feed.Watch(caregiverID)
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case reading := <-sub.Updates():
			if err := writeEvent(w, "reading", reading); err != nil {
				return
			}
			flusher.Flush()
		case devErr := <-sub.Errs():
			body := shared.ErrorBody{
				Error:   string(dErrors.CodeOf(devErr)),
				Message: dErrors.MessageOf(devErr),
			}
			if err := writeEvent(w, "error", body); err != nil {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
