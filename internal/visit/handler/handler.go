package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"caretrack/internal/geo"
	"caretrack/internal/platform/metrics"
	"caretrack/internal/platform/middleware"
	"caretrack/internal/transport/http/shared"
	"caretrack/internal/visit"
	"caretrack/internal/visit/service"
	dErrors "caretrack/pkg/domain-errors"
)

// Service defines the visit operations the HTTP layer needs.
type Service interface {
	CheckIn(ctx context.Context, in service.CheckInInput) (*service.CheckInResult, error)
	CompleteTask(ctx context.Context, visitID string, tc visit.TaskCompletion) (*visit.Record, error)
	CheckOut(ctx context.Context, in service.CheckOutInput) (*service.CheckOutResult, error)
	SupervisorVerify(ctx context.Context, visitID string, in service.VerifyInput) (*visit.Record, error)
	Get(ctx context.Context, visitID string) (*visit.Record, error)
	Open(ctx context.Context, appointmentID string) (*visit.Record, error)
	ListByCaregiver(ctx context.Context, caregiverID string) ([]*visit.Record, error)
}

// Handler is the thin HTTP layer over the visit service.
type Handler struct {
	logger  *slog.Logger
	visits  Service
	metrics *metrics.Metrics

	// defaultTier applies when a check-in request names no proximity tier.
	defaultTier geo.Tier
}

// New creates a new visit Handler.
func New(visits Service, logger *slog.Logger, m *metrics.Metrics, defaultTier geo.Tier) *Handler {
	if defaultTier == "" {
		defaultTier = geo.TierNormal
	}
	return &Handler{logger: logger, visits: visits, metrics: m, defaultTier: defaultTier}
}

// Register mounts the visit routes with the shared middleware stack.
func (h *Handler) Register(r chi.Router) {
	visitRouter := chi.NewRouter()
	visitRouter.Use(middleware.Recovery(h.logger))
	visitRouter.Use(middleware.RequestID)
	visitRouter.Use(middleware.Logger(h.logger))
	visitRouter.Use(middleware.Timeout(30 * time.Second))
	visitRouter.Use(middleware.ContentTypeJSON)
	visitRouter.Use(middleware.Latency(h.metrics))

	visitRouter.Post("/check-in", h.handleCheckIn)
	visitRouter.Post("/{visitID}/tasks", h.handleCompleteTask)
	visitRouter.Post("/{visitID}/check-out", h.handleCheckOut)
	visitRouter.Post("/{visitID}/verify", h.handleVerify)
	visitRouter.Get("/open", h.handleOpen)
	visitRouter.Get("/{visitID}", h.handleGet)
	visitRouter.Get("/", h.handleList)

	r.Mount("/evv/visits", visitRouter)
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	site, err := req.ExpectedSite.coordinate()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	tier := h.defaultTier
	if req.ProximityTier != "" {
		tier, err = geo.ParseTier(req.ProximityTier)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
	}

	res, err := h.visits.CheckIn(ctx, service.CheckInInput{
		AppointmentID: req.AppointmentID,
		CaregiverID:   req.CaregiverID,
		ExpectedSite:  site,
		ProximityTier: tier,
		Tasks:         req.plannedTasks(),
	})
	if err != nil {
		h.logFailure(ctx, "check-in failed", req.AppointmentID, err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, VisitResponse{Visit: res.Visit, Proximity: res.Proximity})
}

func (h *Handler) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitID := chi.URLParam(r, "visitID")

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, err := h.visits.CompleteTask(ctx, visitID, req.completion())
	if err != nil {
		h.logFailure(ctx, "task completion failed", visitID, err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, VisitResponse{Visit: rec})
}

func (h *Handler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitID := chi.URLParam(r, "visitID")

	var req CheckOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	tasks := make([]visit.TaskCompletion, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		tasks = append(tasks, t.completion())
	}

	res, err := h.visits.CheckOut(ctx, service.CheckOutInput{
		VisitID:        visitID,
		Tasks:          tasks,
		CaregiverNotes: req.CaregiverNotes,
	})
	if err != nil {
		h.logFailure(ctx, "check-out failed", visitID, err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, VisitResponse{Visit: res.Visit, Proximity: res.Proximity})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	visitID := chi.URLParam(r, "visitID")

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	rec, err := h.visits.SupervisorVerify(ctx, visitID, service.VerifyInput{
		VerifiedBy: req.VerifiedBy,
		Verified:   req.Verified,
		Notes:      req.Notes,
	})
	if err != nil {
		h.logFailure(ctx, "verification failed", visitID, err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, VisitResponse{Visit: rec})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.visits.Get(r.Context(), chi.URLParam(r, "visitID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, VisitResponse{Visit: rec})
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	appointmentID := r.URL.Query().Get("appointment_id")
	if appointmentID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "appointment_id is required"))
		return
	}
	rec, err := h.visits.Open(r.Context(), appointmentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if rec == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no open visit for this appointment"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, VisitResponse{Visit: rec})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caregiverID := r.URL.Query().Get("caregiver_id")
	if caregiverID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "caregiver_id is required"))
		return
	}
	recs, err := h.visits.ListByCaregiver(r.Context(), caregiverID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if recs == nil {
		recs = []*visit.Record{}
	}
	shared.WriteJSON(w, http.StatusOK, ListResponse{Visits: recs})
}

func (h *Handler) logFailure(ctx context.Context, msg, subject string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"subject", subject,
		"code", string(dErrors.CodeOf(err)),
		"error", err.Error(),
	)
}
