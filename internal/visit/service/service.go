// Package service implements the visit verification state machine:
// check-in, task completion, check-out, supervisor verification. It owns the
// lifecycle rules; location acquisition, geocoding and persistence are
// injected capabilities.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"caretrack/internal/audit"
	"caretrack/internal/geo"
	"caretrack/internal/geocode"
	"caretrack/internal/location"
	"caretrack/internal/platform/metrics"
	"caretrack/internal/visit"
	dErrors "caretrack/pkg/domain-errors"
)

// ProximityPolicy decides what a failed proximity validation does to a
// check-in or check-out. The source workflow only flagged the mismatch, so
// warn is the default; block is for deployments that want a hard stop.
type ProximityPolicy string

const (
	ProximityWarn  ProximityPolicy = "warn"
	ProximityBlock ProximityPolicy = "block"
)

// ParseProximityPolicy validates config input. Empty selects warn.
func ParseProximityPolicy(s string) (ProximityPolicy, error) {
	switch s {
	case "", string(ProximityWarn):
		return ProximityWarn, nil
	case string(ProximityBlock):
		return ProximityBlock, nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown proximity policy: "+s)
	}
}

// Service drives the visit lifecycle. Callers serialize operations per
// appointment (one device session); the store's create-if-absent is the
// backstop against racing check-ins.
type Service struct {
	store     visit.Store
	locations location.Provider
	resolver  geocode.Resolver
	publisher *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer

	policy  ProximityPolicy
	locOpts location.Options

	now func() time.Time
}

type Options struct {
	Policy          ProximityPolicy
	LocationOptions location.Options
}

func New(
	store visit.Store,
	locations location.Provider,
	resolver geocode.Resolver,
	publisher *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts Options,
) *Service {
	if opts.Policy == "" {
		opts.Policy = ProximityWarn
	}
	if opts.LocationOptions == (location.Options{}) {
		opts.LocationOptions = location.HighAccuracyOptions()
	}
	return &Service{
		store:     store,
		locations: locations,
		resolver:  resolver,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("caretrack/internal/visit/service"),
		policy:    opts.Policy,
		locOpts:   opts.LocationOptions,
		now:       time.Now,
	}
}

// CheckInInput starts a visit. ExpectedSite and Tasks come from the
// appointment; when the site is absent, no proximity validation runs.
type CheckInInput struct {
	AppointmentID string
	CaregiverID   string
	ExpectedSite  *geo.Coordinate
	ProximityTier geo.Tier
	Tasks         []visit.Task
}

// CheckInResult carries the persisted record and, when an expected site was
// given, the proximity outcome for the UI to render.
type CheckInResult struct {
	Visit     *visit.Record
	Proximity *geo.ProximityResult
}

func (s *Service) CheckIn(ctx context.Context, in CheckInInput) (*CheckInResult, error) {
	ctx, span := s.tracer.Start(ctx, "visit.CheckIn",
		trace.WithAttributes(attribute.String("appointment_id", in.AppointmentID)))
	defer span.End()

	if in.AppointmentID == "" || in.CaregiverID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "appointment and caregiver are required")
	}
	tier := in.ProximityTier
	if tier == "" {
		tier = geo.TierNormal
	}

	open, err := s.store.GetOpenByAppointment(ctx, in.AppointmentID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodePersistenceFailed, "could not look up open visits", err)
	}
	if open != nil {
		return nil, dErrors.New(dErrors.CodeAlreadyCheckedIn, "a visit is already in progress for this appointment")
	}

	verified, proximity, err := s.acquireLocation(ctx, in.CaregiverID, in.ExpectedSite, tier, "check_in")
	if err != nil {
		s.emit(ctx, audit.Event{
			Action:        audit.ActionLocationError,
			AppointmentID: in.AppointmentID,
			CaregiverID:   in.CaregiverID,
			Detail:        dErrors.MessageOf(err),
		})
		return nil, err
	}
	if err := s.enforceProximity(ctx, proximity, "", in.AppointmentID, in.CaregiverID, "check_in"); err != nil {
		return nil, err
	}

	now := s.now()
	rec := &visit.Record{
		AppointmentID:   in.AppointmentID,
		CaregiverID:     in.CaregiverID,
		CheckInTime:     &now,
		CheckInLocation: verified,
		ExpectedSite:    in.ExpectedSite,
		ProximityTier:   tier,
		Tasks:           in.Tasks,
		Status:          visit.StatusInProgress,
	}
	created, err := s.store.CreateIfAbsent(ctx, rec)
	if err != nil {
		if err == visit.ErrOpenVisitExists {
			return nil, dErrors.New(dErrors.CodeAlreadyCheckedIn, "a visit is already in progress for this appointment")
		}
		return nil, dErrors.Wrap(dErrors.CodePersistenceFailed, "could not save visit record", err)
	}

	s.metrics.CheckInsTotal.Inc()
	s.emit(ctx, audit.Event{
		Action:        audit.ActionCheckedIn,
		VisitID:       created.ID,
		AppointmentID: created.AppointmentID,
		CaregiverID:   created.CaregiverID,
		Detail:        verified.Address,
	})
	return &CheckInResult{Visit: created, Proximity: proximity}, nil
}

// CompleteTask upserts one task completion on an in-progress visit. Location
// is not involved; re-submitting a task ID replaces the prior entry.
func (s *Service) CompleteTask(ctx context.Context, visitID string, tc visit.TaskCompletion) (*visit.Record, error) {
	ctx, span := s.tracer.Start(ctx, "visit.CompleteTask",
		trace.WithAttributes(attribute.String("visit_id", visitID)))
	defer span.End()

	if tc.TaskID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "task id is required")
	}

	rec, err := s.getRecord(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if rec.Status != visit.StatusInProgress {
		return nil, dErrors.New(dErrors.CodeVisitNotInProgress, "tasks can only be recorded while a visit is in progress")
	}

	tc.CompletedAt = s.now()
	rec.UpsertTask(tc)

	updated, err := s.store.Update(ctx, rec)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodePersistenceFailed, "could not save task completion", err)
	}

	s.metrics.TasksCompletedTotal.Inc()
	s.emit(ctx, audit.Event{
		Action:        audit.ActionTaskCompleted,
		VisitID:       updated.ID,
		AppointmentID: updated.AppointmentID,
		CaregiverID:   updated.CaregiverID,
		Detail:        tc.Name,
	})
	return updated, nil
}

// CheckOutInput completes a visit. Tasks are merged with upsert semantics;
// proximity is re-validated against the site captured at check-in.
type CheckOutInput struct {
	VisitID        string
	Tasks          []visit.TaskCompletion
	CaregiverNotes string
}

type CheckOutResult struct {
	Visit     *visit.Record
	Proximity *geo.ProximityResult
}

func (s *Service) CheckOut(ctx context.Context, in CheckOutInput) (*CheckOutResult, error) {
	ctx, span := s.tracer.Start(ctx, "visit.CheckOut",
		trace.WithAttributes(attribute.String("visit_id", in.VisitID)))
	defer span.End()

	rec, err := s.getRecord(ctx, in.VisitID)
	if err != nil {
		return nil, err
	}
	if rec.Status != visit.StatusInProgress {
		return nil, dErrors.New(dErrors.CodeVisitNotInProgress, "no visit is in progress to check out of")
	}

	verified, proximity, err := s.acquireLocation(ctx, rec.CaregiverID, rec.ExpectedSite, rec.ProximityTier, "check_out")
	if err != nil {
		s.emit(ctx, audit.Event{
			Action:        audit.ActionLocationError,
			VisitID:       rec.ID,
			AppointmentID: rec.AppointmentID,
			CaregiverID:   rec.CaregiverID,
			Detail:        dErrors.MessageOf(err),
		})
		return nil, err
	}
	if err := s.enforceProximity(ctx, proximity, rec.ID, rec.AppointmentID, rec.CaregiverID, "check_out"); err != nil {
		return nil, err
	}

	now := s.now()
	if rec.CheckInTime != nil && now.Before(*rec.CheckInTime) {
		now = *rec.CheckInTime
	}
	rec.CheckOutTime = &now
	rec.CheckOutLocation = verified
	for i := range in.Tasks {
		if in.Tasks[i].CompletedAt.IsZero() {
			in.Tasks[i].CompletedAt = now
		}
	}
	rec.MergeTasks(in.Tasks)
	if in.CaregiverNotes != "" {
		rec.CaregiverNotes = in.CaregiverNotes
	}
	rec.Status = visit.StatusCompleted

	updated, err := s.store.Update(ctx, rec)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodePersistenceFailed, "could not save visit record", err)
	}

	s.metrics.CheckOutsTotal.Inc()
	s.emit(ctx, audit.Event{
		Action:        audit.ActionCheckedOut,
		VisitID:       updated.ID,
		AppointmentID: updated.AppointmentID,
		CaregiverID:   updated.CaregiverID,
		Detail:        verified.Address,
	})
	if missed := updated.MissedRequiredTasks(); len(missed) > 0 {
		names := make([]string, 0, len(missed))
		for _, t := range missed {
			names = append(names, t.Name)
		}
		s.logger.WarnContext(ctx, "required tasks left incomplete at check-out",
			"visit_id", updated.ID,
			"tasks", names,
		)
		s.emit(ctx, audit.Event{
			Action:        audit.ActionRequiredTaskMissed,
			VisitID:       updated.ID,
			AppointmentID: updated.AppointmentID,
			CaregiverID:   updated.CaregiverID,
			Detail:        strings.Join(names, ", "),
		})
	}
	return &CheckOutResult{Visit: updated, Proximity: proximity}, nil
}

// VerifyInput is the supervisor sign-off on a completed visit.
type VerifyInput struct {
	VerifiedBy string
	Verified   bool
	Notes      string
}

// SupervisorVerify records the sign-off. Idempotent: re-verifying overwrites
// the prior verification and leaves the status untouched.
func (s *Service) SupervisorVerify(ctx context.Context, visitID string, in VerifyInput) (*visit.Record, error) {
	ctx, span := s.tracer.Start(ctx, "visit.SupervisorVerify",
		trace.WithAttributes(attribute.String("visit_id", visitID)))
	defer span.End()

	if in.VerifiedBy == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "verifier id is required")
	}

	rec, err := s.getRecord(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if rec.Status != visit.StatusCompleted {
		return nil, dErrors.New(dErrors.CodeVisitNotCompleted, "only completed visits can be verified")
	}

	rec.Verification = &visit.SupervisorVerification{
		Verified:   in.Verified,
		VerifiedBy: in.VerifiedBy,
		VerifiedAt: s.now(),
		Notes:      in.Notes,
	}
	updated, err := s.store.Update(ctx, rec)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodePersistenceFailed, "could not save verification", err)
	}

	s.metrics.VerificationsTotal.Inc()
	s.emit(ctx, audit.Event{
		Action:        audit.ActionSupervisorVerified,
		VisitID:       updated.ID,
		AppointmentID: updated.AppointmentID,
		CaregiverID:   updated.CaregiverID,
		ActorID:       in.VerifiedBy,
	})
	return updated, nil
}

// Get returns one visit record.
func (s *Service) Get(ctx context.Context, visitID string) (*visit.Record, error) {
	return s.getRecord(ctx, visitID)
}

// Open returns the open record for an appointment, or nil.
func (s *Service) Open(ctx context.Context, appointmentID string) (*visit.Record, error) {
	rec, err := s.store.GetOpenByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodePersistenceFailed, "could not look up open visits", err)
	}
	return rec, nil
}

// ListByCaregiver returns a caregiver's records, newest first.
func (s *Service) ListByCaregiver(ctx context.Context, caregiverID string) ([]*visit.Record, error) {
	recs, err := s.store.ListByCaregiver(ctx, caregiverID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodePersistenceFailed, "could not list visits", err)
	}
	return recs, nil
}

func (s *Service) getRecord(ctx context.Context, visitID string) (*visit.Record, error) {
	rec, err := s.store.GetByID(ctx, visitID)
	if err != nil {
		if err == visit.ErrNotFound {
			return nil, dErrors.New(dErrors.CodeNotFound, "visit record not found")
		}
		return nil, dErrors.Wrap(dErrors.CodePersistenceFailed, "could not load visit record", err)
	}
	return rec, nil
}

// acquireLocation gets a fresh reading, validates proximity when an expected
// site is known, and resolves the address label. Address failures never
// block; location failures always do.
func (s *Service) acquireLocation(
	ctx context.Context,
	caregiverID string,
	expectedSite *geo.Coordinate,
	tier geo.Tier,
	phase string,
) (*visit.VerifiedLocation, *geo.ProximityResult, error) {
	reading, err := s.locations.Current(ctx, caregiverID, s.locOpts)
	if err != nil {
		s.metrics.LocationErrorsTotal.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		s.logger.WarnContext(ctx, "location acquisition failed",
			"caregiver_id", caregiverID,
			"phase", phase,
			"error", err.Error(),
		)
		return nil, nil, dErrors.Wrap(dErrors.CodeLocationUnavailable, "could not acquire device location", err)
	}

	var proximity *geo.ProximityResult
	if expectedSite != nil {
		res := geo.ValidateProximity(reading.Coordinate, *expectedSite, tier.ThresholdMeters())
		proximity = &res
	}

	address, err := s.resolver.ReverseGeocode(ctx, reading.Coordinate)
	if err != nil {
		// Resolvers absorb their own failures; belt and braces.
		address = geocode.FallbackLabel(reading.Coordinate)
	}
	return &visit.VerifiedLocation{Reading: reading, Address: address}, proximity, nil
}

// enforceProximity records a failed validation and, under the block policy,
// turns it into an error. Under warn the result still reaches the caller so
// the UI can flag it.
func (s *Service) enforceProximity(
	ctx context.Context,
	proximity *geo.ProximityResult,
	visitID, appointmentID, caregiverID, phase string,
) error {
	if proximity == nil || proximity.Valid {
		return nil
	}
	s.metrics.ProximityFailuresTotal.WithLabelValues(phase).Inc()
	s.emit(ctx, audit.Event{
		Action:        audit.ActionProximityWarning,
		VisitID:       visitID,
		AppointmentID: appointmentID,
		CaregiverID:   caregiverID,
		Detail:        proximity.Message,
	})
	if s.policy == ProximityBlock {
		return dErrors.New(dErrors.CodeProximityViolation, proximity.Message)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Emit(ctx, event)
}
