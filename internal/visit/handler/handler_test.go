package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"caretrack/internal/geo"
	"caretrack/internal/location"
	"caretrack/internal/platform/metrics"
	"caretrack/internal/transport/http/shared"
	"caretrack/internal/visit"
	"caretrack/internal/visit/handler/mocks"
	"caretrack/internal/visit/service"
	dErrors "caretrack/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/visit-mocks.go -package=mocks Service
type VisitHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *VisitHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestVisitHandlerSuite(t *testing.T) {
	suite.Run(t, new(VisitHandlerSuite))
}

func newTestHandler(t *testing.T) (*chi.Mux, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := New(mockService, logger, metrics.New(prometheus.NewRegistry()), geo.TierNormal)
	r := chi.NewRouter()
	handler.Register(r)
	return r, mockService
}

func sampleRecord(status visit.Status) *visit.Record {
	checkIn := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &visit.Record{
		ID:            "visit_abc",
		AppointmentID: "appt_1",
		CaregiverID:   "cg_1",
		Status:        status,
		CheckInTime:   &checkIn,
		CheckInLocation: &visit.VerifiedLocation{
			Reading: location.Reading{
				Coordinate: geo.Coordinate{Lat: 39.7817, Lon: -89.6501},
				CapturedAt: checkIn,
			},
			Address: "123 Main St, Springfield",
		},
		ProximityTier: geo.TierNormal,
	}
}

func (s *VisitHandlerSuite) TestHandleCheckIn() {
	router, mockService := newTestHandler(s.T())
	distance := 48.2
	mockService.EXPECT().CheckIn(gomock.Any(), service.CheckInInput{
		AppointmentID: "appt_1",
		CaregiverID:   "cg_1",
		ExpectedSite:  &geo.Coordinate{Lat: 39.7817, Lon: -89.6501},
		ProximityTier: geo.TierNormal,
		Tasks:         []visit.Task{{TaskID: "t1", Name: "Medication reminder", Required: true}},
	}).Return(&service.CheckInResult{
		Visit: sampleRecord(visit.StatusInProgress),
		Proximity: &geo.ProximityResult{
			Valid:           true,
			DistanceMeters:  &distance,
			ThresholdMeters: 100,
		},
	}, nil)

	lat, lon := 39.7817, -89.6501
	body, err := json.Marshal(CheckInRequest{
		AppointmentID: "appt_1",
		CaregiverID:   "cg_1",
		ExpectedSite:  &SiteRequest{Latitude: &lat, Longitude: &lon},
		ProximityTier: "normal",
		Tasks:         []PlannedTaskRequest{{TaskID: "t1", Name: "Medication reminder", Required: true}},
	})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evv/visits/check-in", bytes.NewReader(body)))

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	visitBody := resp["visit"].(map[string]any)
	assert.Equal(s.T(), "visit_abc", visitBody["id"])
	assert.Equal(s.T(), "in_progress", visitBody["status"])
	proximity := resp["proximity"].(map[string]any)
	assert.Equal(s.T(), true, proximity["is_valid"])
	assert.InDelta(s.T(), 48.2, proximity["distance_meters"].(float64), 0.01)
}

func (s *VisitHandlerSuite) TestHandleCheckInInvalidBody() {
	router, _ := newTestHandler(s.T())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evv/visits/check-in", bytes.NewReader([]byte("{not json"))))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var resp shared.ErrorBody
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), string(dErrors.CodeBadRequest), resp.Error)
}

func (s *VisitHandlerSuite) TestHandleCheckInHalfSpecifiedSite() {
	router, _ := newTestHandler(s.T())

	lat := 39.7817
	body, err := json.Marshal(CheckInRequest{
		AppointmentID: "appt_1",
		CaregiverID:   "cg_1",
		ExpectedSite:  &SiteRequest{Latitude: &lat},
	})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evv/visits/check-in", bytes.NewReader(body)))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *VisitHandlerSuite) TestHandleCheckInConflict() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().CheckIn(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeAlreadyCheckedIn, "an open visit already exists for this appointment"))

	body, err := json.Marshal(CheckInRequest{AppointmentID: "appt_1", CaregiverID: "cg_1"})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evv/visits/check-in", bytes.NewReader(body)))

	assert.Equal(s.T(), http.StatusConflict, w.Code)
	var resp shared.ErrorBody
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), string(dErrors.CodeAlreadyCheckedIn), resp.Error)
}

func (s *VisitHandlerSuite) TestHandleCompleteTask() {
	router, mockService := newTestHandler(s.T())
	rec := sampleRecord(visit.StatusInProgress)
	rec.TasksCompleted = []visit.TaskCompletion{{
		TaskID:      "task_1",
		Name:        "Medication reminder",
		Completed:   true,
		CompletedAt: time.Date(2026, 3, 14, 10, 15, 0, 0, time.UTC),
	}}
	mockService.EXPECT().CompleteTask(gomock.Any(), "visit_abc", visit.TaskCompletion{
		TaskID:    "task_1",
		Name:      "Medication reminder",
		Completed: true,
	}).Return(rec, nil)

	body, err := json.Marshal(TaskRequest{TaskID: "task_1", Name: "Medication reminder", Completed: true})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evv/visits/visit_abc/tasks", bytes.NewReader(body)))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	tasks := resp["visit"].(map[string]any)["tasks_completed"].([]any)
	require.Len(s.T(), tasks, 1)
	assert.Equal(s.T(), "task_1", tasks[0].(map[string]any)["task_id"])
	assert.Equal(s.T(), true, tasks[0].(map[string]any)["completed"])
}

func (s *VisitHandlerSuite) TestHandleCompleteTaskWrongState() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().CompleteTask(gomock.Any(), "visit_abc", gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeVisitNotInProgress, "visit is not in progress"))

	body, err := json.Marshal(TaskRequest{TaskID: "task_1", Completed: true})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evv/visits/visit_abc/tasks", bytes.NewReader(body)))

	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *VisitHandlerSuite) TestHandleCheckOut() {
	router, mockService := newTestHandler(s.T())
	rec := sampleRecord(visit.StatusCompleted)
	distance := 12.5
	mockService.EXPECT().CheckOut(gomock.Any(), service.CheckOutInput{
		VisitID: "visit_abc",
		Tasks: []visit.TaskCompletion{
			{TaskID: "task_1", Name: "Meal prep", Completed: true, Notes: "ate well"},
		},
		CaregiverNotes: "all done",
	}).Return(&service.CheckOutResult{
		Visit: rec,
		Proximity: &geo.ProximityResult{
			Valid:           true,
			DistanceMeters:  &distance,
			ThresholdMeters: 100,
		},
	}, nil)

	body, err := json.Marshal(CheckOutRequest{
		Tasks:          []TaskRequest{{TaskID: "task_1", Name: "Meal prep", Completed: true, Notes: "ate well"}},
		CaregiverNotes: "all done",
	})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evv/visits/visit_abc/check-out", bytes.NewReader(body)))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "completed", resp["visit"].(map[string]any)["status"])
	assert.Equal(s.T(), true, resp["proximity"].(map[string]any)["is_valid"])
}

func (s *VisitHandlerSuite) TestHandleCheckOutLocationUnavailable() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().CheckOut(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeLocationUnavailable, "could not acquire a location fix"))

	body, err := json.Marshal(CheckOutRequest{})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evv/visits/visit_abc/check-out", bytes.NewReader(body)))

	assert.Equal(s.T(), http.StatusServiceUnavailable, w.Code)
}

func (s *VisitHandlerSuite) TestHandleVerify() {
	router, mockService := newTestHandler(s.T())
	rec := sampleRecord(visit.StatusCompleted)
	verifiedAt := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	rec.Verification = &visit.SupervisorVerification{
		VerifiedBy: "sup_1",
		Verified:   true,
		VerifiedAt: verifiedAt,
		Notes:      "looks good",
	}
	mockService.EXPECT().SupervisorVerify(gomock.Any(), "visit_abc", service.VerifyInput{
		VerifiedBy: "sup_1",
		Verified:   true,
		Notes:      "looks good",
	}).Return(rec, nil)

	body, err := json.Marshal(VerifyRequest{VerifiedBy: "sup_1", Verified: true, Notes: "looks good"})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evv/visits/visit_abc/verify", bytes.NewReader(body)))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	verification := resp["visit"].(map[string]any)["supervisor_verification"].(map[string]any)
	assert.Equal(s.T(), "sup_1", verification["verified_by"])
	assert.Equal(s.T(), true, verification["verified"])
}

func (s *VisitHandlerSuite) TestHandleVerifyNotCompleted() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().SupervisorVerify(gomock.Any(), "visit_abc", gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeVisitNotCompleted, "visit has not been completed"))

	body, err := json.Marshal(VerifyRequest{VerifiedBy: "sup_1", Verified: true})
	require.NoError(s.T(), err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evv/visits/visit_abc/verify", bytes.NewReader(body)))

	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *VisitHandlerSuite) TestHandleGet() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Get(gomock.Any(), "visit_abc").Return(sampleRecord(visit.StatusInProgress), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/evv/visits/visit_abc", nil))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "visit_abc", resp["visit"].(map[string]any)["id"])
}

func (s *VisitHandlerSuite) TestHandleGetNotFound() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Get(gomock.Any(), "missing").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "visit not found"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/evv/visits/missing", nil))

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *VisitHandlerSuite) TestHandleOpen() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Open(gomock.Any(), "appt_1").Return(sampleRecord(visit.StatusInProgress), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/evv/visits/open?appointment_id=appt_1", nil))

	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *VisitHandlerSuite) TestHandleOpenNone() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().Open(gomock.Any(), "appt_1").Return(nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/evv/visits/open?appointment_id=appt_1", nil))

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *VisitHandlerSuite) TestHandleOpenMissingParam() {
	router, _ := newTestHandler(s.T())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/evv/visits/open", nil))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *VisitHandlerSuite) TestHandleList() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().ListByCaregiver(gomock.Any(), "cg_1").
		Return([]*visit.Record{sampleRecord(visit.StatusCompleted)}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/evv/visits?caregiver_id=cg_1", nil))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(s.T(), resp["visits"].([]any), 1)
}

func (s *VisitHandlerSuite) TestHandleListEmpty() {
	router, mockService := newTestHandler(s.T())
	mockService.EXPECT().ListByCaregiver(gomock.Any(), "cg_1").Return(nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/evv/visits?caregiver_id=cg_1", nil))

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(s.T(), resp["visits"].([]any), 0)
}
