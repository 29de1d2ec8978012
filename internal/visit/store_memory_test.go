package visit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caretrack/internal/geo"
	"caretrack/internal/location"
)

func newOpenRecord(appointmentID, caregiverID string) *Record {
	now := time.Now()
	return &Record{
		AppointmentID: appointmentID,
		CaregiverID:   caregiverID,
		CheckInTime:   &now,
		CheckInLocation: &VerifiedLocation{
			Reading: location.Reading{
				Coordinate:     geo.Coordinate{Lat: 39.7817, Lon: -89.6501},
				AccuracyMeters: 8,
				CapturedAt:     now,
			},
			Address: "39.7817, -89.6501",
		},
		ProximityTier: geo.TierNormal,
		Status:        StatusInProgress,
	}
}

func TestCreateIfAbsentAssignsID(t *testing.T) {
	store := NewInMemoryStore()
	created, err := store.CreateIfAbsent(context.Background(), newOpenRecord("apt-1", "cg-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestCreateIfAbsentRejectsSecondOpenVisit(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	first, err := store.CreateIfAbsent(ctx, newOpenRecord("apt-1", "cg-1"))
	require.NoError(t, err)

	dup, err := store.CreateIfAbsent(ctx, newOpenRecord("apt-1", "cg-2"))
	require.ErrorIs(t, err, ErrOpenVisitExists)
	assert.Equal(t, first.ID, dup.ID)
}

func TestCreateIfAbsentAllowsNewVisitAfterCompletion(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	rec, err := store.CreateIfAbsent(ctx, newOpenRecord("apt-1", "cg-1"))
	require.NoError(t, err)

	out := time.Now()
	rec.CheckOutTime = &out
	rec.Status = StatusCompleted
	_, err = store.Update(ctx, rec)
	require.NoError(t, err)

	second, err := store.CreateIfAbsent(ctx, newOpenRecord("apt-1", "cg-1"))
	require.NoError(t, err)
	assert.NotEqual(t, rec.ID, second.ID)
}

func TestCreateIfAbsentUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	const goroutines = 32
	var wg sync.WaitGroup
	var successes atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.CreateIfAbsent(ctx, newOpenRecord("apt-race", "cg-1")); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), successes.Load())
}

func TestGetOpenByAppointment(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	open, err := store.GetOpenByAppointment(ctx, "apt-none")
	require.NoError(t, err)
	assert.Nil(t, open)

	created, err := store.CreateIfAbsent(ctx, newOpenRecord("apt-1", "cg-1"))
	require.NoError(t, err)

	open, err = store.GetOpenByAppointment(ctx, "apt-1")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, created.ID, open.ID)
}

func TestUpdateUnknownRecord(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Update(context.Background(), &Record{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByIDReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	created, err := store.CreateIfAbsent(ctx, newOpenRecord("apt-1", "cg-1"))
	require.NoError(t, err)

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	got.CaregiverNotes = "mutated copy"
	got.UpsertTask(TaskCompletion{TaskID: "t1", Name: "Bathing", Completed: true})

	fresh, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.CaregiverNotes)
	assert.Empty(t, fresh.TasksCompleted)
}

func TestListByCaregiverNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	first, err := store.CreateIfAbsent(ctx, newOpenRecord("apt-1", "cg-1"))
	require.NoError(t, err)
	out := time.Now()
	first.CheckOutTime = &out
	first.Status = StatusCompleted
	_, err = store.Update(ctx, first)
	require.NoError(t, err)

	_, err = store.CreateIfAbsent(ctx, newOpenRecord("apt-2", "cg-1"))
	require.NoError(t, err)
	_, err = store.CreateIfAbsent(ctx, newOpenRecord("apt-3", "cg-2"))
	require.NoError(t, err)

	got, err := store.ListByCaregiver(ctx, "cg-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, !got[0].CreatedAt.Before(got[1].CreatedAt))
}

func TestMissedRequiredTasks(t *testing.T) {
	rec := newOpenRecord("apt-1", "cg-1")
	rec.Tasks = []Task{
		{TaskID: "t1", Name: "Bathing", Required: true},
		{TaskID: "t2", Name: "Meal prep"},
		{TaskID: "t3", Name: "Medication reminder", Required: true},
	}

	assert.Len(t, rec.MissedRequiredTasks(), 2)

	rec.UpsertTask(TaskCompletion{TaskID: "t1", Name: "Bathing", Completed: true})
	// An entry recorded as not completed still counts as missed.
	rec.UpsertTask(TaskCompletion{TaskID: "t3", Name: "Medication reminder", Completed: false})

	missed := rec.MissedRequiredTasks()
	require.Len(t, missed, 1)
	assert.Equal(t, "t3", missed[0].TaskID)
}

func TestUpsertTaskLastWriteWins(t *testing.T) {
	rec := newOpenRecord("apt-1", "cg-1")
	rec.UpsertTask(TaskCompletion{TaskID: "t1", Name: "Bathing", Completed: false, Notes: "started"})
	rec.UpsertTask(TaskCompletion{TaskID: "t2", Name: "Meal prep", Completed: true})
	rec.UpsertTask(TaskCompletion{TaskID: "t1", Name: "Bathing", Completed: true, Notes: "done"})

	require.Len(t, rec.TasksCompleted, 2)
	assert.Equal(t, "t1", rec.TasksCompleted[0].TaskID)
	assert.True(t, rec.TasksCompleted[0].Completed)
	assert.Equal(t, "done", rec.TasksCompleted[0].Notes)
	assert.Equal(t, "t2", rec.TasksCompleted[1].TaskID)
}
