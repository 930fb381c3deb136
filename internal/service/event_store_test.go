package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formaplan/trainer-booking/internal/models"
	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
)

func tuesday(hour, minute int) time.Time {
	return time.Date(2026, time.October, 20, hour, minute, 0, 0, time.UTC)
}

func sampleEvent(id, trainerID string, start, end time.Time) models.CalendarEvent {
	return models.CalendarEvent{ID: id, TrainerID: trainerID, Start: start, End: end, Kind: "training"}
}

func TestEventStoreEventsInRange(t *testing.T) {
	repo := newMemoryCalendar(
		sampleEvent("e1", "a", tuesday(9, 0), tuesday(10, 0)),
		sampleEvent("e2", "a", tuesday(10, 0), tuesday(11, 0)),
		sampleEvent("e3", "b", tuesday(9, 0), tuesday(10, 0)),
	)
	store := NewEventStore(repo, NewMetricsService(), nil)

	events, err := store.EventsInRange(context.Background(), []string{"a"}, tuesday(9, 30), tuesday(10, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)

	events, err = store.EventsInRange(context.Background(), []string{"a", "b"}, tuesday(8, 0), tuesday(12, 0), "e2")
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = store.EventsInRange(context.Background(), nil, tuesday(8, 0), tuesday(12, 0))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 2, repo.listCalls)

	_, err = store.EventsInRange(context.Background(), []string{"a"}, tuesday(12, 0), tuesday(8, 0))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestEventStoreMapsStoreFailures(t *testing.T) {
	repo := newMemoryCalendar()
	repo.listErr = errors.New("connection reset")
	repo.createErr = errors.New("connection reset")
	repo.deleteErr = errors.New("connection reset")
	store := NewEventStore(repo, nil, nil)

	_, err := store.EventsInRange(context.Background(), []string{"a"}, tuesday(8, 0), tuesday(12, 0))
	assert.ErrorIs(t, err, appErrors.ErrPersistence)

	_, err = store.CreateEvent(context.Background(), sampleEvent("", "a", tuesday(9, 0), tuesday(10, 0)))
	assert.ErrorIs(t, err, appErrors.ErrPersistence)

	assert.ErrorIs(t, store.DeleteEvent(context.Background(), "e1"), appErrors.ErrPersistence)
}

func TestEventStoreCreateEventValidates(t *testing.T) {
	store := NewEventStore(newMemoryCalendar(), nil, nil)

	_, err := store.CreateEvent(context.Background(), sampleEvent("", "a", tuesday(10, 0), tuesday(10, 0)))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = store.CreateEvent(context.Background(), sampleEvent("", "", tuesday(9, 0), tuesday(10, 0)))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	created, err := store.CreateEvent(context.Background(), sampleEvent("", "a", tuesday(9, 0), tuesday(10, 0)))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestEventStoreUpdateEvent(t *testing.T) {
	repo := newMemoryCalendar(sampleEvent("e1", "a", tuesday(9, 0), tuesday(10, 0)))
	store := NewEventStore(repo, nil, nil)

	newEnd := tuesday(11, 0)
	location := "Room 4"
	updated, err := store.UpdateEvent(context.Background(), "e1", models.CalendarEventPatch{End: &newEnd, Location: &location})
	require.NoError(t, err)
	assert.Equal(t, newEnd, updated.End)
	assert.Equal(t, "Room 4", *updated.Location)
	assert.Equal(t, tuesday(9, 0), updated.Start)

	_, err = store.UpdateEvent(context.Background(), "missing", models.CalendarEventPatch{End: &newEnd})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	badEnd := tuesday(8, 0)
	_, err = store.UpdateEvent(context.Background(), "e1", models.CalendarEventPatch{End: &badEnd})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestEventStoreLeavesAppointmentsToBooking(t *testing.T) {
	taskID := "task-1"
	appointment := sampleEvent("appt-1", "a", tuesday(10, 0), tuesday(10, 30))
	appointment.Kind = models.EventKindQualificationAppointment
	appointment.TaskID = &taskID
	repo := newMemoryCalendar(appointment, sampleEvent("e1", "a", tuesday(9, 0), tuesday(10, 0)))
	store := NewEventStore(repo, nil, nil)

	fresh := appointment
	fresh.ID = ""
	_, err := store.CreateEvent(context.Background(), fresh)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	later := tuesday(16, 0)
	_, err = store.UpdateEvent(context.Background(), "appt-1", models.CalendarEventPatch{Start: &later})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	kind := models.EventKindQualificationAppointment
	_, err = store.UpdateEvent(context.Background(), "e1", models.CalendarEventPatch{Kind: &kind})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	unchanged, err := store.GetEvent(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "training", unchanged.Kind)
	assert.Equal(t, 2, repo.count())
}

func TestEventStoreDeleteIsIdempotent(t *testing.T) {
	repo := newMemoryCalendar(sampleEvent("e1", "a", tuesday(9, 0), tuesday(10, 0)))
	store := NewEventStore(repo, nil, nil)

	require.NoError(t, store.DeleteEvent(context.Background(), "e1"))
	require.NoError(t, store.DeleteEvent(context.Background(), "e1"))
	_, err := store.GetEvent(context.Background(), "e1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestEventStoreCreateIfFree(t *testing.T) {
	repo := newMemoryCalendar(sampleEvent("e1", "a", tuesday(9, 0), tuesday(10, 0)))
	store := NewEventStore(repo, nil, nil)

	overlapping := sampleEvent("", "a", tuesday(9, 30), tuesday(10, 0))
	created, err := store.CreateIfFree(context.Background(), nil, &overlapping, "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = store.CreateIfFree(context.Background(), nil, &overlapping, "e1")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestEventStoreActiveAppointmentForTask(t *testing.T) {
	taskID := "task-1"
	appt := sampleEvent("e1", "a", tuesday(9, 0), tuesday(9, 30))
	appt.Kind = models.EventKindQualificationAppointment
	appt.TaskID = &taskID
	store := NewEventStore(newMemoryCalendar(appt), nil, nil)

	found, err := store.ActiveAppointmentForTask(context.Background(), taskID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "e1", found.ID)

	none, err := store.ActiveAppointmentForTask(context.Background(), "task-2")
	require.NoError(t, err)
	assert.Nil(t, none)
}
