package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formaplan/trainer-booking/internal/models"
	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
)

type eventServiceMock struct {
	lastTrainers []string
	lastStart    time.Time
	lastEnd      time.Time
	created      models.CalendarEvent
	lastPatch    models.CalendarEventPatch
	updateErr    error
	deleted      []string
	listCalled   bool
}

func (m *eventServiceMock) EventsInRange(ctx context.Context, trainerIDs []string, start, end time.Time, excludeIDs ...string) ([]models.CalendarEvent, error) {
	m.listCalled = true
	m.lastTrainers = trainerIDs
	m.lastStart = start
	m.lastEnd = end
	return []models.CalendarEvent{}, nil
}

func (m *eventServiceMock) GetEvent(ctx context.Context, id string) (*models.CalendarEvent, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar event not found")
}

func (m *eventServiceMock) CreateEvent(ctx context.Context, event models.CalendarEvent) (*models.CalendarEvent, error) {
	m.created = event
	event.ID = "evt-1"
	return &event, nil
}

func (m *eventServiceMock) UpdateEvent(ctx context.Context, id string, patch models.CalendarEventPatch) (*models.CalendarEvent, error) {
	m.lastPatch = patch
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &models.CalendarEvent{ID: id}, nil
}

func (m *eventServiceMock) DeleteEvent(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func newJSONContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestEventHandlerList(t *testing.T) {
	mockSvc := &eventServiceMock{}
	handler := NewEventHandler(mockSvc)

	c, w := newGetContext("/events?trainer_ids=a,%20b,,&start=2026-10-20T00:00:00Z&end=2026-10-21T00:00:00Z")
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"a", "b"}, mockSvc.lastTrainers)
	assert.Equal(t, time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC), mockSvc.lastStart.UTC())
	assert.Equal(t, time.Date(2026, time.October, 21, 0, 0, 0, 0, time.UTC), mockSvc.lastEnd.UTC())
}

func TestEventHandlerListRejectsBadRange(t *testing.T) {
	mockSvc := &eventServiceMock{}
	handler := NewEventHandler(mockSvc)

	c, w := newGetContext("/events?trainer_ids=a&start=yesterday&end=2026-10-21T00:00:00Z")
	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.listCalled)
}

func TestEventHandlerGetNotFound(t *testing.T) {
	handler := NewEventHandler(&eventServiceMock{})

	c, w := newGetContext("/events/missing")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventHandlerCreate(t *testing.T) {
	mockSvc := &eventServiceMock{}
	handler := NewEventHandler(mockSvc)

	c, w := newJSONContext(http.MethodPost, "/events",
		`{"trainerId":"a","start":"2026-10-20T09:00:00Z","end":"2026-10-20T18:00:00Z","kind":"training"}`)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "a", mockSvc.created.TrainerID)
	assert.Equal(t, "training", mockSvc.created.Kind)
	assert.Contains(t, w.Body.String(), `"id":"evt-1"`)
}

func TestEventHandlerUpdate(t *testing.T) {
	mockSvc := &eventServiceMock{}
	handler := NewEventHandler(mockSvc)

	c, w := newJSONContext(http.MethodPatch, "/events/evt-1", `{"location":"Room 4"}`)
	c.Params = gin.Params{{Key: "id", Value: "evt-1"}}
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastPatch.Location)
	assert.Equal(t, "Room 4", *mockSvc.lastPatch.Location)
	assert.Nil(t, mockSvc.lastPatch.Start)

	mockSvc.updateErr = appErrors.Clone(appErrors.ErrNotFound, "")
	c, w = newJSONContext(http.MethodPatch, "/events/missing", `{}`)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Update(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newJSONContext(http.MethodPatch, "/events/evt-1", `{"start":"soon"}`)
	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerDelete(t *testing.T) {
	mockSvc := &eventServiceMock{}
	handler := NewEventHandler(mockSvc)

	c, w := newJSONContext(http.MethodDelete, "/events/evt-1", "")
	c.Params = gin.Params{{Key: "id", Value: "evt-1"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"evt-1"}, mockSvc.deleted)
}
