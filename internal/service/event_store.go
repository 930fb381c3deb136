package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/formaplan/trainer-booking/internal/models"
	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
)

type calendarEventRepository interface {
	ListInRange(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, error)
	GetByID(ctx context.Context, id string) (*models.CalendarEvent, error)
	FindActiveByTask(ctx context.Context, taskID string) (*models.CalendarEvent, error)
	Create(ctx context.Context, exec sqlx.ExtContext, event *models.CalendarEvent) error
	CreateIfFree(ctx context.Context, exec sqlx.ExtContext, event *models.CalendarEvent, excludeID string) (bool, error)
	LockTrainer(ctx context.Context, exec sqlx.ExtContext, trainerID string) error
	Update(ctx context.Context, event *models.CalendarEvent) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

// EventStore is the calendar gateway used by availability and booking. It maps
// store failures onto the typed error taxonomy.
type EventStore struct {
	repo    calendarEventRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEventStore constructs an EventStore.
func NewEventStore(repo calendarEventRepository, metrics *MetricsService, logger *zap.Logger) *EventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventStore{repo: repo, metrics: metrics, logger: logger}
}

// EventsInRange returns events of the trainers intersecting [start, end).
// Events whose id is in excludeIDs are left out.
func (s *EventStore) EventsInRange(ctx context.Context, trainerIDs []string, start, end time.Time, excludeIDs ...string) ([]models.CalendarEvent, error) {
	if len(trainerIDs) == 0 {
		return []models.CalendarEvent{}, nil
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "range start must be before range end")
	}
	defer s.observe("events_in_range", time.Now())

	events, err := s.repo.ListInRange(ctx, models.CalendarFilter{TrainerIDs: trainerIDs, Start: start, End: end, ExcludeIDs: excludeIDs})
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load calendar events")
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}
	return events, nil
}

// GetEvent returns one event.
func (s *EventStore) GetEvent(ctx context.Context, id string) (*models.CalendarEvent, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar event not found")
		}
		return nil, appErrors.Persistence(err, "failed to load calendar event")
	}
	return event, nil
}

// ActiveAppointmentForTask returns the task's appointment event, or nil when it has none.
func (s *EventStore) ActiveAppointmentForTask(ctx context.Context, taskID string) (*models.CalendarEvent, error) {
	defer s.observe("appointment_by_task", time.Now())
	event, err := s.repo.FindActiveByTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Persistence(err, "failed to load task appointment")
	}
	return event, nil
}

// CreateEvent validates and inserts an event. Appointment events are written
// only by the booking coordinator and are rejected here.
func (s *EventStore) CreateEvent(ctx context.Context, event models.CalendarEvent) (*models.CalendarEvent, error) {
	if err := validateEvent(&event); err != nil {
		return nil, err
	}
	if event.Kind == models.EventKindQualificationAppointment {
		return nil, appointmentManaged()
	}
	defer s.observe("create_event", time.Now())
	if err := s.repo.Create(ctx, nil, &event); err != nil {
		return nil, appErrors.Persistence(err, "failed to create calendar event")
	}
	return &event, nil
}

// UpdateEvent applies a partial update. Appointment events cannot be edited
// here, and no event can be turned into one.
func (s *EventStore) UpdateEvent(ctx context.Context, id string, patch models.CalendarEventPatch) (*models.CalendarEvent, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.Kind == models.EventKindQualificationAppointment {
		return nil, appointmentManaged()
	}
	if patch.Kind != nil && strings.TrimSpace(*patch.Kind) == models.EventKindQualificationAppointment {
		return nil, appointmentManaged()
	}
	patch.Apply(event)
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	defer s.observe("update_event", time.Now())
	if err := s.repo.Update(ctx, event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar event not found")
		}
		return nil, appErrors.Persistence(err, "failed to update calendar event")
	}
	return event, nil
}

// DeleteEvent removes an event. Deleting an absent id succeeds.
func (s *EventStore) DeleteEvent(ctx context.Context, id string) error {
	return s.DeleteWith(ctx, nil, id)
}

// DeleteWith deletes through exec, typically an open transaction.
func (s *EventStore) DeleteWith(ctx context.Context, exec sqlx.ExtContext, id string) error {
	defer s.observe("delete_event", time.Now())
	if err := s.repo.Delete(ctx, exec, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Persistence(err, "failed to delete calendar event")
	}
	return nil
}

// CreateIfFree inserts the event unless another event of its trainer overlaps,
// ignoring excludeID. It reports whether the event was written.
func (s *EventStore) CreateIfFree(ctx context.Context, exec sqlx.ExtContext, event *models.CalendarEvent, excludeID string) (bool, error) {
	if err := validateEvent(event); err != nil {
		return false, err
	}
	defer s.observe("create_event_if_free", time.Now())
	created, err := s.repo.CreateIfFree(ctx, exec, event, excludeID)
	if err != nil {
		return false, appErrors.Persistence(err, "failed to create calendar event")
	}
	return created, nil
}

// LockTrainer serialises bookings on one trainer within the transaction behind exec.
func (s *EventStore) LockTrainer(ctx context.Context, exec sqlx.ExtContext, trainerID string) error {
	if err := s.repo.LockTrainer(ctx, exec, trainerID); err != nil {
		return appErrors.Persistence(err, "failed to lock trainer calendar")
	}
	return nil
}

func (s *EventStore) observe(label string, start time.Time) {
	s.metrics.ObserveDBQuery(label, time.Since(start))
}

func appointmentManaged() error {
	return appErrors.Clone(appErrors.ErrValidation, "qualification appointments are managed through the task appointment endpoints")
}

func validateEvent(event *models.CalendarEvent) error {
	event.TrainerID = strings.TrimSpace(event.TrainerID)
	if event.TrainerID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "trainer_id is required")
	}
	if event.Start.IsZero() || event.End.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "start and end are required")
	}
	if !event.Start.Before(event.End) {
		return appErrors.Clone(appErrors.ErrValidation, "event start must be before its end")
	}
	if strings.TrimSpace(event.Kind) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "kind is required")
	}
	return nil
}
