package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/formaplan/trainer-booking/internal/dto"
	"github.com/formaplan/trainer-booking/internal/models"
	"github.com/formaplan/trainer-booking/internal/scheduling"
	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type bookingEventStore interface {
	GetEvent(ctx context.Context, id string) (*models.CalendarEvent, error)
	ActiveAppointmentForTask(ctx context.Context, taskID string) (*models.CalendarEvent, error)
	EventsInRange(ctx context.Context, trainerIDs []string, start, end time.Time, excludeIDs ...string) ([]models.CalendarEvent, error)
	CreateIfFree(ctx context.Context, exec sqlx.ExtContext, event *models.CalendarEvent, excludeID string) (bool, error)
	LockTrainer(ctx context.Context, exec sqlx.ExtContext, trainerID string) error
	DeleteEvent(ctx context.Context, id string) error
	DeleteWith(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type slotFinder interface {
	SlotsForDate(ctx context.Context, req dto.AvailabilityRequest, date string, excludeEventIDs ...string) (dto.DaySlots, error)
	Location() *time.Location
}

type inflightGuard interface {
	Acquire(ctx context.Context, taskID string) (func(), error)
}

type appointmentNotifier interface {
	AppointmentChanged(ctx context.Context, change AppointmentChange)
}

// BookingService books, moves and cancels the qualification appointment of a task.
type BookingService struct {
	events    bookingEventStore
	slots     slotFinder
	guard     inflightGuard
	notifier  appointmentNotifier
	tx        txProvider
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewBookingService wires the coordinator. tx, guard and notifier may be nil.
func NewBookingService(
	events bookingEventStore,
	slots slotFinder,
	guard inflightGuard,
	notifier appointmentNotifier,
	tx txProvider,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		events:    events,
		slots:     slots,
		guard:     guard,
		notifier:  notifier,
		tx:        tx,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

// BookAppointment books the requested slot for a task that has no appointment yet.
func (s *BookingService) BookAppointment(ctx context.Context, req dto.BookAppointmentRequest) (*models.CalendarEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordBooking(OperationBook, BookingOutcomeRejected)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking request")
	}
	release, err := s.acquire(ctx, req.TaskID)
	if err != nil {
		s.metrics.RecordBooking(OperationBook, BookingOutcomeRejected)
		return nil, err
	}
	defer release()

	existing, err := s.events.ActiveAppointmentForTask(ctx, req.TaskID)
	if err != nil {
		s.metrics.RecordBooking(OperationBook, BookingOutcomeFailed)
		return nil, err
	}
	if existing != nil {
		s.metrics.RecordBooking(OperationBook, BookingOutcomeRejected)
		return nil, appErrors.Clone(appErrors.ErrConflict, "task already has an appointment, modify it instead")
	}

	event, err := s.place(ctx, OperationBook, req, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment booked",
		zap.String("task_id", req.TaskID),
		zap.String("event_id", event.ID),
		zap.String("trainer_id", event.TrainerID),
		zap.Time("start", event.Start),
	)
	s.notify(ctx, OperationBook, req, event, "")
	return event, nil
}

// ModifyAppointment moves the task's appointment to another slot. The previous
// event is ignored by the availability and conflict checks.
func (s *BookingService) ModifyAppointment(ctx context.Context, req dto.ModifyAppointmentRequest) (*models.CalendarEvent, error) {
	if err := s.validator.Struct(req.BookAppointmentRequest); err != nil {
		s.metrics.RecordBooking(OperationModify, BookingOutcomeRejected)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking request")
	}
	release, err := s.acquire(ctx, req.TaskID)
	if err != nil {
		s.metrics.RecordBooking(OperationModify, BookingOutcomeRejected)
		return nil, err
	}
	defer release()

	previous, err := s.previousAppointment(ctx, req)
	if err != nil {
		s.metrics.RecordBooking(OperationModify, BookingOutcomeRejected)
		return nil, err
	}

	event, err := s.place(ctx, OperationModify, req.BookAppointmentRequest, previous)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment modified",
		zap.String("task_id", req.TaskID),
		zap.String("previous_event_id", previous.ID),
		zap.String("event_id", event.ID),
		zap.String("trainer_id", event.TrainerID),
		zap.Time("start", event.Start),
	)
	s.notify(ctx, OperationModify, req.BookAppointmentRequest, event, previous.ID)
	return event, nil
}

// GetAppointment reports the task's appointment state.
func (s *BookingService) GetAppointment(ctx context.Context, taskID string) (models.AppointmentState, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return models.AppointmentState{}, appErrors.Clone(appErrors.ErrValidation, "task id is required")
	}
	event, err := s.events.ActiveAppointmentForTask(ctx, taskID)
	if err != nil {
		return models.AppointmentState{}, err
	}
	if event == nil {
		return models.NoAppointment(taskID), nil
	}
	return models.BookedAppointment(taskID, *event), nil
}

// CancelAppointment deletes the task's appointment. Cancelling a task without
// one succeeds.
func (s *BookingService) CancelAppointment(ctx context.Context, taskID string) (models.AppointmentState, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return models.AppointmentState{}, appErrors.Clone(appErrors.ErrValidation, "task id is required")
	}
	release, err := s.acquire(ctx, taskID)
	if err != nil {
		return models.AppointmentState{}, err
	}
	defer release()

	event, err := s.events.ActiveAppointmentForTask(ctx, taskID)
	if err != nil {
		return models.AppointmentState{}, err
	}
	if event == nil {
		return models.NoAppointment(taskID), nil
	}
	if err := s.events.DeleteEvent(ctx, event.ID); err != nil {
		s.metrics.RecordBooking(OperationCancel, BookingOutcomeFailed)
		return models.AppointmentState{}, err
	}
	s.metrics.RecordBooking(OperationCancel, BookingOutcomeCancelled)
	s.logger.Info("appointment cancelled", zap.String("task_id", taskID), zap.String("event_id", event.ID))

	projectID := ""
	if event.ProjectID != nil {
		projectID = *event.ProjectID
	}
	if s.notifier != nil {
		s.notifier.AppointmentChanged(ctx, AppointmentChange{
			Operation:       OperationCancel,
			TaskID:          taskID,
			ProjectID:       projectID,
			Event:           event,
			PreviousEventID: event.ID,
			At:              time.Now().UTC(),
		})
	}
	return models.NoAppointment(taskID), nil
}

func (s *BookingService) previousAppointment(ctx context.Context, req dto.ModifyAppointmentRequest) (*models.CalendarEvent, error) {
	if req.ExistingEventID == "" {
		previous, err := s.events.ActiveAppointmentForTask(ctx, req.TaskID)
		if err != nil {
			return nil, err
		}
		if previous == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task has no appointment to modify")
		}
		return previous, nil
	}
	previous, err := s.events.GetEvent(ctx, req.ExistingEventID)
	if err != nil {
		return nil, err
	}
	if previous.Kind != models.EventKindQualificationAppointment {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event is not an appointment")
	}
	if previous.TaskID == nil || *previous.TaskID != req.TaskID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event does not belong to this task")
	}
	return previous, nil
}

// place recomputes the slot, re-reads the chosen trainer's calendar and writes
// the new event, replacing previous when set.
func (s *BookingService) place(ctx context.Context, operation string, req dto.BookAppointmentRequest, previous *models.CalendarEvent) (*models.CalendarEvent, error) {
	sessionDays := req.SessionLengthDays
	if sessionDays < 1 {
		sessionDays = 1
	}
	day, err := scheduling.ParseDate(req.Date)
	if err != nil {
		s.metrics.RecordBooking(operation, BookingOutcomeRejected)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must use YYYY-MM-DD")
	}
	startClock, err := scheduling.ParseClock(req.StartTime)
	if err != nil {
		s.metrics.RecordBooking(operation, BookingOutcomeRejected)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "start time must use HH:MM")
	}

	var exclude []string
	excludeID := ""
	if previous != nil {
		excludeID = previous.ID
		exclude = []string{excludeID}
	}

	daySlots, err := s.slots.SlotsForDate(ctx, dto.AvailabilityRequest{
		SoftwareID:        req.SoftwareID,
		Year:              day.Year,
		Month:             int(day.Month),
		SessionLengthDays: sessionDays,
		TrainerID:         req.TrainerID,
	}, req.Date, exclude...)
	if err != nil {
		s.metrics.RecordBooking(operation, BookingOutcomeFailed)
		return nil, err
	}

	slot, ok := findSlot(daySlots.Slots, startClock.String())
	if !ok || len(slot.AvailableTrainers) == 0 || (req.TrainerID != "" && !slot.HasTrainer(req.TrainerID)) {
		s.metrics.RecordBooking(operation, BookingOutcomeUnavailable)
		return nil, appErrors.Clone(appErrors.ErrSlotNoLongerAvailable, "")
	}
	trainerID := req.TrainerID
	if trainerID == "" {
		trainerID = slot.AvailableTrainers[0].ID
	}

	endClock, err := scheduling.ParseClock(slot.EndTime)
	if err != nil {
		s.metrics.RecordBooking(operation, BookingOutcomeFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid slot end time")
	}
	loc := s.slots.Location()
	start, end := day.At(startClock, loc), day.At(endClock, loc)

	conflicts, err := s.events.EventsInRange(ctx, []string{trainerID}, start, end, exclude...)
	if err != nil {
		s.metrics.RecordBooking(operation, BookingOutcomeFailed)
		return nil, err
	}
	if len(conflicts) > 0 {
		s.logger.Info("slot taken between availability check and booking",
			zap.String("task_id", req.TaskID),
			zap.String("trainer_id", trainerID),
			zap.Time("start", start),
		)
		s.metrics.RecordBooking(operation, BookingOutcomeUnavailable)
		return nil, appErrors.Clone(appErrors.ErrSlotNoLongerAvailable, "")
	}

	event := &models.CalendarEvent{
		TrainerID:  trainerID,
		Start:      start,
		End:        end,
		TaskID:     stringPtr(req.TaskID),
		ProjectID:  optionalString(req.ProjectID),
		SoftwareID: stringPtr(req.SoftwareID),
		Location:   trimmedPtr(req.Location),
		Kind:       models.EventKindQualificationAppointment,
	}

	if s.tx != nil {
		err = s.writeInTx(ctx, event, previous)
	} else {
		err = s.writeSequential(ctx, event, previous)
	}
	if err != nil {
		if errors.Is(err, appErrors.ErrSlotNoLongerAvailable) {
			s.metrics.RecordBooking(operation, BookingOutcomeUnavailable)
		} else {
			s.metrics.RecordBooking(operation, BookingOutcomeFailed)
		}
		return nil, err
	}

	outcome := BookingOutcomeBooked
	if operation == OperationModify {
		outcome = BookingOutcomeModified
	}
	s.metrics.RecordBooking(operation, outcome)
	return event, nil
}

// writeInTx deletes previous and inserts event atomically.
func (s *BookingService) writeInTx(ctx context.Context, event *models.CalendarEvent, previous *models.CalendarEvent) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Persistence(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.events.LockTrainer(ctx, tx, event.TrainerID); err != nil {
		return err
	}
	excludeID := ""
	if previous != nil {
		excludeID = previous.ID
		if err = s.events.DeleteWith(ctx, tx, previous.ID); err != nil {
			return err
		}
	}
	created, err := s.events.CreateIfFree(ctx, tx, event, excludeID)
	if err != nil {
		return err
	}
	if !created {
		err = appErrors.Clone(appErrors.ErrSlotNoLongerAvailable, "")
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Persistence(err, "failed to commit appointment")
	}
	return nil
}

// writeSequential creates the new event first so a failed write never leaves
// the task without an appointment; the previous one is removed afterwards.
func (s *BookingService) writeSequential(ctx context.Context, event *models.CalendarEvent, previous *models.CalendarEvent) error {
	excludeID := ""
	if previous != nil {
		excludeID = previous.ID
	}
	created, err := s.events.CreateIfFree(ctx, nil, event, excludeID)
	if err != nil {
		return err
	}
	if !created {
		return appErrors.Clone(appErrors.ErrSlotNoLongerAvailable, "")
	}
	if previous != nil {
		if err := s.events.DeleteEvent(ctx, previous.ID); err != nil {
			s.logger.Error("previous appointment could not be removed",
				zap.String("event_id", previous.ID),
				zap.String("replacement_id", event.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *BookingService) acquire(ctx context.Context, taskID string) (func(), error) {
	if s.guard == nil {
		return func() {}, nil
	}
	return s.guard.Acquire(ctx, taskID)
}

func (s *BookingService) notify(ctx context.Context, operation string, req dto.BookAppointmentRequest, event *models.CalendarEvent, previousID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.AppointmentChanged(ctx, AppointmentChange{
		Operation:       operation,
		TaskID:          req.TaskID,
		ProjectID:       req.ProjectID,
		Event:           event,
		PreviousEventID: previousID,
		At:              time.Now().UTC(),
	})
}

func findSlot(slots []dto.Slot, start string) (dto.Slot, bool) {
	for _, slot := range slots {
		if slot.StartTime == start {
			return slot, true
		}
	}
	return dto.Slot{}, false
}

func stringPtr(v string) *string {
	return &v
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	return optionalString(*v)
}
