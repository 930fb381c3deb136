package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/formaplan/trainer-booking/internal/dto"
	"github.com/formaplan/trainer-booking/internal/models"
	"github.com/formaplan/trainer-booking/internal/scheduling"
	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
)

type trainerResolver interface {
	TrainersFor(ctx context.Context, softwareID string) ([]models.Trainer, error)
}

type eventRangeReader interface {
	EventsInRange(ctx context.Context, trainerIDs []string, start, end time.Time, excludeIDs ...string) ([]models.CalendarEvent, error)
}

// AvailabilityService computes bookable slots from trainers, events and working hours.
// Results are recomputed on every call.
type AvailabilityService struct {
	trainers  trainerResolver
	events    eventRangeReader
	calc      *scheduling.Calculator
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(trainers trainerResolver, events eventRangeReader, calc *scheduling.Calculator, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		trainers:  trainers,
		events:    events,
		calc:      calc,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Location is the time zone slots are expressed in.
func (s *AvailabilityService) Location() *time.Location {
	return s.calc.Template().Location
}

// ComputeMonthAvailability returns the month aggregate for the request.
func (s *AvailabilityService) ComputeMonthAvailability(ctx context.Context, req dto.AvailabilityRequest) (dto.MonthAvailability, error) {
	return s.compute(ctx, req)
}

// SlotsForDate returns the slots of one day ("YYYY-MM-DD"). Events listed in
// excludeEventIDs are treated as absent, which lets a rebooking reuse its own slot.
func (s *AvailabilityService) SlotsForDate(ctx context.Context, req dto.AvailabilityRequest, date string, excludeEventIDs ...string) (dto.DaySlots, error) {
	day, err := scheduling.ParseDate(date)
	if err != nil {
		return dto.DaySlots{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must use YYYY-MM-DD")
	}
	req.Year = day.Year
	req.Month = int(day.Month)

	av, err := s.compute(ctx, req, excludeEventIDs...)
	if err != nil {
		return dto.DaySlots{}, err
	}
	slots := av.SlotsByDate[day.Key()]
	if slots == nil {
		slots = []dto.Slot{}
	}
	return dto.DaySlots{Date: day.Key(), Slots: slots}, nil
}

// MonthGrid returns the month laid out as calendar weeks.
func (s *AvailabilityService) MonthGrid(ctx context.Context, req dto.AvailabilityRequest) (dto.MonthGrid, error) {
	av, err := s.compute(ctx, req)
	if err != nil {
		return dto.MonthGrid{}, err
	}
	today := scheduling.DateOf(s.now(), s.Location())
	return scheduling.BuildMonthGrid(av, today), nil
}

func (s *AvailabilityService) compute(ctx context.Context, req dto.AvailabilityRequest, excludeEventIDs ...string) (dto.MonthAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MonthAvailability{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability request")
	}

	trainers, err := s.trainers.TrainersFor(ctx, req.SoftwareID)
	if err != nil {
		return dto.MonthAvailability{}, err
	}

	input := scheduling.Input{
		SoftwareID:        req.SoftwareID,
		Year:              req.Year,
		Month:             time.Month(req.Month),
		SessionLengthDays: req.SessionLengthDays,
		Trainers:          trainers,
		Now:               s.now(),
	}
	if len(trainers) > 0 {
		ids := make([]string, 0, len(trainers))
		for _, t := range trainers {
			ids = append(ids, t.ID)
		}
		start, end := s.calc.Range(req.Year, input.Month, req.SessionLengthDays)
		events, err := s.events.EventsInRange(ctx, ids, start, end, excludeEventIDs...)
		if err != nil {
			return dto.MonthAvailability{}, err
		}
		input.Events = events
	}

	began := time.Now()
	av := s.calc.Compute(input)
	s.metrics.ObserveAvailability(time.Since(began))

	if req.TrainerID != "" {
		av = scheduling.FilterByTrainer(av, req.TrainerID)
	}
	s.logger.Debug("availability computed",
		zap.String("software_id", req.SoftwareID),
		zap.Int("year", req.Year),
		zap.Int("month", req.Month),
		zap.Int("trainers", len(trainers)),
		zap.Int("available_days", len(av.AvailableDays)),
	)
	return av, nil
}
