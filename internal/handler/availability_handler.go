package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formaplan/trainer-booking/internal/dto"
	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
	"github.com/formaplan/trainer-booking/pkg/response"
)

type availabilityService interface {
	ComputeMonthAvailability(ctx context.Context, req dto.AvailabilityRequest) (dto.MonthAvailability, error)
	MonthGrid(ctx context.Context, req dto.AvailabilityRequest) (dto.MonthGrid, error)
	SlotsForDate(ctx context.Context, req dto.AvailabilityRequest, date string, excludeEventIDs ...string) (dto.DaySlots, error)
}

// AvailabilityHandler exposes the calendar view endpoints.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler builds a new handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// Month godoc
// @Summary Compute bookable slots for a month
// @Tags Availability
// @Produce json
// @Param software_id query string true "Software ID"
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Param session_days query int false "Session length in working days (default 1)"
// @Param trainer_id query string false "Restrict to one trainer"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) Month(c *gin.Context) {
	req, ok := bindAvailability(c)
	if !ok {
		return
	}
	result, err := h.service.ComputeMonthAvailability(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Grid godoc
// @Summary Lay out a month as weeks of day cells
// @Tags Availability
// @Produce json
// @Param software_id query string true "Software ID"
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Param session_days query int false "Session length in working days (default 1)"
// @Param trainer_id query string false "Restrict to one trainer"
// @Success 200 {object} response.Envelope
// @Router /availability/grid [get]
func (h *AvailabilityHandler) Grid(c *gin.Context) {
	req, ok := bindAvailability(c)
	if !ok {
		return
	}
	grid, err := h.service.MonthGrid(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}

// Slots godoc
// @Summary List the slots of one day
// @Tags Availability
// @Produce json
// @Param software_id query string true "Software ID"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Param session_days query int false "Session length in working days (default 1)"
// @Param trainer_id query string false "Restrict to one trainer"
// @Param exclude_event_id query string false "Ignore this event, e.g. the appointment being moved"
// @Success 200 {object} response.Envelope
// @Router /availability/slots [get]
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	var query slotsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slots query"))
		return
	}
	if query.Date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	req := dto.AvailabilityRequest{
		SoftwareID:        query.SoftwareID,
		SessionLengthDays: query.SessionLengthDays,
		TrainerID:         query.TrainerID,
	}
	var exclude []string
	if query.ExcludeEventID != "" {
		exclude = append(exclude, query.ExcludeEventID)
	}
	day, err := h.service.SlotsForDate(c.Request.Context(), req, query.Date, exclude...)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

type slotsQuery struct {
	SoftwareID        string `form:"software_id"`
	Date              string `form:"date"`
	SessionLengthDays int    `form:"session_days,default=1"`
	TrainerID         string `form:"trainer_id"`
	ExcludeEventID    string `form:"exclude_event_id"`
}

func bindAvailability(c *gin.Context) (dto.AvailabilityRequest, bool) {
	var req dto.AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability query"))
		return req, false
	}
	return req, true
}
