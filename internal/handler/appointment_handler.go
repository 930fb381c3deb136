package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formaplan/trainer-booking/internal/dto"
	"github.com/formaplan/trainer-booking/internal/models"
	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
	"github.com/formaplan/trainer-booking/pkg/response"
)

type bookingService interface {
	BookAppointment(ctx context.Context, req dto.BookAppointmentRequest) (*models.CalendarEvent, error)
	ModifyAppointment(ctx context.Context, req dto.ModifyAppointmentRequest) (*models.CalendarEvent, error)
	GetAppointment(ctx context.Context, taskID string) (models.AppointmentState, error)
	CancelAppointment(ctx context.Context, taskID string) (models.AppointmentState, error)
}

// AppointmentHandler books and rebooks task appointments.
type AppointmentHandler struct {
	service bookingService
}

// NewAppointmentHandler builds a new handler.
func NewAppointmentHandler(service bookingService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// Get godoc
// @Summary Get the appointment state of a task
// @Tags Appointments
// @Produce json
// @Param taskId path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{taskId}/appointment [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	state, err := h.service.GetAppointment(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Book godoc
// @Summary Book a slot for a task
// @Tags Appointments
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param payload body dto.BookAppointmentRequest true "Slot selection"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tasks/{taskId}/appointment [post]
func (h *AppointmentHandler) Book(c *gin.Context) {
	var req dto.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	req.TaskID = c.Param("taskId")
	event, err := h.service.BookAppointment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, models.BookedAppointment(req.TaskID, *event))
}

// Modify godoc
// @Summary Move a task's appointment to another slot
// @Tags Appointments
// @Accept json
// @Produce json
// @Param taskId path string true "Task ID"
// @Param payload body dto.ModifyAppointmentRequest true "New slot selection"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tasks/{taskId}/appointment [put]
func (h *AppointmentHandler) Modify(c *gin.Context) {
	var req dto.ModifyAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	req.TaskID = c.Param("taskId")
	event, err := h.service.ModifyAppointment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, models.BookedAppointment(req.TaskID, *event), nil)
}

// Cancel godoc
// @Summary Cancel a task's appointment
// @Tags Appointments
// @Produce json
// @Param taskId path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{taskId}/appointment [delete]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	state, err := h.service.CancelAppointment(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}
