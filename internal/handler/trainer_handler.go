package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formaplan/trainer-booking/internal/models"
	"github.com/formaplan/trainer-booking/pkg/response"
)

type competencyService interface {
	TrainersFor(ctx context.Context, softwareID string) ([]models.Trainer, error)
	Invalidate(ctx context.Context, softwareID string) error
}

// TrainerHandler exposes the competency lookup.
type TrainerHandler struct {
	service competencyService
}

// NewTrainerHandler builds a new handler.
func NewTrainerHandler(service competencyService) *TrainerHandler {
	return &TrainerHandler{service: service}
}

// ListForSoftware godoc
// @Summary List trainers qualified for a software product
// @Tags Trainers
// @Produce json
// @Param id path string true "Software ID"
// @Param refresh query bool false "Drop the cached entry before reading"
// @Success 200 {object} response.Envelope
// @Router /software/{id}/trainers [get]
func (h *TrainerHandler) ListForSoftware(c *gin.Context) {
	softwareID := c.Param("id")
	if c.Query("refresh") == "true" {
		if err := h.service.Invalidate(c.Request.Context(), softwareID); err != nil {
			response.Error(c, err)
			return
		}
	}
	trainers, err := h.service.TrainersFor(c.Request.Context(), softwareID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, trainers, nil, map[string]interface{}{"count": len(trainers)})
}
