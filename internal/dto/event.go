package dto

import (
	"time"

	"github.com/formaplan/trainer-booking/internal/models"
)

// CreateEventRequest records a trainer commitment that is not a booked
// appointment, such as a training day or an unavailability.
type CreateEventRequest struct {
	TrainerID  string    `json:"trainerId"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	TaskID     *string   `json:"taskId"`
	ProjectID  *string   `json:"projectId"`
	SoftwareID *string   `json:"softwareId"`
	Location   *string   `json:"location"`
	Kind       string    `json:"kind"`
}

// Event converts the request into a calendar event.
func (r CreateEventRequest) Event() models.CalendarEvent {
	return models.CalendarEvent{
		TrainerID:  r.TrainerID,
		Start:      r.Start,
		End:        r.End,
		TaskID:     r.TaskID,
		ProjectID:  r.ProjectID,
		SoftwareID: r.SoftwareID,
		Location:   r.Location,
		Kind:       r.Kind,
	}
}
