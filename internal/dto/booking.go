package dto

// BookAppointmentRequest selects a slot for a task. Date is YYYY-MM-DD and
// StartTime HH:MM, both in the working-hours time zone. An omitted
// SessionLengthDays means a one-day session.
type BookAppointmentRequest struct {
	SoftwareID        string  `json:"softwareId" validate:"required"`
	Date              string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime         string  `json:"startTime" validate:"required,datetime=15:04"`
	SessionLengthDays int     `json:"sessionLengthDays" validate:"omitempty,min=1,max=31"`
	TaskID            string  `json:"taskId" validate:"required"`
	ProjectID         string  `json:"projectId"`
	TrainerID         string  `json:"trainerId"`
	Location          *string `json:"location"`
}

// ModifyAppointmentRequest moves an existing appointment to a new slot.
type ModifyAppointmentRequest struct {
	ExistingEventID string `json:"existingEventId"`
	BookAppointmentRequest
}
