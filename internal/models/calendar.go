package models

import "time"

// EventKindQualificationAppointment marks events created by the booking coordinator.
const EventKindQualificationAppointment = "qualification-appointment"

// CalendarEvent is a persisted trainer calendar entry. Start is always before End.
type CalendarEvent struct {
	ID         string    `db:"id" json:"id"`
	TrainerID  string    `db:"trainer_id" json:"trainer_id"`
	Start      time.Time `db:"start_at" json:"start"`
	End        time.Time `db:"end_at" json:"end"`
	TaskID     *string   `db:"task_id" json:"task_id,omitempty"`
	ProjectID  *string   `db:"project_id" json:"project_id,omitempty"`
	SoftwareID *string   `db:"software_id" json:"software_id,omitempty"`
	Location   *string   `db:"location" json:"location,omitempty"`
	Kind       string    `db:"kind" json:"kind"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether the event intersects the half-open interval [start, end).
func (e CalendarEvent) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// CalendarEventPatch carries a partial update; nil fields are left untouched.
type CalendarEventPatch struct {
	TrainerID  *string    `json:"trainer_id"`
	Start      *time.Time `json:"start"`
	End        *time.Time `json:"end"`
	TaskID     *string    `json:"task_id"`
	ProjectID  *string    `json:"project_id"`
	SoftwareID *string    `json:"software_id"`
	Location   *string    `json:"location"`
	Kind       *string    `json:"kind"`
}

// Apply copies the set fields of the patch onto the event.
func (p CalendarEventPatch) Apply(event *CalendarEvent) {
	if p.TrainerID != nil {
		event.TrainerID = *p.TrainerID
	}
	if p.Start != nil {
		event.Start = *p.Start
	}
	if p.End != nil {
		event.End = *p.End
	}
	if p.TaskID != nil {
		event.TaskID = p.TaskID
	}
	if p.ProjectID != nil {
		event.ProjectID = p.ProjectID
	}
	if p.SoftwareID != nil {
		event.SoftwareID = p.SoftwareID
	}
	if p.Location != nil {
		event.Location = p.Location
	}
	if p.Kind != nil {
		event.Kind = *p.Kind
	}
}

// CalendarFilter narrows down events.
type CalendarFilter struct {
	TrainerIDs []string
	Start      time.Time
	End        time.Time
	ExcludeIDs []string
}
