package models

// AppointmentStatus is the visible state of a task's appointment.
type AppointmentStatus string

const (
	AppointmentStatusNone   AppointmentStatus = "NONE"
	AppointmentStatusBooked AppointmentStatus = "BOOKED"
)

// AppointmentState is either {NONE} or {BOOKED, Event}. Use the constructors
// so Event is set exactly when the status is BOOKED.
type AppointmentState struct {
	TaskID string            `json:"task_id"`
	Status AppointmentStatus `json:"status"`
	Event  *CalendarEvent    `json:"event,omitempty"`
}

// NoAppointment builds the NONE state.
func NoAppointment(taskID string) AppointmentState {
	return AppointmentState{TaskID: taskID, Status: AppointmentStatusNone}
}

// BookedAppointment builds the BOOKED state around an event.
func BookedAppointment(taskID string, event CalendarEvent) AppointmentState {
	return AppointmentState{TaskID: taskID, Status: AppointmentStatusBooked, Event: &event}
}

// Booked reports whether the task currently holds an appointment.
func (s AppointmentState) Booked() bool {
	return s.Status == AppointmentStatusBooked && s.Event != nil
}
