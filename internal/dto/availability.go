package dto

import "github.com/formaplan/trainer-booking/internal/models"

// AvailabilityRequest selects the month, software and session length to compute.
type AvailabilityRequest struct {
	SoftwareID        string `form:"software_id" json:"softwareId" validate:"required"`
	Year              int    `form:"year" json:"year" validate:"required,min=2000,max=2100"`
	Month             int    `form:"month" json:"month" validate:"required,min=1,max=12"`
	SessionLengthDays int    `form:"session_days,default=1" json:"sessionLengthDays" validate:"min=1,max=31"`
	TrainerID         string `form:"trainer_id" json:"trainerId"`
}

// Slot is a bookable window on one day. It is derived and never stored.
type Slot struct {
	StartTime         string           `json:"startTime"`
	EndTime           string           `json:"endTime"`
	Display           string           `json:"display"`
	AvailableTrainers []models.Trainer `json:"availableTrainers"`
	Count             int              `json:"count"`
}

// HasTrainer reports whether the trainer is listed on the slot.
func (s Slot) HasTrainer(trainerID string) bool {
	for _, t := range s.AvailableTrainers {
		if t.ID == trainerID {
			return true
		}
	}
	return false
}

// MonthAvailability is the per-month aggregate consumed by the calendar view.
// Day keys are YYYY-MM-DD in the working-hours time zone.
type MonthAvailability struct {
	SoftwareID          string            `json:"softwareId"`
	Year                int               `json:"year"`
	Month               int               `json:"month"`
	SessionLengthDays   int               `json:"sessionLengthDays"`
	TrainerID           string            `json:"trainerId,omitempty"`
	AvailableDays       []string          `json:"availableDays"`
	AvailableFormateurs []models.Trainer  `json:"availableFormateurs"`
	SlotsByDate         map[string][]Slot `json:"slotsByDate"`
}

// DaySlots is the slot list of a single day.
type DaySlots struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// DayCell is one square of the month grid.
type DayCell struct {
	Date      string `json:"date"`
	Day       int    `json:"day"`
	InMonth   bool   `json:"inMonth"`
	Past      bool   `json:"past"`
	Available bool   `json:"available"`
	SlotCount int    `json:"slotCount"`
}

// MonthGrid lays out a month as Monday-first weeks.
type MonthGrid struct {
	Year  int         `json:"year"`
	Month int         `json:"month"`
	Today string      `json:"today"`
	Weeks [][]DayCell `json:"weeks"`
}
