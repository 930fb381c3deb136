package scheduling

import (
	"sort"
	"strings"
	"time"

	"github.com/formaplan/trainer-booking/internal/dto"
	"github.com/formaplan/trainer-booking/internal/models"
)

// Input is everything a month computation depends on. The calculation is a
// pure function of Input and the template.
type Input struct {
	SoftwareID        string
	Year              int
	Month             time.Month
	SessionLengthDays int
	Trainers          []models.Trainer
	Events            []models.CalendarEvent
	Now               time.Time
}

// Calculator turns trainers, events and a working-hours template into bookable slots.
type Calculator struct {
	template WorkingHoursTemplate
}

// NewCalculator builds a calculator over a validated template.
func NewCalculator(template WorkingHoursTemplate) *Calculator {
	return &Calculator{template: template}
}

// Template exposes the configured working hours.
func (c *Calculator) Template() WorkingHoursTemplate {
	return c.template
}

// FollowingWorkingDays returns the n working days after d, skipping days the
// template does not open. The scan stops after 7*n days, so a template with no
// working day yields fewer than n days.
func (c *Calculator) FollowingWorkingDays(d Date, n int) []Date {
	if n <= 0 {
		return nil
	}
	days := make([]Date, 0, n)
	cur := d
	for scanned := 0; len(days) < n && scanned < 7*n; scanned++ {
		cur = cur.AddDays(1)
		if c.template.IsWorkingDay(cur.Weekday()) {
			days = append(days, cur)
		}
	}
	return days
}

// Range returns the event window to load for a month: the whole month plus
// the working days a session starting on the last day would spill into.
func (c *Calculator) Range(year int, month time.Month, sessionLengthDays int) (time.Time, time.Time) {
	loc := c.template.Location
	first := NewDate(year, month, 1)
	last := NewDate(year, month+1, 0)
	end := last
	if tail := c.FollowingWorkingDays(last, sessionLengthDays-1); len(tail) > 0 {
		end = tail[len(tail)-1]
	}
	return first.Midnight(loc), end.AddDays(1).Midnight(loc)
}

// Compute builds the month availability.
func (c *Calculator) Compute(in Input) dto.MonthAvailability {
	result := emptyAvailability(in)
	if len(in.Trainers) == 0 {
		return result
	}
	sessionDays := in.SessionLengthDays
	if sessionDays < 1 {
		sessionDays = 1
	}

	loc := c.template.Location
	slotLen := ClockTime(c.template.SlotMinutes)
	trainers := SortTrainers(in.Trainers)
	state := newFreeTimeIndex(c.template, in.Events)
	today := DateOf(in.Now, loc)
	seen := make(map[string]bool, len(trainers))

	for d := NewDate(in.Year, in.Month, 1); d.Month == in.Month; d = d.AddDays(1) {
		if d.Before(today) {
			continue
		}
		windows := c.template.Windows[d.Weekday()]
		if len(windows) == 0 {
			continue
		}
		following := c.FollowingWorkingDays(d, sessionDays-1)
		if len(following) < sessionDays-1 {
			continue
		}

		var slots []dto.Slot
		for _, w := range windows {
			for start := w.Start; start+slotLen <= w.End; start += slotLen {
				end := start + slotLen
				if d == today && !d.At(start, loc).After(in.Now) {
					continue
				}
				free := make([]models.Trainer, 0, len(trainers))
				for _, t := range trainers {
					if c.freeForSession(state, t.ID, d, following, start, end) {
						free = append(free, t)
					}
				}
				if len(free) == 0 {
					continue
				}
				slots = append(slots, dto.Slot{
					StartTime:         start.String(),
					EndTime:           end.String(),
					Display:           start.String() + " - " + end.String(),
					AvailableTrainers: free,
					Count:             len(free),
				})
				for _, t := range free {
					seen[t.ID] = true
				}
			}
		}
		if len(slots) > 0 {
			result.SlotsByDate[d.Key()] = slots
			result.AvailableDays = append(result.AvailableDays, d.Key())
		}
	}

	for _, t := range trainers {
		if seen[t.ID] {
			result.AvailableFormateurs = append(result.AvailableFormateurs, t)
		}
	}
	return result
}

func (c *Calculator) freeForSession(state *freeTimeIndex, trainerID string, d Date, following []Date, start, end ClockTime) bool {
	if !state.isFree(trainerID, d, start, end) {
		return false
	}
	for _, next := range following {
		if _, ok := c.template.WindowContaining(next.Weekday(), start, end); !ok {
			return false
		}
		if !state.isFree(trainerID, next, start, end) {
			return false
		}
	}
	return true
}

// FilterByTrainer narrows a computed month to one trainer. It only removes
// data, so the result is always a subset of the input.
func FilterByTrainer(av dto.MonthAvailability, trainerID string) dto.MonthAvailability {
	if trainerID == "" {
		return av
	}
	out := dto.MonthAvailability{
		SoftwareID:          av.SoftwareID,
		Year:                av.Year,
		Month:               av.Month,
		SessionLengthDays:   av.SessionLengthDays,
		TrainerID:           trainerID,
		AvailableDays:       []string{},
		AvailableFormateurs: []models.Trainer{},
		SlotsByDate:         map[string][]dto.Slot{},
	}
	var match *models.Trainer
	for _, day := range av.AvailableDays {
		var kept []dto.Slot
		for _, slot := range av.SlotsByDate[day] {
			for _, t := range slot.AvailableTrainers {
				if t.ID != trainerID {
					continue
				}
				trainer := t
				match = &trainer
				kept = append(kept, dto.Slot{
					StartTime:         slot.StartTime,
					EndTime:           slot.EndTime,
					Display:           slot.Display,
					AvailableTrainers: []models.Trainer{trainer},
					Count:             1,
				})
				break
			}
		}
		if len(kept) > 0 {
			out.SlotsByDate[day] = kept
			out.AvailableDays = append(out.AvailableDays, day)
		}
	}
	if match != nil {
		out.AvailableFormateurs = append(out.AvailableFormateurs, *match)
	}
	return out
}

// SortTrainers orders trainers by display name, case-insensitively, then by id.
func SortTrainers(trainers []models.Trainer) []models.Trainer {
	out := append([]models.Trainer(nil), trainers...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].DisplayName), strings.ToLower(out[j].DisplayName)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func emptyAvailability(in Input) dto.MonthAvailability {
	return dto.MonthAvailability{
		SoftwareID:          in.SoftwareID,
		Year:                in.Year,
		Month:               int(in.Month),
		SessionLengthDays:   in.SessionLengthDays,
		AvailableDays:       []string{},
		AvailableFormateurs: []models.Trainer{},
		SlotsByDate:         map[string][]dto.Slot{},
	}
}

// freeTimeIndex memoises each trainer's free intervals per day.
type freeTimeIndex struct {
	template WorkingHoursTemplate
	busy     map[string][]Interval
	free     map[string][]Interval
}

func newFreeTimeIndex(template WorkingHoursTemplate, events []models.CalendarEvent) *freeTimeIndex {
	busy := make(map[string][]Interval)
	for _, e := range events {
		busy[e.TrainerID] = append(busy[e.TrainerID], Interval{Start: e.Start, End: e.End})
	}
	return &freeTimeIndex{template: template, busy: busy, free: make(map[string][]Interval)}
}

func (f *freeTimeIndex) intervals(trainerID string, d Date) []Interval {
	key := trainerID + "|" + d.Key()
	if cached, ok := f.free[key]; ok {
		return cached
	}
	loc := f.template.Location
	windows := f.template.Windows[d.Weekday()]
	open := make([]Interval, 0, len(windows))
	for _, w := range windows {
		open = append(open, Interval{Start: d.At(w.Start, loc), End: d.At(w.End, loc)})
	}
	free := Subtract(open, f.busy[trainerID])
	f.free[key] = free
	return free
}

func (f *freeTimeIndex) isFree(trainerID string, d Date, start, end ClockTime) bool {
	loc := f.template.Location
	from, to := d.At(start, loc), d.At(end, loc)
	for _, iv := range f.intervals(trainerID, d) {
		if iv.Covers(from, to) {
			return true
		}
	}
	return false
}
