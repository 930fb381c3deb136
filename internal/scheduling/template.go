package scheduling

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ClockTime is a wall-clock time expressed in minutes after midnight.
type ClockTime int

// ParseClock parses "HH:MM".
func ParseClock(raw string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", raw, err)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

// String formats the clock time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Window is a bookable [Start, End) range within a day.
type Window struct {
	Start ClockTime
	End   ClockTime
}

// Contains reports whether [start, end) lies inside the window.
func (w Window) Contains(start, end ClockTime) bool {
	return start >= w.Start && end <= w.End
}

// WorkingHoursTemplate defines the bookable windows per weekday and the slot size.
// Weekdays without windows are non-working days.
type WorkingHoursTemplate struct {
	SlotMinutes int
	Location    *time.Location
	Windows     map[time.Weekday][]Window
}

// DefaultTemplate is Monday to Friday, 09:00-12:30 and 14:00-18:00, 30-minute slots.
func DefaultTemplate(loc *time.Location) WorkingHoursTemplate {
	if loc == nil {
		loc = time.UTC
	}
	day := []Window{{Start: 9 * 60, End: 12*60 + 30}, {Start: 14 * 60, End: 18 * 60}}
	windows := make(map[time.Weekday][]Window, 5)
	for wd := time.Monday; wd <= time.Friday; wd++ {
		windows[wd] = append([]Window(nil), day...)
	}
	return WorkingHoursTemplate{SlotMinutes: 30, Location: loc, Windows: windows}
}

// Validate checks slot size, window ordering and that at least one day works.
func (t WorkingHoursTemplate) Validate() error {
	if t.SlotMinutes <= 0 {
		return fmt.Errorf("slot minutes must be positive, got %d", t.SlotMinutes)
	}
	if t.Location == nil {
		return fmt.Errorf("template location is required")
	}
	working := 0
	for wd, windows := range t.Windows {
		for i, w := range windows {
			if w.Start < 0 || w.End > 24*60 || w.Start >= w.End {
				return fmt.Errorf("%s window %s-%s is invalid", wd, w.Start, w.End)
			}
			if i > 0 && w.Start < windows[i-1].End {
				return fmt.Errorf("%s windows overlap or are unordered", wd)
			}
		}
		if len(windows) > 0 {
			working++
		}
	}
	if working == 0 {
		return fmt.Errorf("template has no working day")
	}
	return nil
}

// IsWorkingDay reports whether the weekday has at least one window.
func (t WorkingHoursTemplate) IsWorkingDay(wd time.Weekday) bool {
	return len(t.Windows[wd]) > 0
}

// SlotDuration returns the slot granularity.
func (t WorkingHoursTemplate) SlotDuration() time.Duration {
	return time.Duration(t.SlotMinutes) * time.Minute
}

// WindowContaining returns the window of the weekday that holds [start, end).
func (t WorkingHoursTemplate) WindowContaining(wd time.Weekday, start, end ClockTime) (Window, bool) {
	for _, w := range t.Windows[wd] {
		if w.Contains(start, end) {
			return w, true
		}
	}
	return Window{}, false
}

// IsSlotStart reports whether clock is a slot boundary inside one of the weekday windows.
func (t WorkingHoursTemplate) IsSlotStart(wd time.Weekday, clock ClockTime) bool {
	w, ok := t.WindowContaining(wd, clock, clock+ClockTime(t.SlotMinutes))
	if !ok {
		return false
	}
	return int(clock-w.Start)%t.SlotMinutes == 0
}

type templateFile struct {
	SlotMinutes int                       `yaml:"slot_minutes"`
	Timezone    string                    `yaml:"timezone"`
	Windows     map[string][]windowRecord `yaml:"windows"`
}

type windowRecord struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseTemplate decodes a YAML template. defaultTZ applies when the document
// names no timezone.
func ParseTemplate(raw []byte, defaultTZ string) (WorkingHoursTemplate, error) {
	var doc templateFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return WorkingHoursTemplate{}, fmt.Errorf("decode working hours: %w", err)
	}

	tz := doc.Timezone
	if tz == "" {
		tz = defaultTZ
	}
	loc, err := loadLocation(tz)
	if err != nil {
		return WorkingHoursTemplate{}, err
	}

	tmpl := WorkingHoursTemplate{SlotMinutes: doc.SlotMinutes, Location: loc, Windows: map[time.Weekday][]Window{}}
	if tmpl.SlotMinutes == 0 {
		tmpl.SlotMinutes = 30
	}
	for name, records := range doc.Windows {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return WorkingHoursTemplate{}, fmt.Errorf("unknown weekday %q", name)
		}
		for _, rec := range records {
			start, err := ParseClock(rec.Start)
			if err != nil {
				return WorkingHoursTemplate{}, err
			}
			end, err := ParseClock(rec.End)
			if err != nil {
				return WorkingHoursTemplate{}, err
			}
			tmpl.Windows[wd] = append(tmpl.Windows[wd], Window{Start: start, End: end})
		}
		sort.Slice(tmpl.Windows[wd], func(i, j int) bool { return tmpl.Windows[wd][i].Start < tmpl.Windows[wd][j].Start })
	}

	if err := tmpl.Validate(); err != nil {
		return WorkingHoursTemplate{}, err
	}
	return tmpl, nil
}

// LoadTemplate reads the YAML template at path, or returns the default template
// in defaultTZ when path is empty.
func LoadTemplate(path, defaultTZ string) (WorkingHoursTemplate, error) {
	if path == "" {
		loc, err := loadLocation(defaultTZ)
		if err != nil {
			return WorkingHoursTemplate{}, err
		}
		return DefaultTemplate(loc), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return WorkingHoursTemplate{}, fmt.Errorf("read working hours file: %w", err)
	}
	return ParseTemplate(raw, defaultTZ)
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
