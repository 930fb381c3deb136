package scheduling

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(570), c)
	assert.Equal(t, "09:30", c.String())

	_, err = ParseClock("9h30")
	assert.Error(t, err)
}

func TestDefaultTemplate(t *testing.T) {
	tmpl := DefaultTemplate(nil)

	require.NoError(t, tmpl.Validate())
	assert.Equal(t, time.UTC, tmpl.Location)
	assert.True(t, tmpl.IsWorkingDay(time.Monday))
	assert.False(t, tmpl.IsWorkingDay(time.Saturday))
	assert.Equal(t, 30*time.Minute, tmpl.SlotDuration())

	assert.True(t, tmpl.IsSlotStart(time.Tuesday, 9*60))
	assert.True(t, tmpl.IsSlotStart(time.Tuesday, 12*60))
	assert.False(t, tmpl.IsSlotStart(time.Tuesday, 12*60+30))
	assert.False(t, tmpl.IsSlotStart(time.Tuesday, 9*60+15))
	assert.False(t, tmpl.IsSlotStart(time.Sunday, 10*60))
}

func TestValidateRejectsBrokenTemplates(t *testing.T) {
	cases := map[string]WorkingHoursTemplate{
		"zero slot":   {SlotMinutes: 0, Location: time.UTC, Windows: map[time.Weekday][]Window{time.Monday: {{Start: 540, End: 600}}}},
		"no location": {SlotMinutes: 30, Windows: map[time.Weekday][]Window{time.Monday: {{Start: 540, End: 600}}}},
		"inverted":    {SlotMinutes: 30, Location: time.UTC, Windows: map[time.Weekday][]Window{time.Monday: {{Start: 600, End: 540}}}},
		"overlap":     {SlotMinutes: 30, Location: time.UTC, Windows: map[time.Weekday][]Window{time.Monday: {{Start: 540, End: 720}, {Start: 700, End: 800}}}},
		"no days":     {SlotMinutes: 30, Location: time.UTC, Windows: map[time.Weekday][]Window{}},
	}
	for name, tmpl := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, tmpl.Validate())
		})
	}
}

const sampleTemplate = `
slot_minutes: 60
timezone: UTC
windows:
  Mon:
    - start: "14:00"
      end: "17:00"
    - start: "08:00"
      end: "12:00"
  saturday:
    - start: "10:00"
      end: "12:00"
`

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(sampleTemplate), "Europe/Paris")
	require.NoError(t, err)

	assert.Equal(t, 60, tmpl.SlotMinutes)
	assert.Equal(t, "UTC", tmpl.Location.String())
	assert.Equal(t, []Window{{Start: 480, End: 720}, {Start: 840, End: 1020}}, tmpl.Windows[time.Monday])
	assert.True(t, tmpl.IsWorkingDay(time.Saturday))
	assert.False(t, tmpl.IsWorkingDay(time.Tuesday))
}

func TestParseTemplateErrors(t *testing.T) {
	_, err := ParseTemplate([]byte("windows:\n  funday:\n    - start: \"09:00\"\n      end: \"10:00\"\n"), "UTC")
	assert.ErrorContains(t, err, "unknown weekday")

	_, err = ParseTemplate([]byte("windows:\n  mon:\n    - start: \"nine\"\n      end: \"10:00\"\n"), "UTC")
	assert.ErrorContains(t, err, "invalid clock time")

	_, err = ParseTemplate([]byte("timezone: Mars/Olympus\nwindows:\n  mon:\n    - start: \"09:00\"\n      end: \"10:00\"\n"), "UTC")
	assert.ErrorContains(t, err, "load timezone")

	_, err = ParseTemplate([]byte("windows: [1, 2"), "UTC")
	assert.ErrorContains(t, err, "decode working hours")
}

func TestLoadTemplate(t *testing.T) {
	tmpl, err := LoadTemplate("", "UTC")
	require.NoError(t, err)
	assert.Len(t, tmpl.Windows, 5)

	path := filepath.Join(t.TempDir(), "hours.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTemplate), 0o600))
	tmpl, err = LoadTemplate(path, "UTC")
	require.NoError(t, err)
	assert.Equal(t, 60, tmpl.SlotMinutes)

	_, err = LoadTemplate(filepath.Join(t.TempDir(), "missing.yaml"), "UTC")
	assert.ErrorContains(t, err, "read working hours file")
}
