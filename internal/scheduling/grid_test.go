package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formaplan/trainer-booking/internal/models"
)

func TestBuildMonthGrid(t *testing.T) {
	events := []models.CalendarEvent{event(trainerA.ID, at(22, 9, 0), at(22, 18, 0))}
	av := newTestCalculator().Compute(octoberInput([]models.Trainer{trainerA}, events, at(20, 8, 0)))

	grid := BuildMonthGrid(av, NewDate(2026, time.October, 20))

	assert.Equal(t, "2026-10-20", grid.Today)
	// 1 October 2026 is a Thursday; 31 October a Saturday.
	require.Len(t, grid.Weeks, 5)
	for _, week := range grid.Weeks {
		assert.Len(t, week, 7)
	}
	first := grid.Weeks[0]
	assert.Equal(t, "2026-09-28", first[0].Date)
	assert.False(t, first[0].InMonth)
	assert.Equal(t, "2026-10-01", first[3].Date)
	assert.True(t, first[3].InMonth)
	assert.True(t, first[3].Past)
	assert.False(t, first[3].Available)

	last := grid.Weeks[4]
	assert.Equal(t, "2026-11-01", last[6].Date)
	assert.False(t, last[6].InMonth)

	cells := map[string]bool{}
	counts := map[string]int{}
	for _, week := range grid.Weeks {
		for _, c := range week {
			cells[c.Date] = c.Available
			counts[c.Date] = c.SlotCount
		}
	}
	assert.True(t, cells["2026-10-20"])
	assert.Equal(t, 15, counts["2026-10-20"])
	assert.False(t, cells["2026-10-22"], "fully booked day")
	assert.False(t, cells["2026-10-24"], "weekend")
	assert.True(t, cells["2026-10-23"])
}
