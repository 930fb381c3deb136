package scheduling

import (
	"time"

	"github.com/formaplan/trainer-booking/internal/dto"
)

// BuildMonthGrid lays the availability out as Monday-first weeks, padding with
// days of the neighbouring months. Past days are never marked available.
func BuildMonthGrid(av dto.MonthAvailability, today Date) dto.MonthGrid {
	month := time.Month(av.Month)
	first := NewDate(av.Year, month, 1)
	last := NewDate(av.Year, month+1, 0)

	start := first.AddDays(-mondayOffset(first.Weekday()))
	end := last.AddDays(6 - mondayOffset(last.Weekday()))

	grid := dto.MonthGrid{Year: av.Year, Month: av.Month, Today: today.Key()}
	var week []dto.DayCell
	for d := start; !end.Before(d); d = d.AddDays(1) {
		inMonth := d.Month == month && d.Year == av.Year
		past := d.Before(today)
		cell := dto.DayCell{Date: d.Key(), Day: d.Day, InMonth: inMonth, Past: past}
		if inMonth && !past {
			cell.SlotCount = len(av.SlotsByDate[d.Key()])
			cell.Available = cell.SlotCount > 0
		}
		week = append(week, cell)
		if len(week) == 7 {
			grid.Weeks = append(grid.Weeks, week)
			week = nil
		}
	}
	return grid
}

func mondayOffset(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
