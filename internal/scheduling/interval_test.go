package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clock(h, m int) time.Time {
	return time.Date(2026, time.March, 3, h, m, 0, 0, time.UTC)
}

func TestSubtract(t *testing.T) {
	morning := Interval{Start: clock(9, 0), End: clock(12, 30)}
	afternoon := Interval{Start: clock(14, 0), End: clock(18, 0)}

	tests := []struct {
		name string
		busy []Interval
		want []Interval
	}{
		{name: "nothing busy", want: []Interval{morning, afternoon}},
		{
			name: "inside",
			busy: []Interval{{Start: clock(10, 0), End: clock(11, 0)}},
			want: []Interval{{Start: clock(9, 0), End: clock(10, 0)}, {Start: clock(11, 0), End: clock(12, 30)}, afternoon},
		},
		{
			name: "touching edges",
			busy: []Interval{{Start: clock(12, 30), End: clock(14, 0)}},
			want: []Interval{morning, afternoon},
		},
		{
			name: "spanning lunch",
			busy: []Interval{{Start: clock(12, 0), End: clock(15, 0)}},
			want: []Interval{{Start: clock(9, 0), End: clock(12, 0)}, {Start: clock(15, 0), End: clock(18, 0)}},
		},
		{
			name: "whole day",
			busy: []Interval{{Start: clock(0, 0), End: clock(23, 0)}},
			want: []Interval{},
		},
		{
			name: "empty busy ignored",
			busy: []Interval{{Start: clock(10, 0), End: clock(10, 0)}},
			want: []Interval{morning, afternoon},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Subtract([]Interval{afternoon, morning}, tc.busy)
			if len(tc.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIntervalCovers(t *testing.T) {
	iv := Interval{Start: clock(9, 0), End: clock(10, 0)}
	assert.True(t, iv.Covers(clock(9, 0), clock(10, 0)))
	assert.True(t, iv.Covers(clock(9, 30), clock(10, 0)))
	assert.False(t, iv.Covers(clock(9, 30), clock(10, 30)))
}

func TestDateHelpers(t *testing.T) {
	d := NewDate(2026, time.January, 32)
	assert.Equal(t, "2026-02-01", d.Key())
	assert.Equal(t, time.Sunday, d.Weekday())
	assert.Equal(t, "2026-01-31", d.AddDays(-1).String())
	assert.True(t, d.AddDays(-1).Before(d))
	assert.False(t, d.Before(d))

	parsed, err := ParseDate("2026-10-20")
	assert.NoError(t, err)
	assert.Equal(t, NewDate(2026, time.October, 20), parsed)
	_, err = ParseDate("20/10/2026")
	assert.Error(t, err)

	late := time.Date(2026, time.October, 20, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, NewDate(2026, time.October, 21), DateOf(late, time.FixedZone("CEST", 2*3600)))
	assert.Equal(t, time.Date(2026, time.October, 20, 9, 30, 0, 0, time.UTC), parsed.At(570, time.UTC))
}
