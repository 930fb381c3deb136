package scheduling

import (
	"sort"
	"time"
)

// Interval is a half-open [Start, End) time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Covers reports whether [start, end) lies inside the interval.
func (iv Interval) Covers(start, end time.Time) bool {
	return !start.Before(iv.Start) && !end.After(iv.End)
}

// Subtract removes every busy range from the free ranges. Both inputs may be
// unsorted; the result is sorted and contains no empty intervals.
func Subtract(free, busy []Interval) []Interval {
	if len(free) == 0 {
		return nil
	}
	out := append([]Interval(nil), free...)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })

	for _, b := range busy {
		if !b.Start.Before(b.End) {
			continue
		}
		next := out[:0:0]
		for _, f := range out {
			if !b.Start.Before(f.End) || !b.End.After(f.Start) {
				next = append(next, f)
				continue
			}
			if f.Start.Before(b.Start) {
				next = append(next, Interval{Start: f.Start, End: b.Start})
			}
			if b.End.Before(f.End) {
				next = append(next, Interval{Start: b.End, End: f.End})
			}
		}
		out = next
	}
	return out
}
