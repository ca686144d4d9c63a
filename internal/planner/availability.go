package planner

import "sort"

const noStudyAfter = Clock(23 * 60)

// DayWindow is the study window of date for the mode after hard limits.
// The window is empty on Sundays when NoStudyOnSunday is set.
func DayWindow(date Date, mode StudyMode, limits HardLimits) Interval {
	preset := PresetFor(mode)
	window := Interval{Start: preset.DayStart, End: preset.WindowEnd()}
	if limits.NoStudyAfter23 && window.End > noStudyAfter {
		window.End = noStudyAfter
	}
	if limits.NoStudyOnSunday && date.Weekday() == Sunday {
		return Interval{Start: window.Start, End: window.Start}
	}
	return window
}

// FreeIntervals subtracts commitments and already-consumed time from window.
// The result is sorted and non-overlapping.
func FreeIntervals(window Interval, commitments []Interval, consumed []Interval) []Interval {
	if window.Empty() {
		return nil
	}
	free := []Interval{window}
	for _, cut := range append(append([]Interval{}, commitments...), consumed...) {
		if cut.Empty() {
			continue
		}
		next := make([]Interval, 0, len(free)+1)
		for _, iv := range free {
			next = append(next, iv.Subtract(cut)...)
		}
		free = next
	}
	sort.Slice(free, func(i, j int) bool { return free[i].Start < free[j].Start })
	return free
}

// Constraints carries everything needed to decide whether a block may be placed.
type Constraints struct {
	Mode            StudyMode
	Limits          HardLimits
	Commitments     CommitmentSet
	Session         SessionBounds
	DailyCapMinutes int
}

func (c Constraints) window(date Date) Interval {
	return DayWindow(date, c.Mode, c.Limits)
}

type dayAvailability struct {
	free []Interval
	used int
}

// AvailabilityTable is the mutable per-date state shared by every allocation of one run.
type AvailabilityTable struct {
	days       map[Date]*dayAvailability
	capMinutes int
}

// NewAvailabilityTable computes the free intervals of every date from the constraints.
func NewAvailabilityTable(dates []Date, c Constraints) *AvailabilityTable {
	table := &AvailabilityTable{
		days:       make(map[Date]*dayAvailability, len(dates)),
		capMinutes: c.DailyCapMinutes,
	}
	for _, date := range dates {
		table.days[date] = &dayAvailability{
			free: FreeIntervals(c.window(date), c.Commitments.Intervals(date), nil),
		}
	}
	return table
}

// Free returns a copy of the free intervals of date.
func (t *AvailabilityTable) Free(date Date) []Interval {
	day, ok := t.days[date]
	if !ok {
		return nil
	}
	out := make([]Interval, len(day.free))
	copy(out, day.free)
	return out
}

// Used returns the study minutes already placed on date.
func (t *AvailabilityTable) Used(date Date) int {
	if day, ok := t.days[date]; ok {
		return day.used
	}
	return 0
}

// CapLeft is the study time still allowed on date.
func (t *AvailabilityTable) CapLeft(date Date) int {
	day, ok := t.days[date]
	if !ok {
		return 0
	}
	left := t.capMinutes - day.used
	if left < 0 {
		return 0
	}
	return left
}

// FreeMinutes sums the free time left on date.
func (t *AvailabilityTable) FreeMinutes(date Date) int {
	total := 0
	for _, iv := range t.Free(date) {
		total += iv.Minutes()
	}
	return total
}

// Consume removes iv from date; study time also counts against the daily cap.
func (t *AvailabilityTable) Consume(date Date, iv Interval, study bool) {
	day, ok := t.days[date]
	if !ok || iv.Empty() {
		return
	}
	next := make([]Interval, 0, len(day.free)+1)
	for _, free := range day.free {
		next = append(next, free.Subtract(iv)...)
	}
	day.free = next
	if study {
		day.used += iv.Minutes()
	}
}
