package planner

import "sort"

// CommitmentSet holds weekly recurring commitments plus date-pinned ones such as exams.
type CommitmentSet struct {
	Weekly []FixedCommitment
	Dated  map[Date][]FixedCommitment
}

// DeriveCommitments combines the imported timetable with sleep and meal windows
// anchored to the clock times of the study mode.
func DeriveCommitments(timetable []FixedCommitment, prefs LifestylePrefs, mode StudyMode) CommitmentSet {
	preset := PresetFor(mode)
	prefs = LifestyleFor(mode, prefs)

	weekly := make([]FixedCommitment, 0, len(timetable)+7*4)
	for _, entry := range timetable {
		if entry.Source == "" {
			entry.Source = SourceTimetable
		}
		weekly = append(weekly, entry)
	}

	sleep := hoursToMinutes(prefs.SleepHours)
	for day := Monday; day <= Sunday; day++ {
		weekly = append(weekly, sleepWindows(day, preset.Bedtime, sleep)...)
		if prefs.LunchMinutes > 0 {
			weekly = append(weekly, FixedCommitment{
				Day: day, Start: preset.LunchAt, End: clampClock(preset.LunchAt + Clock(prefs.LunchMinutes)),
				Label: "Lunch", Source: SourceMeal,
			})
		}
		if prefs.DinnerMinutes > 0 {
			weekly = append(weekly, FixedCommitment{
				Day: day, Start: preset.DinnerAt, End: clampClock(preset.DinnerAt + Clock(prefs.DinnerMinutes)),
				Label: "Dinner", Source: SourceMeal,
			})
		}
	}
	return CommitmentSet{Weekly: weekly, Dated: map[Date][]FixedCommitment{}}
}

// sleepWindows splits a night that crosses midnight into an evening and a morning
// part; both recur every day so each weekday carries both.
func sleepWindows(day Weekday, bedtime Clock, minutes int) []FixedCommitment {
	if minutes <= 0 {
		return nil
	}
	end := int(bedtime) + minutes
	if end <= minutesPerDay {
		return []FixedCommitment{{Day: day, Start: bedtime, End: Clock(end), Label: "Sleep", Source: SourceSleep}}
	}
	return []FixedCommitment{
		{Day: day, Start: 0, End: Clock(end - minutesPerDay), Label: "Sleep", Source: SourceSleep},
		{Day: day, Start: bedtime, End: Clock(minutesPerDay), Label: "Sleep", Source: SourceSleep},
	}
}

// AddExam pins a fixed deadline's exam slot to its due date.
func (s *CommitmentSet) AddExam(d Deadline) {
	if d.ExamSlot == nil || d.ExamSlot.Empty() {
		return
	}
	if s.Dated == nil {
		s.Dated = map[Date][]FixedCommitment{}
	}
	s.Dated[d.DueDate] = append(s.Dated[d.DueDate], FixedCommitment{
		Day:    d.DueDate.Weekday(),
		Start:  d.ExamSlot.Start,
		End:    d.ExamSlot.End,
		Label:  d.Title,
		Source: SourceExam,
	})
}

// On returns the commitments falling on date ordered by start.
func (s CommitmentSet) On(date Date) []FixedCommitment {
	day := date.Weekday()
	var out []FixedCommitment
	for _, c := range s.Weekly {
		if c.Day == day {
			out = append(out, c)
		}
	}
	out = append(out, s.Dated[date]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// Intervals returns the commitment intervals of date.
func (s CommitmentSet) Intervals(date Date) []Interval {
	commitments := s.On(date)
	out := make([]Interval, 0, len(commitments))
	for _, c := range commitments {
		out = append(out, c.Interval())
	}
	return out
}

func clampClock(c Clock) Clock {
	if c > minutesPerDay {
		return minutesPerDay
	}
	if c < 0 {
		return 0
	}
	return c
}
