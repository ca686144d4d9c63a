package planner

import (
	"fmt"
	"sort"
)

// Request is the full input of one generation run.
type Request struct {
	Deadlines     []Deadline        `json:"deadlines"`
	Timetable     []FixedCommitment `json:"timetable"`
	Lifestyle     LifestylePrefs    `json:"lifestyle"`
	Limits        HardLimits        `json:"hardLimits"`
	Mode          StudyMode         `json:"mode"`
	HorizonStart  Date              `json:"horizonStart"`
	HorizonWeeks  int               `json:"horizonWeeks"`
	Committed     []SessionBlock    `json:"committed,omitempty"`
	Session       SessionBounds     `json:"session"`
	DailyCapHours float64           `json:"dailyCapHours,omitempty"`
}

// HorizonEnd is the first date after the horizon.
func (r Request) HorizonEnd() Date {
	return r.HorizonStart.AddDays(7 * r.HorizonWeeks)
}

// Dates lists every date of the horizon.
func (r Request) Dates() []Date {
	return ValidDates(r.HorizonEnd(), r.HorizonStart, Date{})
}

// Constraints resolves presets, lifestyle and exam slots for the run.
func (r Request) Constraints() Constraints {
	preset := PresetFor(r.Mode)
	capMinutes := preset.DailyCapMinutes()
	if r.DailyCapHours > 0 {
		capMinutes = hoursToMinutes(r.DailyCapHours)
	}
	commitments := DeriveCommitments(r.Timetable, r.Lifestyle, r.Mode)
	for _, d := range r.Deadlines {
		if d.Fixed() {
			commitments.AddExam(d)
		}
	}
	return Constraints{
		Mode:            preset.Mode,
		Limits:          r.Limits,
		Commitments:     commitments,
		Session:         r.Session.orDefault(),
		DailyCapMinutes: capMinutes,
	}
}

// Assembly is the raw output of the assembler before repair.
type Assembly struct {
	Weeks                 []WeekPlan
	Allocations           []DeadlineAllocation
	InfeasibleDeadlineIDs []string
	Warnings              []string
}

// Assemble allocates every flexible deadline in priority order against one
// shared availability table, so later deadlines only see what earlier ones left.
func Assemble(req Request) Assembly {
	c := req.Constraints()
	dates := req.Dates()
	table := NewAvailabilityTable(dates, c)

	committedMinutes := make(map[string]int)
	horizonEnd := req.HorizonEnd()
	var committed []SessionBlock
	for _, block := range req.Committed {
		if block.Date.Before(req.HorizonStart) || !block.Date.Before(horizonEnd) || block.Minutes() <= 0 {
			continue
		}
		block.Locked = true
		table.Consume(block.Date, block.Interval(), block.IsStudy())
		if block.IsStudy() && block.DeadlineID != "" {
			committedMinutes[block.DeadlineID] += block.Minutes()
		}
		committed = append(committed, block)
	}

	result := Assembly{}
	var study []SessionBlock
	for _, d := range prioritize(req.Deadlines, c.Mode) {
		alloc := DeadlineAllocation{DeadlineID: d.ID, Weak: d.IsWeak()}
		if d.Fixed() {
			alloc.Status = AllocationFixed
			result.Allocations = append(result.Allocations, alloc)
			continue
		}
		alloc.TargetMinutes = d.RequiredMinutes()
		valid := ValidDates(d.DueDate, req.HorizonStart, horizonEnd)
		if len(valid) == 0 {
			alloc.Status = AllocationInfeasible
			alloc.ShortfallMinutes = alloc.TargetMinutes
			result.InfeasibleDeadlineIDs = append(result.InfeasibleDeadlineIDs, d.ID)
			result.Warnings = append(result.Warnings, fmt.Sprintf("deadline %q is due %s and has no study day left", d.Title, d.DueDate))
			result.Allocations = append(result.Allocations, alloc)
			continue
		}

		prior := committedMinutes[d.ID]
		target := alloc.TargetMinutes - prior
		if target < 0 {
			target = 0
		}
		res := Allocate(AllocationRequest{
			DeadlineID:    d.ID,
			Label:         d.Title,
			TargetMinutes: target,
			Dates:         valid,
			Bounds:        c.Session,
		}, table)
		study = append(study, res.Blocks...)

		alloc.AllocatedMinutes = prior + res.AllocatedMinutes
		alloc.ShortfallMinutes = res.ShortfallMinutes
		switch {
		case res.ShortfallMinutes == 0:
			alloc.Status = AllocationFull
		case alloc.AllocatedMinutes > 0:
			alloc.Status = AllocationPartial
			result.Warnings = append(result.Warnings, fmt.Sprintf("deadline %q is short by %.2fh before %s", d.Title, minutesToHours(res.ShortfallMinutes), d.DueDate))
		default:
			alloc.Status = AllocationNone
			result.Warnings = append(result.Warnings, fmt.Sprintf("deadline %q could not be placed before %s", d.Title, d.DueDate))
		}
		result.Allocations = append(result.Allocations, alloc)
	}

	blocks := composeDays(dates, c, committed, study)
	result.Weeks = GroupWeeks(blocks, req.HorizonStart, req.HorizonWeeks)
	return result
}

// prioritize orders deadlines by due date; outside relaxed mode weak subjects
// win ties. Title and id keep the order total.
func prioritize(deadlines []Deadline, mode StudyMode) []Deadline {
	ordered := make([]Deadline, len(deadlines))
	copy(ordered, deadlines)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.DueDate != b.DueDate {
			return a.DueDate.Before(b.DueDate)
		}
		if mode != ModeRelaxed && a.IsWeak() != b.IsWeak() {
			return a.IsWeak()
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
	return ordered
}

// composeDays merges fixed commitments, committed sessions and study blocks per
// date. Lower-ranked blocks that collide with something already kept are left
// out, so the day never contains overlaps.
func composeDays(dates []Date, c Constraints, committed, study []SessionBlock) []SessionBlock {
	byDate := make(map[Date][]SessionBlock)
	for _, b := range committed {
		byDate[b.Date] = append(byDate[b.Date], b)
	}
	for _, b := range study {
		byDate[b.Date] = append(byDate[b.Date], b)
	}

	var out []SessionBlock
	for _, date := range dates {
		var classes, meals, sleep []SessionBlock
		for _, fc := range c.Commitments.On(date) {
			block := SessionBlock{
				Date:     date,
				Start:    clampClock(fc.Start),
				End:      clampClock(fc.End),
				Category: fc.Category(),
				Label:    fc.Label,
			}
			switch block.Category {
			case CategoryMeal:
				meals = append(meals, block)
			case CategorySleep:
				sleep = append(sleep, block)
			default:
				classes = append(classes, block)
			}
		}

		var kept []SessionBlock
		for _, group := range [][]SessionBlock{classes, byDate[date], meals, sleep} {
			for _, block := range group {
				if block.Minutes() <= 0 || overlapsAny(block, kept) {
					continue
				}
				kept = append(kept, block)
			}
		}
		out = append(out, kept...)
	}
	sortBlocks(out)
	return out
}

func overlapsAny(block SessionBlock, kept []SessionBlock) bool {
	for _, k := range kept {
		if k.Date == block.Date && k.Interval().Overlaps(block.Interval()) {
			return true
		}
	}
	return false
}

// GroupWeeks splits blocks into consecutive seven-day weeks starting at start.
// Every day of every week is present, possibly empty.
func GroupWeeks(blocks []SessionBlock, start Date, weeks int) []WeekPlan {
	plans := make([]WeekPlan, 0, weeks)
	for w := 0; w < weeks; w++ {
		first := start.AddDays(7 * w)
		plan := WeekPlan{
			Week:      w + 1,
			StartDate: first,
			EndDate:   first.AddDays(6),
			Days:      make(map[Weekday][]SessionBlock, 7),
		}
		for i := 0; i < 7; i++ {
			plan.Days[first.AddDays(i).Weekday()] = []SessionBlock{}
		}
		plans = append(plans, plan)
	}
	for _, block := range blocks {
		offset := start.DaysUntil(block.Date)
		if offset < 0 || offset >= 7*weeks {
			continue
		}
		plan := plans[offset/7]
		day := block.Date.Weekday()
		plan.Days[day] = append(plan.Days[day], block)
	}
	for _, plan := range plans {
		for day := range plan.Days {
			sortBlocks(plan.Days[day])
		}
	}
	return plans
}
