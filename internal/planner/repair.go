package planner

import (
	"math"
	"sort"
)

// RemovalReason explains why repair dropped a block.
type RemovalReason string

const (
	ReasonInvalidBlock      RemovalReason = "invalid_block"
	ReasonBeforeHorizon     RemovalReason = "before_horizon"
	ReasonPastDue           RemovalReason = "on_or_after_due_date"
	ReasonCommitmentOverlap RemovalReason = "overlaps_commitment"
	ReasonBlockOverlap      RemovalReason = "overlaps_block"
	ReasonOutsideWindow     RemovalReason = "outside_study_window"
	ReasonSessionTooLong    RemovalReason = "session_too_long"
	ReasonDailyCap          RemovalReason = "daily_cap_exceeded"
)

// metToleranceMinutes is the largest delta still reported as met.
const metToleranceMinutes = 30

// RemovedBlock pairs a dropped block with the rule it broke.
type RemovedBlock struct {
	Block  SessionBlock  `json:"block"`
	Reason RemovalReason `json:"reason"`
}

// RepairResult is the repaired schedule with its reconciliation.
type RepairResult struct {
	Weeks          []WeekPlan            `json:"weeks"`
	Reconciliation []HoursReconciliation `json:"reconciliation"`
	Removed        []RemovedBlock        `json:"removed,omitempty"`
}

// Repair filters a candidate schedule against the constraints. It only ever
// deletes blocks; nothing is moved or added, so running it on its own output
// changes nothing.
func Repair(plans []WeekPlan, deadlines []Deadline, horizonStart Date, c Constraints) RepairResult {
	c.Session = c.Session.orDefault()
	normalized, candidates, removed := flattenPlans(plans, horizonStart)

	byDate := make(map[Date][]SessionBlock)
	var dates []Date
	for _, block := range candidates {
		if _, ok := byDate[block.Date]; !ok {
			dates = append(dates, block.Date)
		}
		byDate[block.Date] = append(byDate[block.Date], block)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var kept []SessionBlock
	for _, date := range dates {
		blocks := byDate[date]
		sort.SliceStable(blocks, func(i, j int) bool {
			if ri, rj := repairRank(blocks[i]), repairRank(blocks[j]); ri != rj {
				return ri < rj
			}
			return blocks[i].Start < blocks[j].Start
		})

		var day []SessionBlock
		used := 0
		commitments := c.Commitments.Intervals(date)
		window := c.window(date)
		for _, block := range blocks {
			if block.IsStudy() {
				if d, ok := AttributeBlock(block, deadlines); ok {
					block.DeadlineID = d.ID
				}
			}
			if reason, drop := checkBlock(block, day, used, deadlines, horizonStart, commitments, window, c); drop {
				removed = append(removed, RemovedBlock{Block: block, Reason: reason})
				continue
			}
			if block.IsStudy() {
				used += block.Minutes()
			}
			day = append(day, block)
		}
		kept = append(kept, day...)
	}
	sortBlocks(kept)

	for i := range normalized {
		normalized[i].Days = emptyDays(normalized[i].StartDate)
	}
	for _, block := range kept {
		for i := range normalized {
			plan := &normalized[i]
			if block.Date.Before(plan.StartDate) || block.Date.After(plan.EndDate) {
				continue
			}
			plan.Days[block.Date.Weekday()] = append(plan.Days[block.Date.Weekday()], block)
			break
		}
	}

	return RepairResult{
		Weeks:          normalized,
		Reconciliation: Reconcile(kept, deadlines),
		Removed:        removed,
	}
}

// repairRank keeps fixed blocks first, then locked study, then the rest.
func repairRank(block SessionBlock) int {
	switch {
	case !block.IsStudy():
		return 0
	case block.Locked:
		return 1
	default:
		return 2
	}
}

// checkBlock applies the drop rules in order and returns the first one broken.
func checkBlock(block SessionBlock, day []SessionBlock, used int, deadlines []Deadline, horizonStart Date, commitments []Interval, window Interval, c Constraints) (RemovalReason, bool) {
	if block.Minutes() <= 0 || !block.Category.Valid() {
		return ReasonInvalidBlock, true
	}
	if block.Date.Before(horizonStart) {
		return ReasonBeforeHorizon, true
	}
	if block.IsStudy() {
		if d, ok := AttributeBlock(block, deadlines); ok && !block.Date.Before(d.DueDate) {
			return ReasonPastDue, true
		}
		for _, iv := range commitments {
			if iv.Overlaps(block.Interval()) {
				return ReasonCommitmentOverlap, true
			}
		}
	}
	if overlapsAny(block, day) {
		return ReasonBlockOverlap, true
	}
	if block.IsStudy() {
		if !window.Contains(block.Interval()) {
			return ReasonOutsideWindow, true
		}
		if block.Minutes() > c.Session.MaxMinutes {
			return ReasonSessionTooLong, true
		}
		if used+block.Minutes() > c.DailyCapMinutes {
			return ReasonDailyCap, true
		}
	}
	return "", false
}

// flattenPlans numbers the weeks, fills missing dates from the day slot and
// drops blocks whose date disagrees with the slot they were filed under.
func flattenPlans(plans []WeekPlan, horizonStart Date) ([]WeekPlan, []SessionBlock, []RemovedBlock) {
	normalized := make([]WeekPlan, len(plans))
	var blocks []SessionBlock
	var removed []RemovedBlock
	for i, plan := range plans {
		if plan.Week <= 0 {
			plan.Week = i + 1
		}
		if plan.StartDate.IsZero() {
			plan.StartDate = horizonStart.AddDays(7 * (plan.Week - 1))
		}
		plan.EndDate = plan.StartDate.AddDays(6)

		days := make([]Weekday, 0, len(plan.Days))
		for day := range plan.Days {
			days = append(days, day)
		}
		sort.Slice(days, func(a, b int) bool { return days[a] < days[b] })

		for _, day := range days {
			slot, ok := slotDate(plan.StartDate, day)
			for _, block := range plan.Days[day] {
				if block.Date.IsZero() && ok {
					block.Date = slot
				}
				if !ok || block.Date != slot {
					removed = append(removed, RemovedBlock{Block: block, Reason: ReasonInvalidBlock})
					continue
				}
				blocks = append(blocks, block)
			}
		}
		plan.Days = nil
		normalized[i] = plan
	}
	return normalized, blocks, removed
}

// slotDate is the date of weekday day within the week starting at start.
func slotDate(start Date, day Weekday) (Date, bool) {
	if !day.Valid() {
		return Date{}, false
	}
	offset := (int(day) - int(start.Weekday()) + 7) % 7
	return start.AddDays(offset), true
}

func emptyDays(start Date) map[Weekday][]SessionBlock {
	days := make(map[Weekday][]SessionBlock, 7)
	for i := 0; i < 7; i++ {
		days[start.AddDays(i).Weekday()] = []SessionBlock{}
	}
	return days
}

// Reconcile compares attributed study minutes with the target of every
// flexible deadline, in deadline order.
func Reconcile(blocks []SessionBlock, deadlines []Deadline) []HoursReconciliation {
	actual := make(map[string]int)
	for _, block := range blocks {
		if !block.IsStudy() {
			continue
		}
		if d, ok := AttributeBlock(block, deadlines); ok {
			actual[d.ID] += block.Minutes()
		}
	}

	out := make([]HoursReconciliation, 0, len(deadlines))
	for _, d := range deadlines {
		if d.Fixed() {
			continue
		}
		target := d.RequiredMinutes()
		delta := actual[d.ID] - target
		status := StatusMet
		switch {
		case delta >= metToleranceMinutes:
			status = StatusOver
		case delta <= -metToleranceMinutes:
			status = StatusUnder
		}
		out = append(out, HoursReconciliation{
			DeadlineID:  d.ID,
			Title:       d.Title,
			TargetHours: roundHours(target),
			ActualHours: roundHours(actual[d.ID]),
			DeltaHours:  roundHours(delta),
			Status:      status,
		})
	}
	return out
}

func roundHours(minutes int) float64 {
	return math.Round(minutesToHours(minutes)*100) / 100
}
