package planner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput marks a request rejected before it reaches the engine.
var ErrInvalidInput = errors.New("invalid planner input")

// Source records which path produced a schedule.
type Source string

const (
	SourceDeterministic Source = "deterministic"
	SourceProposer      Source = "proposer"
)

// Result is the outcome of one generation run.
type Result struct {
	Source                Source                `json:"source"`
	Weeks                 []WeekPlan            `json:"weeks"`
	Reconciliation        []HoursReconciliation `json:"reconciliation"`
	Workload              WorkloadSummary       `json:"workload"`
	InfeasibleDeadlineIDs []string              `json:"infeasibleDeadlineIds"`
	Allocations           []DeadlineAllocation  `json:"allocations,omitempty"`
	Warnings              []string              `json:"warnings,omitempty"`
	Removed               []RemovedBlock        `json:"removed,omitempty"`
}

// GenerateSchedule assembles a schedule deterministically and passes it through
// repair so both generation paths leave through the same validator.
func GenerateSchedule(req Request) (Result, error) {
	if err := ValidateRequest(req, 0); err != nil {
		return Result{}, err
	}
	c := req.Constraints()
	assembly := Assemble(req)
	repaired := Repair(assembly.Weeks, req.Deadlines, req.HorizonStart, c)

	return Result{
		Source:                SourceDeterministic,
		Weeks:                 repaired.Weeks,
		Reconciliation:        repaired.Reconciliation,
		Workload:              Summarize(req, c, assembly),
		InfeasibleDeadlineIDs: nonNil(assembly.InfeasibleDeadlineIDs),
		Allocations:           assembly.Allocations,
		Warnings:              assembly.Warnings,
		Removed:               repaired.Removed,
	}, nil
}

// ValidateSchedule repairs a candidate schedule and reconciles it against the deadlines.
func ValidateSchedule(plans []WeekPlan, deadlines []Deadline, horizonStart Date, c Constraints) RepairResult {
	return Repair(plans, deadlines, horizonStart, c)
}

// AcceptProposal validates an externally proposed schedule for req. Locked
// sessions are merged back in ahead of the proposal so they survive repair.
func AcceptProposal(req Request, plans []WeekPlan) (Result, error) {
	if err := ValidateRequest(req, 0); err != nil {
		return Result{}, err
	}
	c := req.Constraints()

	candidate := anchorWeeks(plans, req.HorizonStart)
	if len(req.Committed) > 0 {
		merged := append(weekBlocks(candidate), lockedBlocks(req.Committed)...)
		candidate = GroupWeeks(merged, req.HorizonStart, req.HorizonWeeks)
	}
	repaired := Repair(candidate, req.Deadlines, req.HorizonStart, c)

	assembly := Assembly{}
	horizonEnd := req.HorizonEnd()
	for _, d := range req.Deadlines {
		if !d.Fixed() && len(ValidDates(d.DueDate, req.HorizonStart, horizonEnd)) == 0 {
			assembly.InfeasibleDeadlineIDs = append(assembly.InfeasibleDeadlineIDs, d.ID)
		}
	}
	var warnings []string
	for _, r := range repaired.Reconciliation {
		if r.Status == StatusUnder {
			warnings = append(warnings, fmt.Sprintf("deadline %q is short by %.2fh", r.Title, -r.DeltaHours))
		}
	}

	return Result{
		Source:                SourceProposer,
		Weeks:                 repaired.Weeks,
		Reconciliation:        repaired.Reconciliation,
		Workload:              Summarize(req, c, assembly),
		InfeasibleDeadlineIDs: nonNil(assembly.InfeasibleDeadlineIDs),
		Warnings:              warnings,
		Removed:               repaired.Removed,
	}, nil
}

// StudyBlocks counts the study blocks of a result.
func (r Result) StudyBlocks() int {
	n := 0
	for _, block := range weekBlocks(r.Weeks) {
		if block.IsStudy() {
			n++
		}
	}
	return n
}

// anchorWeeks gives undated weeks a start date counted from the horizon start.
func anchorWeeks(plans []WeekPlan, start Date) []WeekPlan {
	out := make([]WeekPlan, len(plans))
	for i, plan := range plans {
		if plan.Week <= 0 {
			plan.Week = i + 1
		}
		if plan.StartDate.IsZero() {
			plan.StartDate = start.AddDays(7 * (plan.Week - 1))
		}
		out[i] = plan
	}
	return out
}

func weekBlocks(plans []WeekPlan) []SessionBlock {
	var out []SessionBlock
	for _, plan := range plans {
		for day, blocks := range plan.Days {
			slot, ok := slotDate(plan.StartDate, day)
			for _, b := range blocks {
				if b.Date.IsZero() && ok && !plan.StartDate.IsZero() {
					b.Date = slot
				}
				out = append(out, b)
			}
		}
	}
	sortBlocks(out)
	return out
}

func lockedBlocks(blocks []SessionBlock) []SessionBlock {
	out := make([]SessionBlock, len(blocks))
	for i, b := range blocks {
		b.Locked = true
		out[i] = b
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// ValidateRequest rejects malformed input. maxWeeks <= 0 disables the horizon ceiling.
func ValidateRequest(req Request, maxWeeks int) error {
	if req.HorizonStart.IsZero() {
		return invalid("horizon start is required")
	}
	if req.HorizonWeeks < 1 {
		return invalid("horizon must cover at least one week")
	}
	if maxWeeks > 0 && req.HorizonWeeks > maxWeeks {
		return invalid("horizon may not exceed %d weeks", maxWeeks)
	}
	if _, err := ParseStudyMode(string(req.Mode)); err != nil {
		return invalid("%v", err)
	}

	seenIDs := make(map[string]struct{}, len(req.Deadlines))
	seenTitles := make(map[string]struct{}, len(req.Deadlines))
	for _, d := range req.Deadlines {
		if strings.TrimSpace(d.ID) == "" {
			return invalid("deadline id is required")
		}
		if _, dup := seenIDs[d.ID]; dup {
			return invalid("duplicate deadline id %q", d.ID)
		}
		seenIDs[d.ID] = struct{}{}
		if strings.TrimSpace(d.Title) == "" {
			return invalid("deadline %q has no title", d.ID)
		}
		switch d.Kind {
		case "", DeadlineKindFlexible, DeadlineKindFixed:
		default:
			return invalid("deadline %q has unknown kind %q", d.ID, d.Kind)
		}
		if d.DueDate.IsZero() {
			return invalid("deadline %q has no due date", d.ID)
		}
		if d.DueDate.Before(req.HorizonStart) {
			return invalid("deadline %q is due %s, before the horizon start %s", d.ID, d.DueDate, req.HorizonStart)
		}
		if !d.Fixed() && d.RequiredHours <= 0 {
			return invalid("deadline %q needs positive required hours", d.ID)
		}
		if d.ExamSlot != nil && (d.ExamSlot.Empty() || d.ExamSlot.End > minutesPerDay) {
			return invalid("deadline %q has an invalid exam slot", d.ID)
		}
		key := foldText(strings.TrimSpace(d.Title)) + "|" + d.DueDate.String()
		if _, dup := seenTitles[key]; dup {
			return invalid("deadline %q duplicates another title on %s", d.Title, d.DueDate)
		}
		seenTitles[key] = struct{}{}
	}

	for _, entry := range req.Timetable {
		if !entry.Day.Valid() {
			return invalid("timetable entry %q has an invalid day", entry.Label)
		}
		if entry.Start < 0 || entry.End > minutesPerDay || entry.End <= entry.Start {
			return invalid("timetable entry %q must end after it starts", entry.Label)
		}
	}

	if req.Lifestyle.SleepHours < 0 || req.Lifestyle.SleepHours >= 24 {
		return invalid("sleep hours must be between 0 and 24")
	}
	if req.Lifestyle.LunchMinutes < 0 || req.Lifestyle.DinnerMinutes < 0 {
		return invalid("meal durations may not be negative")
	}
	if req.DailyCapHours < 0 || req.DailyCapHours > 24 {
		return invalid("daily cap must be between 0 and 24 hours")
	}
	if req.Session.MinMinutes < 0 || req.Session.MaxMinutes < 0 {
		return invalid("session bounds may not be negative")
	}
	if req.Session.MinMinutes > 0 && req.Session.MaxMinutes > 0 && req.Session.MaxMinutes < req.Session.MinMinutes {
		return invalid("max session must not be shorter than min session")
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidInput}, args...)...)
}
