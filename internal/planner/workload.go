package planner

import (
	"fmt"
	"math"
	"strings"
)

// overloadScore is the score from which a plan is reported as overloaded.
const overloadScore = 7

// WorkloadSummary rates the horizon load on a 1 to 10 scale.
type WorkloadSummary struct {
	Score          int     `json:"score"`
	RequiredHours  float64 `json:"requiredHours"`
	AvailableHours float64 `json:"availableHours"`
	Overloaded     bool    `json:"overloaded"`
	Warning        string  `json:"warning,omitempty"`
	Strategy       string  `json:"strategy"`
}

// Summarize compares required study time with the time left after sleep,
// meals and classes over every horizon date.
func Summarize(req Request, c Constraints, assembly Assembly) WorkloadSummary {
	required := 0
	weak := 0
	for _, d := range req.Deadlines {
		if d.Fixed() {
			continue
		}
		required += d.RequiredMinutes()
		if d.IsWeak() {
			weak++
		}
	}

	available := 0
	fullDay := Interval{Start: 0, End: minutesPerDay}
	for _, date := range req.Dates() {
		for _, iv := range FreeIntervals(fullDay, c.Commitments.Intervals(date), nil) {
			available += iv.Minutes()
		}
	}

	score := 10
	if available > 0 {
		score = int(math.Round(10 * float64(required) / float64(available)))
	}
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}

	summary := WorkloadSummary{
		Score:          score,
		RequiredHours:  roundHours(required),
		AvailableHours: roundHours(available),
		Overloaded:     score >= overloadScore,
	}
	if summary.Overloaded {
		summary.Warning = fmt.Sprintf("overloaded: %.1fh of study against %.1fh of free time", summary.RequiredHours, summary.AvailableHours)
	}
	summary.Strategy = strategyNote(c.Mode, weak, assembly)
	return summary
}

func strategyNote(mode StudyMode, weak int, assembly Assembly) string {
	var levers []string
	switch mode {
	case ModeSprint:
		levers = append(levers, "sprint mode shortens sleep and meals to free study time")
	case ModeRelaxed:
		levers = append(levers, "relaxed mode keeps full sleep and a low daily cap")
	default:
		levers = append(levers, "normal mode balances sleep, meals and study")
	}
	if weak > 0 {
		levers = append(levers, fmt.Sprintf("%d weak subject(s) got %.0f%% more hours", weak, (WeakSubjectMultiplier-1)*100))
	}
	under := 0
	for _, a := range assembly.Allocations {
		if a.Status == AllocationPartial || a.Status == AllocationNone {
			under++
		}
	}
	if n := len(assembly.InfeasibleDeadlineIDs); n > 0 {
		levers = append(levers, fmt.Sprintf("%d deadline(s) have no study day left", n))
	}
	if under > 0 {
		levers = append(levers, fmt.Sprintf("%d deadline(s) could not be fully placed", under))
	}
	return strings.Join(levers, "; ")
}
