package planner

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// WeakSubjectMultiplier inflates the required hours of weak subjects.
const WeakSubjectMultiplier = 1.3

// weaknessLexicon lists phrases students use to flag a subject they struggle with.
var weaknessLexicon = []string{
	"yếu",
	"kém",
	"mất gốc",
	"chưa vững",
	"không giỏi",
	"weak",
	"struggl",
	"not good at",
	"bad at",
}

// ValidDates returns every date d with start <= d < due and d < end, in order.
// An empty result means the deadline is infeasible.
func ValidDates(due, start, end Date) []Date {
	limit := due
	if !end.IsZero() && end.Before(limit) {
		limit = end
	}
	var dates []Date
	for d := start; d.Before(limit); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// IsWeakSubject matches free-text notes against the weakness lexicon.
func IsWeakSubject(notes string) bool {
	if strings.TrimSpace(notes) == "" {
		return false
	}
	text := foldText(notes)
	for _, term := range weaknessLexicon {
		if strings.Contains(text, foldText(term)) {
			return true
		}
	}
	return false
}

// foldText normalises to NFC and case-folds so composed and decomposed
// Vietnamese input compare equal.
func foldText(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
