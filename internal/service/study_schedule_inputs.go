package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	"github.com/noah-isme/study-planner-api/internal/planner"
)

func deadlinesFromModels(rows []models.Deadline) ([]planner.Deadline, error) {
	out := make([]planner.Deadline, 0, len(rows))
	for _, row := range rows {
		d := planner.Deadline{
			ID:            row.ID,
			Title:         row.Title,
			DueDate:       planner.DateOf(row.DueDate),
			RequiredHours: row.RequiredHours,
			Kind:          planner.DeadlineKindFlexible,
		}
		if row.Notes != nil {
			d.Notes = *row.Notes
		}
		if row.Kind == models.DeadlineKindFixed {
			d.Kind = planner.DeadlineKindFixed
			slot, err := examSlot(deref(row.ExamStart), deref(row.ExamEnd))
			if err != nil {
				return nil, fmt.Errorf("deadline %s: %w", row.ID, err)
			}
			d.ExamSlot = slot
		}
		out = append(out, d)
	}
	return out, nil
}

func deadlinesFromInput(items []dto.DeadlineInput) ([]planner.Deadline, error) {
	out := make([]planner.Deadline, 0, len(items))
	for _, item := range items {
		due, err := planner.ParseDate(item.DueDate)
		if err != nil {
			return nil, fmt.Errorf("deadline %s: %w", item.ID, err)
		}
		d := planner.Deadline{
			ID:            item.ID,
			Title:         item.Title,
			DueDate:       due,
			RequiredHours: item.RequiredHours,
			Notes:         item.Notes,
			Kind:          planner.DeadlineKind(strings.ToLower(item.Kind)),
		}
		if d.Kind == "" {
			d.Kind = planner.DeadlineKindFlexible
		}
		if d.Fixed() {
			slot, err := examSlot(item.ExamStart, item.ExamEnd)
			if err != nil {
				return nil, fmt.Errorf("deadline %s: %w", item.ID, err)
			}
			d.ExamSlot = slot
		}
		out = append(out, d)
	}
	return out, nil
}

// examSlot is nil when neither bound is given. No commitment is pinned then,
// so the due date stays open to other deadlines.
func examSlot(start, end string) (*planner.Interval, error) {
	if strings.TrimSpace(start) == "" && strings.TrimSpace(end) == "" {
		return nil, nil
	}
	from, err := planner.ParseClock(start)
	if err != nil {
		return nil, err
	}
	to, err := planner.ParseClock(end)
	if err != nil {
		return nil, err
	}
	return &planner.Interval{Start: from, End: to}, nil
}

func timetableFromModels(rows []models.TimetableEntry) ([]planner.FixedCommitment, error) {
	out := make([]planner.FixedCommitment, 0, len(rows))
	for _, row := range rows {
		entry, err := commitment(fmt.Sprintf("%d", row.DayOfWeek), row.StartTime, row.EndTime, row.Label)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func timetableFromInput(items []dto.TimetableEntryInput) ([]planner.FixedCommitment, error) {
	out := make([]planner.FixedCommitment, 0, len(items))
	for _, item := range items {
		entry, err := commitment(item.Day, item.Start, item.End, item.Label)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func commitment(day, start, end, label string) (planner.FixedCommitment, error) {
	weekday, err := planner.ParseWeekday(day)
	if err != nil {
		return planner.FixedCommitment{}, fmt.Errorf("timetable %q: %w", label, err)
	}
	from, err := planner.ParseClock(start)
	if err != nil {
		return planner.FixedCommitment{}, fmt.Errorf("timetable %q: %w", label, err)
	}
	to, err := planner.ParseClock(end)
	if err != nil {
		return planner.FixedCommitment{}, fmt.Errorf("timetable %q: %w", label, err)
	}
	return planner.FixedCommitment{Day: weekday, Start: from, End: to, Label: label, Source: planner.SourceTimetable}, nil
}

// sessionsToBlocks converts persisted sessions into locked blocks.
func sessionsToBlocks(rows []models.StudySession) ([]planner.SessionBlock, error) {
	out := make([]planner.SessionBlock, 0, len(rows))
	for _, row := range rows {
		start, err := planner.ParseClock(row.StartTime)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", row.ID, err)
		}
		end, err := planner.ParseClock(row.EndTime)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", row.ID, err)
		}
		out = append(out, planner.SessionBlock{
			Date:       planner.DateOf(row.SessionDate),
			Start:      start,
			End:        end,
			Category:   planner.Category(row.Category),
			DeadlineID: deref(row.DeadlineID),
			Label:      row.Label,
			Locked:     row.Locked,
		})
	}
	return out, nil
}

// sessionsByDate turns the unlocked blocks of a schedule into rows to persist.
func sessionsByDate(weeks []planner.WeekPlan, generationID string, source planner.Source) map[planner.Date][]models.StudySession {
	origin := models.StudySessionSourceDeterministic
	if source == planner.SourceProposer {
		origin = models.StudySessionSourceProposer
	}
	out := make(map[planner.Date][]models.StudySession)
	for _, week := range weeks {
		for _, block := range week.Blocks() {
			if block.Locked {
				continue
			}
			session := models.StudySession{
				SessionDate:  block.Date.Time(),
				StartTime:    block.Start.String(),
				EndTime:      block.End.String(),
				Category:     string(block.Category),
				Label:        block.Label,
				Source:       origin,
				GenerationID: optional(generationID),
				DeadlineID:   optional(block.DeadlineID),
			}
			out[block.Date] = append(out[block.Date], session)
		}
	}
	return out
}

// applyPreference layers stored preferences onto req; zero values keep the mode preset.
func applyPreference(req *planner.Request, pref *models.StudyPreference) {
	if pref == nil {
		return
	}
	if mode, err := planner.ParseStudyMode(pref.Mode); err == nil && pref.Mode != "" {
		req.Mode = mode
	}
	req.Lifestyle = planner.LifestylePrefs{
		SleepHours:    pref.SleepHours,
		LunchMinutes:  pref.LunchMinutes,
		DinnerMinutes: pref.DinnerMinutes,
	}
	req.Limits = planner.HardLimits{
		NoStudyAfter23:  pref.NoStudyAfter23,
		NoStudyOnSunday: pref.NoStudyOnSunday,
	}
	if pref.DailyCapHours > 0 {
		req.DailyCapHours = pref.DailyCapHours
	}
	if pref.MinSessionMinutes > 0 {
		req.Session.MinMinutes = pref.MinSessionMinutes
	}
	if pref.MaxSessionMinutes > 0 {
		req.Session.MaxMinutes = pref.MaxSessionMinutes
	}
}

// applyOverrides lets a request replace individual stored settings.
func applyOverrides(req *planner.Request, in dto.GenerateStudyScheduleRequest) error {
	if in.Mode != "" {
		mode, err := planner.ParseStudyMode(in.Mode)
		if err != nil {
			return err
		}
		req.Mode = mode
	}
	if in.Lifestyle != nil {
		if in.Lifestyle.SleepHours != nil {
			req.Lifestyle.SleepHours = *in.Lifestyle.SleepHours
		}
		if in.Lifestyle.LunchMinutes != nil {
			req.Lifestyle.LunchMinutes = *in.Lifestyle.LunchMinutes
		}
		if in.Lifestyle.DinnerMinutes != nil {
			req.Lifestyle.DinnerMinutes = *in.Lifestyle.DinnerMinutes
		}
	}
	if in.HardLimits != nil {
		if in.HardLimits.NoStudyAfter23 != nil {
			req.Limits.NoStudyAfter23 = *in.HardLimits.NoStudyAfter23
		}
		if in.HardLimits.NoStudyOnSunday != nil {
			req.Limits.NoStudyOnSunday = *in.HardLimits.NoStudyOnSunday
		}
	}
	if in.DailyCapHours != nil {
		req.DailyCapHours = *in.DailyCapHours
	}
	if in.MinSessionMinutes > 0 {
		req.Session.MinMinutes = in.MinSessionMinutes
	}
	if in.MaxSessionMinutes > 0 {
		req.Session.MaxMinutes = in.MaxSessionMinutes
	}
	return nil
}

// rejectPastDue fails on the first submitted deadline due before start.
func rejectPastDue(deadlines []planner.Deadline, start planner.Date) error {
	for _, d := range deadlines {
		if d.DueDate.Before(start) {
			return fmt.Errorf("deadline %s is due %s, before the horizon start %s", d.ID, d.DueDate, start)
		}
	}
	return nil
}

// dropPastDue removes stored deadlines due before start and returns a warning per dropped deadline.
func dropPastDue(deadlines []planner.Deadline, start planner.Date) ([]planner.Deadline, []string) {
	kept := deadlines[:0:0]
	var warnings []string
	for _, d := range deadlines {
		if d.DueDate.Before(start) {
			warnings = append(warnings, fmt.Sprintf("deadline %q was due %s and is skipped", d.Title, d.DueDate))
			continue
		}
		kept = append(kept, d)
	}
	return kept, warnings
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
