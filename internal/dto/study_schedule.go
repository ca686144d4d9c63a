package dto

import (
	"time"

	"github.com/noah-isme/study-planner-api/internal/planner"
)

// DeadlineInput overrides the stored deadlines for one generation run.
type DeadlineInput struct {
	ID            string  `json:"id" validate:"required"`
	Title         string  `json:"title" validate:"required,max=200"`
	DueDate       string  `json:"dueDate" validate:"required,datetime=2006-01-02"`
	RequiredHours float64 `json:"requiredHours" validate:"gte=0,lte=500"`
	Notes         string  `json:"notes" validate:"max=2000"`
	Kind          string  `json:"kind" validate:"omitempty,oneof=flexible fixed FLEXIBLE FIXED"`
	ExamStart     string  `json:"examStart" validate:"omitempty,datetime=15:04"`
	ExamEnd       string  `json:"examEnd" validate:"omitempty,datetime=15:04"`
}

// TimetableEntryInput is one weekly class given inline.
type TimetableEntryInput struct {
	Day   string `json:"day" validate:"required"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
	Label string `json:"label" validate:"required,max=120"`
}

// LifestyleInput overrides the stored lifestyle preferences.
type LifestyleInput struct {
	SleepHours    *float64 `json:"sleepHours" validate:"omitempty,gte=0,lt=24"`
	LunchMinutes  *int     `json:"lunchMinutes" validate:"omitempty,gte=0,lte=240"`
	DinnerMinutes *int     `json:"dinnerMinutes" validate:"omitempty,gte=0,lte=240"`
}

// HardLimitsInput overrides the stored hard limits.
type HardLimitsInput struct {
	NoStudyAfter23  *bool `json:"noStudyAfter23"`
	NoStudyOnSunday *bool `json:"noStudyOnSunday"`
}

// GenerateStudyScheduleRequest asks for a schedule over the next horizon weeks.
type GenerateStudyScheduleRequest struct {
	Mode              string                `json:"mode" validate:"omitempty,oneof=relaxed normal sprint"`
	HorizonWeeks      int                   `json:"horizonWeeks" validate:"omitempty,min=1,max=52"`
	HorizonStart      string                `json:"horizonStart" validate:"omitempty,datetime=2006-01-02"`
	Deadlines         []DeadlineInput       `json:"deadlines" validate:"omitempty,dive"`
	Timetable         []TimetableEntryInput `json:"timetable" validate:"omitempty,dive"`
	Lifestyle         *LifestyleInput       `json:"lifestyle"`
	HardLimits        *HardLimitsInput      `json:"hardLimits"`
	DailyCapHours     *float64              `json:"dailyCapHours" validate:"omitempty,gt=0,lte=24"`
	MinSessionMinutes int                   `json:"minSessionMinutes" validate:"omitempty,min=15,max=240"`
	MaxSessionMinutes int                   `json:"maxSessionMinutes" validate:"omitempty,min=15,max=480"`
	UseProposer       bool                  `json:"useProposer"`
	Persist           bool                  `json:"persist"`
}

// StudyScheduleResponse is the outcome of a generation run.
type StudyScheduleResponse struct {
	GenerationID     string    `json:"generationId"`
	GeneratedAt      time.Time `json:"generatedAt"`
	HorizonStart     string    `json:"horizonStart"`
	HorizonEnd       string    `json:"horizonEnd"`
	Mode             string    `json:"mode"`
	Cached           bool      `json:"cached"`
	Persisted        bool      `json:"persisted"`
	ProposerAttempts int       `json:"proposerAttempts"`
	planner.Result
}

// ValidateStudyScheduleRequest submits a candidate schedule for repair.
type ValidateStudyScheduleRequest struct {
	Weeks        []planner.WeekPlan `json:"weeks" validate:"required,min=1"`
	Deadlines    []DeadlineInput    `json:"deadlines" validate:"omitempty,dive"`
	HorizonStart string             `json:"horizonStart" validate:"omitempty,datetime=2006-01-02"`
	Mode         string             `json:"mode" validate:"omitempty,oneof=relaxed normal sprint"`
}

// ValidateStudyScheduleResponse is the repaired schedule.
type ValidateStudyScheduleResponse struct {
	HorizonStart string `json:"horizonStart"`
	planner.RepairResult
}

// StudyScheduleQuery selects persisted sessions by date.
type StudyScheduleQuery struct {
	From   string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// StoredScheduleResponse groups persisted sessions into weeks.
type StoredScheduleResponse struct {
	From  string             `json:"from"`
	To    string             `json:"to"`
	Weeks []planner.WeekPlan `json:"weeks"`
}
