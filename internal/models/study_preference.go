package models

import "time"

// StudyPreference stores the lifestyle and limit settings of a student.
// Zero numeric values fall back to the study mode preset.
type StudyPreference struct {
	StudentID         string    `db:"student_id" json:"student_id"`
	Mode              string    `db:"mode" json:"mode"`
	SleepHours        float64   `db:"sleep_hours" json:"sleep_hours"`
	LunchMinutes      int       `db:"lunch_minutes" json:"lunch_minutes"`
	DinnerMinutes     int       `db:"dinner_minutes" json:"dinner_minutes"`
	DailyCapHours     float64   `db:"daily_cap_hours" json:"daily_cap_hours"`
	MinSessionMinutes int       `db:"min_session_minutes" json:"min_session_minutes"`
	MaxSessionMinutes int       `db:"max_session_minutes" json:"max_session_minutes"`
	NoStudyAfter23    bool      `db:"no_study_after_23" json:"no_study_after_23"`
	NoStudyOnSunday   bool      `db:"no_study_on_sunday" json:"no_study_on_sunday"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}
