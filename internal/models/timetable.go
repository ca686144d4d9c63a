package models

import "time"

// TimetableEntry is one imported weekly class.
type TimetableEntry struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Label     string    `db:"label" json:"label"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
