package models

import "time"

// DeadlineKind distinguishes self-study work from exams pinned to a slot.
type DeadlineKind string

const (
	DeadlineKindFlexible DeadlineKind = "FLEXIBLE"
	DeadlineKindFixed    DeadlineKind = "FIXED"
)

// Deadline is a student task with a due date and an effort estimate.
type Deadline struct {
	ID            string       `db:"id" json:"id"`
	StudentID     string       `db:"student_id" json:"student_id"`
	Title         string       `db:"title" json:"title"`
	DueDate       time.Time    `db:"due_date" json:"due_date"`
	RequiredHours float64      `db:"required_hours" json:"required_hours"`
	Notes         *string      `db:"notes" json:"notes,omitempty"`
	Kind          DeadlineKind `db:"kind" json:"kind"`
	ExamStart     *string      `db:"exam_start" json:"exam_start,omitempty"`
	ExamEnd       *string      `db:"exam_end" json:"exam_end,omitempty"`
	Completed     bool         `db:"completed" json:"completed"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}
