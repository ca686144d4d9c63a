package models

import "time"

// StudySessionSource records which generation path produced a session.
type StudySessionSource string

const (
	StudySessionSourceDeterministic StudySessionSource = "DETERMINISTIC"
	StudySessionSourceProposer      StudySessionSource = "PROPOSER"
	StudySessionSourceManual        StudySessionSource = "MANUAL"
)

// StudySession is one persisted block of a student's schedule. Locked sessions
// were committed by the student and are never replaced by a new run.
type StudySession struct {
	ID           string             `db:"id" json:"id"`
	StudentID    string             `db:"student_id" json:"student_id"`
	SessionDate  time.Time          `db:"session_date" json:"session_date"`
	StartTime    string             `db:"start_time" json:"start_time"`
	EndTime      string             `db:"end_time" json:"end_time"`
	Category     string             `db:"category" json:"category"`
	DeadlineID   *string            `db:"deadline_id" json:"deadline_id,omitempty"`
	Label        string             `db:"label" json:"label"`
	Locked       bool               `db:"locked" json:"locked"`
	Source       StudySessionSource `db:"source" json:"source"`
	GenerationID *string            `db:"generation_id" json:"generation_id,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
}
