package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// StudySessionRepository persists scheduled study sessions per day.
type StudySessionRepository struct {
	db *sqlx.DB
}

// NewStudySessionRepository constructs the repository.
func NewStudySessionRepository(db *sqlx.DB) *StudySessionRepository {
	return &StudySessionRepository{db: db}
}

func (r *StudySessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const studySessionColumns = `id, student_id, session_date, start_time, end_time, category, deadline_id, label, locked, source, generation_id, created_at`

// ListByStudentRange returns sessions with from <= session_date < to ordered by date and start.
func (r *StudySessionRepository) ListByStudentRange(ctx context.Context, studentID string, from, to time.Time, lockedOnly bool) ([]models.StudySession, error) {
	query := `SELECT ` + studySessionColumns + `
FROM study_sessions WHERE student_id = $1 AND session_date >= $2 AND session_date < $3`
	if lockedOnly {
		query += ` AND locked = TRUE`
	}
	query += ` ORDER BY session_date ASC, start_time ASC`

	var sessions []models.StudySession
	if err := r.db.SelectContext(ctx, &sessions, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	return sessions, nil
}

// ReplaceDay removes the unlocked sessions of one date and inserts the given ones.
func (r *StudySessionRepository) ReplaceDay(ctx context.Context, exec sqlx.ExtContext, studentID string, date time.Time, sessions []models.StudySession) error {
	target := r.exec(exec)

	const deleteQuery = `DELETE FROM study_sessions WHERE student_id = $1 AND session_date = $2 AND locked = FALSE`
	if _, err := target.ExecContext(ctx, deleteQuery, studentID, date); err != nil {
		return fmt.Errorf("clear study sessions for %s: %w", date.Format("2006-01-02"), err)
	}
	if len(sessions) == 0 {
		return nil
	}

	const insertQuery = `
INSERT INTO study_sessions (id, student_id, session_date, start_time, end_time, category, deadline_id, label, locked, source, generation_id, created_at)
VALUES (:id, :student_id, :session_date, :start_time, :end_time, :category, :deadline_id, :label, :locked, :source, :generation_id, :created_at)`

	now := time.Now().UTC()
	for i := range sessions {
		session := &sessions[i]
		if session.ID == "" {
			session.ID = uuid.NewString()
		}
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		session.StudentID = studentID
		session.SessionDate = date
		if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, session); err != nil {
			return fmt.Errorf("insert study session: %w", err)
		}
	}
	return nil
}
