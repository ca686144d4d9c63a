package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// DeadlineRepository reads student deadlines.
type DeadlineRepository struct {
	db *sqlx.DB
}

// NewDeadlineRepository constructs the repository.
func NewDeadlineRepository(db *sqlx.DB) *DeadlineRepository {
	return &DeadlineRepository{db: db}
}

// ListOpenByStudent returns incomplete deadlines due on or after from, earliest first.
func (r *DeadlineRepository) ListOpenByStudent(ctx context.Context, studentID string, from time.Time) ([]models.Deadline, error) {
	const query = `SELECT id, student_id, title, due_date, required_hours, notes, kind, exam_start, exam_end, completed, created_at, updated_at
FROM deadlines WHERE student_id = $1 AND completed = FALSE AND due_date >= $2 ORDER BY due_date ASC, title ASC`
	var deadlines []models.Deadline
	if err := r.db.SelectContext(ctx, &deadlines, query, studentID, from); err != nil {
		return nil, fmt.Errorf("list deadlines: %w", err)
	}
	return deadlines, nil
}
