package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
)

// TimetableRepository reads the imported weekly timetable.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// ListByStudent returns the timetable ordered by day and start time.
func (r *TimetableRepository) ListByStudent(ctx context.Context, studentID string) ([]models.TimetableEntry, error) {
	const query = `SELECT id, student_id, day_of_week, start_time, end_time, label, created_at
FROM timetable_entries WHERE student_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}
