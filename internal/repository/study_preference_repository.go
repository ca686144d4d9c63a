package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/study-planner-api/internal/models"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

// StudyPreferenceRepository persists lifestyle and limit preferences.
type StudyPreferenceRepository struct {
	db *sqlx.DB
}

// NewStudyPreferenceRepository constructs the repository.
func NewStudyPreferenceRepository(db *sqlx.DB) *StudyPreferenceRepository {
	return &StudyPreferenceRepository{db: db}
}

// GetByStudent returns stored preferences or ErrNotFound.
func (r *StudyPreferenceRepository) GetByStudent(ctx context.Context, studentID string) (*models.StudyPreference, error) {
	const query = `SELECT student_id, mode, sleep_hours, lunch_minutes, dinner_minutes, daily_cap_hours, min_session_minutes, max_session_minutes, no_study_after_23, no_study_on_sunday, updated_at FROM study_preferences WHERE student_id = $1`
	var pref models.StudyPreference
	if err := r.db.GetContext(ctx, &pref, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get study preference: %w", err)
	}
	return &pref, nil
}

// Upsert creates or updates the preferences of a student.
func (r *StudyPreferenceRepository) Upsert(ctx context.Context, pref *models.StudyPreference) error {
	pref.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO study_preferences (student_id, mode, sleep_hours, lunch_minutes, dinner_minutes, daily_cap_hours, min_session_minutes, max_session_minutes, no_study_after_23, no_study_on_sunday, updated_at)
		VALUES (:student_id, :mode, :sleep_hours, :lunch_minutes, :dinner_minutes, :daily_cap_hours, :min_session_minutes, :max_session_minutes, :no_study_after_23, :no_study_on_sunday, :updated_at)
		ON CONFLICT (student_id) DO UPDATE
		SET mode = EXCLUDED.mode,
		    sleep_hours = EXCLUDED.sleep_hours,
		    lunch_minutes = EXCLUDED.lunch_minutes,
		    dinner_minutes = EXCLUDED.dinner_minutes,
		    daily_cap_hours = EXCLUDED.daily_cap_hours,
		    min_session_minutes = EXCLUDED.min_session_minutes,
		    max_session_minutes = EXCLUDED.max_session_minutes,
		    no_study_after_23 = EXCLUDED.no_study_after_23,
		    no_study_on_sunday = EXCLUDED.no_study_on_sunday,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, pref); err != nil {
		return fmt.Errorf("upsert study preference: %w", err)
	}
	return nil
}
