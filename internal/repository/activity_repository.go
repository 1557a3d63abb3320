package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grader-api/internal/models"
)

// ActivityRepository reads gradable activity definitions.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// FindByID returns one activity definition.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	const query = `SELECT id, course_id, activity_type, name, id_number, grade_field, team_submission, blind_marking, grading_method, created_at, updated_at
        FROM activities WHERE id = $1`
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListGradable returns the graded activities of a course, newest first.
func (r *ActivityRepository) ListGradable(ctx context.Context, courseID string) ([]models.Activity, error) {
	const query = `SELECT id, course_id, activity_type, name, id_number, grade_field, team_submission, blind_marking, grading_method, created_at, updated_at
        FROM activities WHERE course_id = $1 AND grade_field <> 0 ORDER BY created_at DESC`
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, courseID); err != nil {
		return nil, fmt.Errorf("list gradable activities: %w", err)
	}
	return activities, nil
}
