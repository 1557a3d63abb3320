package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grader-api/internal/models"
)

// ActivityGradeRepository handles the activity-local grade rows.
type ActivityGradeRepository struct {
	db *sqlx.DB
}

// NewActivityGradeRepository creates a new activity grade repository.
func NewActivityGradeRepository(db *sqlx.DB) *ActivityGradeRepository {
	return &ActivityGradeRepository{db: db}
}

// GetUserGrade returns the grade row for (activity, user). When createIfMissing
// is set and no row exists, a fresh ungraded row is inserted and returned;
// otherwise a missing row yields (nil, nil).
func (r *ActivityGradeRepository) GetUserGrade(ctx context.Context, activityID, userID string, createIfMissing bool) (*models.UserGradeRecord, error) {
	const query = `SELECT id, activity_id, user_id, grade, grader_id, time_modified, created_at
        FROM activity_grades WHERE activity_id = $1 AND user_id = $2`
	var record models.UserGradeRecord
	err := r.db.GetContext(ctx, &record, query, activityID, userID)
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user grade: %w", err)
	}
	if !createIfMissing {
		return nil, nil
	}

	record = models.UserGradeRecord{
		ID:           uuid.NewString(),
		ActivityID:   activityID,
		UserID:       userID,
		Grade:        models.NoGrade,
		TimeModified: time.Now().UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	const insert = `INSERT INTO activity_grades (id, activity_id, user_id, grade, grader_id, time_modified, created_at)
        VALUES (:id, :activity_id, :user_id, :grade, :grader_id, :time_modified, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, record); err != nil {
		return nil, fmt.Errorf("create user grade: %w", err)
	}
	return &record, nil
}

// UpdateUserGrade writes back the grade, grader and modification time.
func (r *ActivityGradeRepository) UpdateUserGrade(ctx context.Context, record *models.UserGradeRecord) error {
	const query = `UPDATE activity_grades SET grade = :grade, grader_id = :grader_id, time_modified = :time_modified
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update user grade: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update user grade: record %s not found", record.ID)
	}
	return nil
}

// GradingReport joins local grades with gradebook state for an activity export.
func (r *ActivityGradeRepository) GradingReport(ctx context.Context, activityID string, needsGradingOnly bool) ([]models.ActivityGradeRow, error) {
	query := `SELECT g.user_id, u.full_name AS user_name, g.grade, g.grader_id, g.time_modified,
            gf.final_grade, COALESCE(gf.overridden, FALSE) AS overridden
        FROM activity_grades g
        JOIN users u ON u.id = g.user_id
        LEFT JOIN grade_items gi ON gi.activity_id = g.activity_id
        LEFT JOIN grade_finals gf ON gf.item_id = gi.id AND gf.user_id = g.user_id
        WHERE g.activity_id = $1`
	if needsGradingOnly {
		query += " AND g.grade = -1"
	}
	query += " ORDER BY u.full_name ASC"
	var rows []models.ActivityGradeRow
	if err := r.db.SelectContext(ctx, &rows, query, activityID); err != nil {
		return nil, fmt.Errorf("grading report: %w", err)
	}
	return rows, nil
}

// NextUngraded returns the next user after the given one still holding the
// ungraded sentinel, or empty when none remains.
func (r *ActivityGradeRepository) NextUngraded(ctx context.Context, activityID, afterUserID string) (string, error) {
	const query = `SELECT g.user_id FROM activity_grades g
        JOIN users u ON u.id = g.user_id
        WHERE g.activity_id = $1 AND g.grade = -1 AND g.user_id <> $2
        ORDER BY u.full_name ASC LIMIT 1`
	var userID string
	err := r.db.GetContext(ctx, &userID, query, activityID, afterUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("next ungraded: %w", err)
	}
	return userID, nil
}
