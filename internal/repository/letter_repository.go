package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grader-api/internal/models"
)

// LetterRepository loads course letter schemes and grade scales.
type LetterRepository struct {
	db *sqlx.DB
}

// NewLetterRepository creates a new letter repository.
func NewLetterRepository(db *sqlx.DB) *LetterRepository {
	return &LetterRepository{db: db}
}

// LoadByCourse returns the course letter table sorted descending by threshold.
func (r *LetterRepository) LoadByCourse(ctx context.Context, courseID string) (models.LetterTable, error) {
	const query = `SELECT threshold, letter FROM letter_bands
        WHERE course_id = $1 ORDER BY threshold DESC`
	var table models.LetterTable
	if err := r.db.SelectContext(ctx, &table, query, courseID); err != nil {
		return nil, fmt.Errorf("load letter table: %w", err)
	}
	return table, nil
}

// FindScale returns the ordered labels of a grade scale. The host stores the
// labels in a single comma-separated column.
func (r *LetterRepository) FindScale(ctx context.Context, scaleID int) (*models.Scale, error) {
	const query = `SELECT id, course_id, name, labels, created_at FROM scales WHERE id = $1`
	var row struct {
		ID        int            `db:"id"`
		CourseID  string         `db:"course_id"`
		Name      string         `db:"name"`
		Labels    string         `db:"labels"`
		CreatedAt sql.NullTime   `db:"created_at"`
	}
	if err := r.db.GetContext(ctx, &row, query, scaleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find scale: %w", err)
	}

	scale := &models.Scale{ID: row.ID, CourseID: row.CourseID, Name: row.Name}
	if row.CreatedAt.Valid {
		scale.CreatedAt = row.CreatedAt.Time
	}
	for _, label := range strings.Split(row.Labels, ",") {
		label = strings.TrimSpace(label)
		if label != "" {
			scale.Labels = append(scale.Labels, label)
		}
	}
	return scale, nil
}
