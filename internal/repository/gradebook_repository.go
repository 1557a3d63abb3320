package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grader-api/internal/models"
)

// GradebookRepository wraps the course-wide gradebook tables.
type GradebookRepository struct {
	db     *sqlx.DB
	source string
}

// NewGradebookRepository creates a new gradebook repository. The source tag
// identifies this service on every final-grade write.
func NewGradebookRepository(db *sqlx.DB, source string) *GradebookRepository {
	if source == "" {
		source = "grader-api"
	}
	return &GradebookRepository{db: db, source: source}
}

// GradingInfo loads the gradebook state of the given users for an activity.
// Users without a final-grade row are simply absent from the entry map.
func (r *GradebookRepository) GradingInfo(ctx context.Context, courseID, itemModule, activityID string, userIDs []string) (*models.GradingInfo, error) {
	const itemQuery = `SELECT id FROM grade_items
        WHERE course_id = $1 AND item_type = 'mod' AND item_module = $2 AND activity_id = $3`
	var itemID string
	err := r.db.GetContext(ctx, &itemID, itemQuery, courseID, itemModule, activityID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.GradingInfo{Entries: map[string]models.GradebookEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find grade item: %w", err)
	}

	info := &models.GradingInfo{ItemID: itemID, Entries: make(map[string]models.GradebookEntry, len(userIDs))}
	if len(userIDs) == 0 {
		return info, nil
	}

	placeholders := make([]string, len(userIDs))
	args := make([]interface{}, 0, len(userIDs)+1)
	args = append(args, itemID)
	for i, id := range userIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT user_id, final_grade, overridden, hidden, locked
        FROM grade_finals WHERE item_id = $1 AND user_id IN (%s)`, strings.Join(placeholders, ","))

	var entries []models.GradebookEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("load gradebook entries: %w", err)
	}
	for _, entry := range entries {
		info.Entries[entry.UserID] = entry
	}
	return info, nil
}

// UpdateGradeItem pushes a converted activity grade into the non-overridden
// gradebook entry for the payload's user, mirroring the local record.
func (r *GradebookRepository) UpdateGradeItem(ctx context.Context, itemID string, payload models.GradebookPayload) error {
	const query = `INSERT INTO grade_finals (id, item_id, user_id, final_grade, overridden, hidden, locked, source, user_modified, date_graded)
        VALUES ($1, $2, $3, $4, FALSE, FALSE, FALSE, $5, $6, $7)
        ON CONFLICT (item_id, user_id)
        DO UPDATE SET final_grade = EXCLUDED.final_grade, source = EXCLUDED.source,
            user_modified = EXCLUDED.user_modified, date_graded = EXCLUDED.date_graded
        WHERE grade_finals.overridden = FALSE`
	result, err := r.db.ExecContext(ctx, query, uuid.NewString(), itemID, payload.UserID, payload.RawGrade, r.source, payload.UserModified, payload.DateGraded)
	if err != nil {
		return fmt.Errorf("update grade item: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update grade item: entry for user %s is overridden", payload.UserID)
	}
	return nil
}

// FetchGradeItem returns the gradebook line item for an activity, or nil.
func (r *GradebookRepository) FetchGradeItem(ctx context.Context, courseID, itemModule, activityID string) (*models.GradeItem, error) {
	const query = `SELECT id, course_id, item_type, item_module, activity_id, item_name, id_number, grade_type, grade_max, grade_min, scale_id, created_at
        FROM grade_items WHERE course_id = $1 AND item_type = 'mod' AND item_module = $2 AND activity_id = $3`
	var item models.GradeItem
	err := r.db.GetContext(ctx, &item, query, courseID, itemModule, activityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch grade item: %w", err)
	}
	return &item, nil
}

// CreateGradeItem inserts a new gradebook line item.
func (r *GradebookRepository) CreateGradeItem(ctx context.Context, spec models.GradeItemSpec) (*models.GradeItem, error) {
	item := models.GradeItem{
		ID:         uuid.NewString(),
		CourseID:   spec.CourseID,
		ItemType:   "mod",
		ItemModule: spec.ItemModule,
		ActivityID: spec.ActivityID,
		ItemName:   spec.ItemName,
		IDNumber:   spec.IDNumber,
		GradeType:  spec.GradeType,
		GradeMax:   spec.GradeMax,
		GradeMin:   spec.GradeMin,
		ScaleID:    spec.ScaleID,
		CreatedAt:  time.Now().UTC(),
	}
	const query = `INSERT INTO grade_items (id, course_id, item_type, item_module, activity_id, item_name, id_number, grade_type, grade_max, grade_min, scale_id, created_at)
        VALUES (:id, :course_id, :item_type, :item_module, :activity_id, :item_name, :id_number, :grade_type, :grade_max, :grade_min, :scale_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return nil, fmt.Errorf("create grade item: %w", err)
	}
	return &item, nil
}

// UpdateFinalGrade force-writes the final grade on an item, keeping the
// overridden flag raised. A nil grade clears the entry rather than zeroing it.
func (r *GradebookRepository) UpdateFinalGrade(ctx context.Context, itemID, userID string, grade *float64, graderID string) error {
	const query = `INSERT INTO grade_finals (id, item_id, user_id, final_grade, overridden, hidden, locked, source, user_modified, date_graded)
        VALUES ($1, $2, $3, $4, TRUE, FALSE, FALSE, $5, $6, $7)
        ON CONFLICT (item_id, user_id)
        DO UPDATE SET final_grade = EXCLUDED.final_grade, overridden = TRUE, source = EXCLUDED.source,
            user_modified = EXCLUDED.user_modified, date_graded = EXCLUDED.date_graded`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), itemID, userID, grade, r.source, graderID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update final grade: %w", err)
	}
	return nil
}
