package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/grader-api/internal/models"
)

// AdvancedGradingRepository stores advanced grading definitions and instances.
type AdvancedGradingRepository struct {
	db *sqlx.DB
}

// NewAdvancedGradingRepository creates a new advanced grading repository.
func NewAdvancedGradingRepository(db *sqlx.DB) *AdvancedGradingRepository {
	return &AdvancedGradingRepository{db: db}
}

// FindDefinition returns the advanced grading form definition for an
// activity, or nil when no method is configured.
func (r *AdvancedGradingRepository) FindDefinition(ctx context.Context, activityID string) (*models.AdvancedDefinition, error) {
	const query = `SELECT id, activity_id, method, complete, min_score, max_score, created_at, updated_at
        FROM advanced_definitions WHERE activity_id = $1`
	var definition models.AdvancedDefinition
	err := r.db.GetContext(ctx, &definition, query, activityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find advanced definition: %w", err)
	}
	return &definition, nil
}

// FindInstance returns an instance by id, or nil.
func (r *AdvancedGradingRepository) FindInstance(ctx context.Context, id string) (*models.AdvancedInstance, error) {
	const query = `SELECT id, definition_id, item_id, grader_id, status, filling, raw_score, created_at, updated_at
        FROM advanced_instances WHERE id = $1`
	var instance models.AdvancedInstance
	err := r.db.GetContext(ctx, &instance, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find advanced instance: %w", err)
	}
	return &instance, nil
}

// FindCurrentInstance returns the grader's active instance against a grade
// record, or nil when none exists yet.
func (r *AdvancedGradingRepository) FindCurrentInstance(ctx context.Context, definitionID, graderID, itemID string) (*models.AdvancedInstance, error) {
	const query = `SELECT id, definition_id, item_id, grader_id, status, filling, raw_score, created_at, updated_at
        FROM advanced_instances
        WHERE definition_id = $1 AND grader_id = $2 AND item_id = $3
        ORDER BY updated_at DESC LIMIT 1`
	var instance models.AdvancedInstance
	err := r.db.GetContext(ctx, &instance, query, definitionID, graderID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find current advanced instance: %w", err)
	}
	return &instance, nil
}

// CreateInstance inserts a fresh incomplete instance for a grader and record.
func (r *AdvancedGradingRepository) CreateInstance(ctx context.Context, definitionID, graderID, itemID string) (*models.AdvancedInstance, error) {
	now := time.Now().UTC()
	instance := models.AdvancedInstance{
		ID:           uuid.NewString(),
		DefinitionID: definitionID,
		ItemID:       itemID,
		GraderID:     graderID,
		Status:       models.AdvancedStatusIncomplete,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	const query = `INSERT INTO advanced_instances (id, definition_id, item_id, grader_id, status, filling, raw_score, created_at, updated_at)
        VALUES (:id, :definition_id, :item_id, :grader_id, :status, :filling, :raw_score, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instance); err != nil {
		return nil, fmt.Errorf("create advanced instance: %w", err)
	}
	return &instance, nil
}

// SaveInstance stores the submitted filling and computed score, activating
// the instance.
func (r *AdvancedGradingRepository) SaveInstance(ctx context.Context, id string, filling json.RawMessage, rawScore float64, itemID string) error {
	const query = `UPDATE advanced_instances
        SET filling = $2, raw_score = $3, item_id = $4, status = $5, updated_at = $6
        WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, filling, rawScore, itemID, models.AdvancedStatusActive, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save advanced instance: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("save advanced instance: instance %s not found", id)
	}
	return nil
}
