package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GroupRepository resolves submission group membership.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// GetSubmissionGroup returns the id of the user's submission group for a
// course, or empty when the user belongs to none. A user in multiple groups
// lands in the course default group, matching the host behaviour.
func (r *GroupRepository) GetSubmissionGroup(ctx context.Context, courseID, userID string) (string, error) {
	const query = `SELECT gm.group_id FROM group_members gm
        JOIN groups g ON g.id = gm.group_id
        WHERE g.course_id = $1 AND gm.user_id = $2
        ORDER BY g.created_at ASC LIMIT 1`
	var groupID string
	err := r.db.GetContext(ctx, &groupID, query, courseID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get submission group: %w", err)
	}
	return groupID, nil
}

// GetGroupMembers lists the user ids of a group's members.
func (r *GroupRepository) GetGroupMembers(ctx context.Context, groupID string) ([]string, error) {
	const query = `SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY user_id ASC`
	var members []string
	if err := r.db.SelectContext(ctx, &members, query, groupID); err != nil {
		return nil, fmt.Errorf("get group members: %w", err)
	}
	return members, nil
}
