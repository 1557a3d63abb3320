package models

import (
	"encoding/json"
	"time"
)

// AdvancedStatus tracks the lifecycle of an advanced grading instance.
type AdvancedStatus string

const (
	AdvancedStatusIncomplete AdvancedStatus = "INCOMPLETE"
	AdvancedStatusActive     AdvancedStatus = "ACTIVE"
	AdvancedStatusNeedUpdate AdvancedStatus = "NEEDUPDATE"
)

// AdvancedDefinition is the configured rubric/guide/checklist form for an activity.
// The form is usable only once its status is complete.
type AdvancedDefinition struct {
	ID         string        `db:"id" json:"id"`
	ActivityID string        `db:"activity_id" json:"activity_id"`
	Method     GradingMethod `db:"method" json:"method"`
	Complete   bool          `db:"complete" json:"complete"`
	MinScore   float64       `db:"min_score" json:"min_score"`
	MaxScore   float64       `db:"max_score" json:"max_score"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// AdvancedInstance is one grader's filled advanced grading form against a
// single activity-local grade record. Instances are per user even when the
// grade propagates across a submission group.
type AdvancedInstance struct {
	ID           string          `db:"id" json:"id"`
	DefinitionID string          `db:"definition_id" json:"definition_id"`
	ItemID       string          `db:"item_id" json:"item_id"`
	GraderID     string          `db:"grader_id" json:"grader_id"`
	Status       AdvancedStatus  `db:"status" json:"status"`
	Filling      json.RawMessage `db:"filling" json:"filling,omitempty"`
	RawScore     *float64        `db:"raw_score" json:"raw_score,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
