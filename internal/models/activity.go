package models

import "time"

// ActivityType tags the closed set of gradable activity kinds.
type ActivityType string

const (
	// ActivityAssignment supports team submission, blind marking and advanced grading.
	ActivityAssignment ActivityType = "ASSIGNMENT"
	// ActivityForum grades a user's forum posts; no team submission or blind marking.
	ActivityForum ActivityType = "FORUM"
)

// GradingMethod names the host's advanced grading engines.
type GradingMethod string

const (
	MethodRubric    GradingMethod = "rubric"
	MethodGuide     GradingMethod = "guide"
	MethodChecklist GradingMethod = "checklist"
)

// Activity is one gradable course module instance.
//
// GradeField follows the host convention: a positive value is the numeric
// maximum, a negative value is -scaleID, zero means the activity is not graded.
type Activity struct {
	ID             string         `db:"id" json:"id"`
	CourseID       string         `db:"course_id" json:"course_id"`
	Type           ActivityType   `db:"activity_type" json:"activity_type"`
	Name           string         `db:"name" json:"name"`
	IDNumber       string         `db:"id_number" json:"id_number"`
	GradeField     int            `db:"grade_field" json:"grade_field"`
	TeamSubmission bool           `db:"team_submission" json:"team_submission"`
	BlindMarking   bool           `db:"blind_marking" json:"blind_marking"`
	GradingMethod  *GradingMethod `db:"grading_method" json:"grading_method,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// HasGrading reports whether the activity accepts grades at all.
func (a *Activity) HasGrading() bool {
	return a.GradeField != 0
}

// UsesScale reports whether grading is against an ordered label scale.
func (a *Activity) UsesScale() bool {
	return a.GradeField < 0
}

// ScaleID returns the scale identifier encoded in a negative grade field.
func (a *Activity) ScaleID() int {
	if a.GradeField >= 0 {
		return 0
	}
	return -a.GradeField
}

// GradeKind distinguishes how a raw grade is interpreted.
type GradeKind string

const (
	KindNumeric GradeKind = "NUMERIC"
	KindScale   GradeKind = "SCALE"
	KindNone    GradeKind = "NONE"
)

// GradeScale describes how to interpret a raw grade for one activity.
// Exactly one of Max or Labels is populated, consistent with Kind.
type GradeScale struct {
	Kind    GradeKind `json:"kind"`
	Max     int       `json:"max,omitempty"`
	ScaleID int       `json:"scale_id,omitempty"`
	Labels  []string  `json:"labels,omitempty"`
}

// GradeScale derives the scale descriptor from the activity grade field.
// Scale labels are resolved separately and attached by the caller.
func (a *Activity) GradeScale(labels []string) GradeScale {
	switch {
	case a.GradeField > 0:
		return GradeScale{Kind: KindNumeric, Max: a.GradeField}
	case a.GradeField < 0:
		return GradeScale{Kind: KindScale, ScaleID: -a.GradeField, Labels: labels, Max: len(labels)}
	default:
		return GradeScale{Kind: KindNone}
	}
}
