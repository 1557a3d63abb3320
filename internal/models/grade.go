package models

import "time"

// NoGrade is the sentinel stored when a user has not been graded.
const NoGrade = -1

// UserGradeRecord is the activity-local grade row for one user.
// Created lazily on the first grading action, mutated afterwards, never deleted.
type UserGradeRecord struct {
	ID           string    `db:"id" json:"id"`
	ActivityID   string    `db:"activity_id" json:"activity_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Grade        int       `db:"grade" json:"grade"`
	GraderID     string    `db:"grader_id" json:"grader_id"`
	TimeModified time.Time `db:"time_modified" json:"time_modified"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Graded reports whether the record holds a real grade.
func (r *UserGradeRecord) Graded() bool {
	return r != nil && r.Grade != NoGrade
}

// GradebookEntry mirrors one user's grade in the course-wide gradebook.
type GradebookEntry struct {
	UserID     string   `db:"user_id" json:"user_id"`
	Grade      *float64 `db:"final_grade" json:"grade,omitempty"`
	Overridden bool     `db:"overridden" json:"overridden"`
	Hidden     bool     `db:"hidden" json:"hidden"`
	Locked     bool     `db:"locked" json:"locked"`
}

// GradingInfo is the gradebook state for an activity, keyed by user.
type GradingInfo struct {
	ItemID  string
	Entries map[string]GradebookEntry
}

// Entry returns the entry for a user, zero-valued when the gradebook has none.
func (g *GradingInfo) Entry(userID string) GradebookEntry {
	if g == nil || g.Entries == nil {
		return GradebookEntry{UserID: userID}
	}
	entry, ok := g.Entries[userID]
	if !ok {
		return GradebookEntry{UserID: userID}
	}
	return entry
}

// GradebookPayload is the per-user update pushed to a non-overridden grade item.
// RawGrade stays nil when the local grade is the NoGrade sentinel.
type GradebookPayload struct {
	UserID       string     `json:"user_id"`
	RawGrade     *float64   `json:"raw_grade,omitempty"`
	UserModified string     `json:"user_modified"`
	DateGraded   time.Time  `json:"date_graded"`
	DateSubmitted *time.Time `json:"date_submitted,omitempty"`
}

// GradeItemType mirrors the host gradebook item types.
type GradeItemType string

const (
	GradeItemValue GradeItemType = "VALUE"
	GradeItemScale GradeItemType = "SCALE"
	GradeItemText  GradeItemType = "TEXT"
)

// GradeItem is a gradebook line item for an activity.
type GradeItem struct {
	ID         string        `db:"id" json:"id"`
	CourseID   string        `db:"course_id" json:"course_id"`
	ItemType   string        `db:"item_type" json:"item_type"`
	ItemModule string        `db:"item_module" json:"item_module"`
	ActivityID string        `db:"activity_id" json:"activity_id"`
	ItemName   string        `db:"item_name" json:"item_name"`
	IDNumber   string        `db:"id_number" json:"id_number"`
	GradeType  GradeItemType `db:"grade_type" json:"grade_type"`
	GradeMax   int           `db:"grade_max" json:"grade_max"`
	GradeMin   int           `db:"grade_min" json:"grade_min"`
	ScaleID    *int          `db:"scale_id" json:"scale_id,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// GradeItemSpec identifies (and, on creation, describes) a grade item.
type GradeItemSpec struct {
	CourseID   string
	ItemModule string
	ActivityID string
	ItemName   string
	IDNumber   string
	GradeType  GradeItemType
	GradeMax   int
	GradeMin   int
	ScaleID    *int
}

// RedirectInstruction tells the caller where the grading pane navigates next.
type RedirectInstruction struct {
	CourseID     string `json:"course_id"`
	ActivityID   string `json:"activity_id"`
	UserID       string `json:"user_id"`
	NeedsGrading bool   `json:"needs_grading,omitempty"`
}

// ActivityGradeRow is one line of an activity grading report.
type ActivityGradeRow struct {
	UserID        string     `db:"user_id" json:"user_id"`
	UserName      string     `db:"user_name" json:"user_name"`
	Grade         int        `db:"grade" json:"grade"`
	GraderID      string     `db:"grader_id" json:"grader_id"`
	TimeModified  *time.Time `db:"time_modified" json:"time_modified,omitempty"`
	FinalGrade    *float64   `db:"final_grade" json:"final_grade,omitempty"`
	Overridden    bool       `db:"overridden" json:"overridden"`
}
