package models

import "time"

// Group is a submission group within a course.
type Group struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Scale is an ordered list of grade labels shared across activities.
// The host stores labels as a single comma-separated column.
type Scale struct {
	ID        int       `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Name      string    `db:"name" json:"name"`
	Labels    []string  `json:"labels"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
