package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
// Tokens are issued by the host LMS; the grader only validates them.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims represents the JWT payload for host-issued access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// RequestContext carries the grading actor and scope into every core call.
// Nothing in the grading pipeline reads ambient process state.
type RequestContext struct {
	GraderID   string
	CourseID   string
	Role       UserRole
	TeacherCap bool
}

// ContextFromClaims builds a request context for the given course scope.
func ContextFromClaims(claims *JWTClaims, courseID string) RequestContext {
	rc := RequestContext{CourseID: courseID}
	if claims == nil {
		return rc
	}
	rc.GraderID = claims.UserID
	rc.Role = claims.Role
	rc.TeacherCap = claims.Role == RoleTeacher || claims.Role == RoleAdmin
	return rc
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
