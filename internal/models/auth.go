package models

import "github.com/golang-jwt/jwt/v5"

// ViewerClaims is the bearer token payload identifying the caller.
type ViewerClaims struct {
	UserID           string   `json:"user_id"`
	Role             UserRole `json:"role"`
	StudentProfileID string   `json:"student_profile_id,omitempty"`
	TeacherProfileID string   `json:"teacher_profile_id,omitempty"`
	jwt.RegisteredClaims
}

// Viewer is the resolved identity of the current request.
type Viewer struct {
	UserID           string
	StudentProfileID string
	TeacherProfileID string
}

// IsStudent reports whether the viewer can purchase seats.
func (v Viewer) IsStudent() bool { return v.StudentProfileID != "" }

// IsTeacher reports whether the viewer can manage class events.
func (v Viewer) IsTeacher() bool { return v.TeacherProfileID != "" }
