package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles issued by the auth platform.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleManager    UserRole = "MANAGER"
	RoleTeacher    UserRole = "TEACHER"
)

// Session is the authenticated caller, passed explicitly to everything that
// needs to know who is asking and for which school.
type Session struct {
	UserID   string   `json:"user_id"`
	SchoolID string   `json:"school_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email,omitempty"`
}

// CanAccessSchool reports whether the session may read data of schoolID.
func (s Session) CanAccessSchool(schoolID string) bool {
	if s.Role == RoleSuperAdmin {
		return true
	}
	return schoolID != "" && s.SchoolID == schoolID
}

// SessionClaims is the JWT payload carrying the session.
type SessionClaims struct {
	SchoolID string   `json:"school_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	jwt.RegisteredClaims
}
