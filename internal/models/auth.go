package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleFaculty UserRole = "FACULTY"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Email     string   `json:"email"`
	FacultyID string   `json:"faculty_id,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the caller has administrative rights.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// ActsAs reports whether the caller is the given faculty member.
func (c *JWTClaims) ActsAs(facultyID string) bool {
	return c != nil && c.FacultyID != "" && c.FacultyID == facultyID
}
