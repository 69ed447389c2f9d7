package domain

import "time"

// Role enumerates account roles. Agents and admins are staff.
type Role string

const (
	RoleUser    Role = "user"
	RoleTeacher Role = "teacher"
	RoleAgent   Role = "agent"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTeacher, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role carries elevated visibility and
// modification rights.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleAdmin
}

// Profile is the account record referenced by tickets, messages and
// realtime connections. Role and department govern both access decisions
// and room membership.
type Profile struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         Role
	DepartmentID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated identity used for authorization
// decisions: the profile id plus its role and department.
type Principal struct {
	ID           string
	Role         Role
	DepartmentID *string
}

// Principal derives the authorization view of a profile.
func (p *Profile) Principal() Principal {
	return Principal{ID: p.ID, Role: p.Role, DepartmentID: p.DepartmentID}
}

// IsStaff reports whether the principal holds a staff role.
func (p Principal) IsStaff() bool {
	return p.Role.IsStaff()
}
