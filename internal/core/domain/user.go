package domain

import (
	"time"
)

// Role is an operator's permission tier.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleWorker     Role = "worker"
	RoleViewer     Role = "viewer"
)

// IsValid checks if the role is one of the known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleWorker, RoleViewer:
		return true
	}
	return false
}

// User is an authenticated dashboard operator.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Matches reports whether identifier is this user's email or phone.
func (u *User) Matches(identifier string) bool {
	return identifier != "" && (u.Email == identifier || u.Phone == identifier)
}

// UserParams carries the editable fields for user management.
type UserParams struct {
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone,omitempty" validate:"omitempty,e164"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Role  Role   `json:"role" validate:"required,oneof=super_admin admin worker viewer"`
}
