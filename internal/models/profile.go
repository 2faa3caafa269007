package models

import "time"

// ProfileRole represents the available roles for the RBAC system.
type ProfileRole string

const (
	RoleSuperAdmin ProfileRole = "SUPER_ADMIN"
	RoleAdmin      ProfileRole = "ADMIN"
	RoleLecturer   ProfileRole = "LECTURER"
	RoleStudent    ProfileRole = "STUDENT"
)

// Profile represents an identity record stored in the profiles table.
// Profiles are never hard-deleted; suspension flips is_active instead.
type Profile struct {
	ID           string      `db:"id" json:"id"`
	Email        string      `db:"email" json:"email"`
	PasswordHash string      `db:"password_hash" json:"-"`
	FullName     string      `db:"full_name" json:"full_name"`
	Phone        string      `db:"phone" json:"phone,omitempty"`
	Role         ProfileRole `db:"role" json:"role"`
	IsApproved   bool        `db:"is_approved" json:"is_approved"`
	IsActive     bool        `db:"is_active" json:"is_active"`
	LastLogin    *time.Time  `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// ProfileFilter captures filtering criteria for listing profiles.
type ProfileFilter struct {
	Role       *ProfileRole
	IsApproved *bool
	IsActive   *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
