package models

import "time"

// UserRole represents the closed set of roles recognised by the API.
type UserRole string

const (
	// RoleStandard is a branch-assigned report author.
	RoleStandard UserRole = "STANDARD"
	RoleMechanic UserRole = "MECHANIC"
	RoleManager  UserRole = "MANAGER"
	RoleAdmin    UserRole = "ADMIN"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	PhoneNumber  string    `db:"phone_number" json:"phone_number"`
	Role         UserRole  `db:"role" json:"role"`
	Superuser    bool      `db:"superuser" json:"superuser"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserLocationAssignment binds a standard user to a branch or a mechanic to a workshop.
type UserLocationAssignment struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	LocationID string    `db:"location_id" json:"location_id"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
