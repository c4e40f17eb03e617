package model

import "time"

// Member roles as stored in the members.role enum.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// Member mirrors the 'members' table.
type Member struct {
	ID           uint64
	StudentID    string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
