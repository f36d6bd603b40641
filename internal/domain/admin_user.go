package domain

import "time"

// AdminUser models an admin-portal account: an administrator or a lawyer.
type AdminUser struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
