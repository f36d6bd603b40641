package domain

import "time"

// Role enumerates the actors that can act on a request.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleLawyer Role = "LAWYER"
	RoleClient Role = "CLIENT"
	RoleSystem Role = "SYSTEM"
)

// IsStaff reports whether the role belongs to the admin portal.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleLawyer
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	Role        Role
	ID          string
	Email       string
	TrackNumber string
}

// SystemActor identifies background jobs such as the SLA worker.
func SystemActor() Actor {
	return Actor{Role: RoleSystem, ID: "system"}
}

// Token represents issued authentication token metadata.
type Token struct {
	ID        string
	SubjectID string
	Role      Role
	ExpiresAt time.Time
	IssuedAt  time.Time
}
