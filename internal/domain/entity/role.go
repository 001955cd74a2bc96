package entity

import "time"

// Role is a named bundle of permission strings, assignable to identities.
// Many-to-many with Identity via role assignments.
type Role struct {
	ID          string
	Name        string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
