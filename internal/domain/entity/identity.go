package entity

import (
	"strings"
	"time"
)

// Identity is the aggregate root for the identity domain.
// Passwords are stored as bcrypt hashes in PasswordHash.
//
// Username and Email are case-normalized (lowercased) before any
// store operation; repositories rely on that for uniqueness.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeKey lowercases and trims a username or email for lookup and
// uniqueness comparison.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IdentityUpdate carries a partial update. Nil fields are left untouched
// so a single repository call can apply the whole change atomically.
type IdentityUpdate struct {
	Email        *string
	PasswordHash *string
	Active       *bool
	Verified     *bool
}
