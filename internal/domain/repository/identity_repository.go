package repository

import (
	"context"

	"github.com/alaklabs/goacl/internal/domain/entity"
)

// IdentityRepository defines the storage contract for identities.
//
// Lookups return (nil, nil) when no row matches; ErrNotFound is reserved
// for operations that require the entity to exist (Update). Create fails
// with ErrAlreadyExists when username or email collides after
// case-normalization.
type IdentityRepository interface {
	Create(ctx context.Context, username, email, passwordHash string) (*entity.Identity, error)
	GetByID(ctx context.Context, id string) (*entity.Identity, error)
	GetByUsername(ctx context.Context, username string) (*entity.Identity, error)
	GetByEmail(ctx context.Context, email string) (*entity.Identity, error)
	// Update applies all non-nil fields in one atomic call. Partially
	// applied updates must never become visible to later reads.
	Update(ctx context.Context, id string, upd entity.IdentityUpdate) (*entity.Identity, error)
	// ListRolesFor returns the roles assigned to an identity, in
	// assignment order. Dangling assignments (role deleted out from
	// under the join row) are skipped, not errored.
	ListRolesFor(ctx context.Context, identityID string) ([]entity.Role, error)
}
