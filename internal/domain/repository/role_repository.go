package repository

import (
	"context"

	"github.com/alaklabs/goacl/internal/domain/entity"
)

// RoleRepository defines the storage contract for roles and role
// assignments. Administrative endpoints live outside this module; the
// resolver and tests consume these operations as data.
type RoleRepository interface {
	CreateRole(ctx context.Context, name string, permissions []string) (*entity.Role, error)
	GetRoleByName(ctx context.Context, name string) (*entity.Role, error)
	// DeleteRole removes the role only. Assignments referencing it are
	// left dangling on purpose; readers treat them as no-ops.
	DeleteRole(ctx context.Context, id string) error
	AssignRole(ctx context.Context, identityID, roleID string) error
	UnassignRole(ctx context.Context, identityID, roleID string) error
}
