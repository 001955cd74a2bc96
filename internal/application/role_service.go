package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/alaklabs/goacl/internal/domain/entity"
	"github.com/alaklabs/goacl/internal/domain/repository"
)

// RoleService hosts the role administration data operations. There is
// no HTTP surface for these; callers are provisioning code embedding
// the service. Grant changes invalidate the subject's cached permission
// set so the next check recomputes.
type RoleService struct {
	Roles    repository.RoleRepository
	Resolver *PermissionResolver
	Logger   *logrus.Logger
}

func NewRoleService(roles repository.RoleRepository, resolver *PermissionResolver, logger *logrus.Logger) *RoleService {
	return &RoleService{Roles: roles, Resolver: resolver, Logger: logger}
}

func (s *RoleService) CreateRole(ctx context.Context, name string, permissions []string) (*entity.Role, error) {
	return s.Roles.CreateRole(ctx, name, permissions)
}

func (s *RoleService) GetRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	return s.Roles.GetRoleByName(ctx, name)
}

// DeleteRole removes the role definition. Assignments pointing at it
// are left in place; readers skip them. Cached sets that still carry
// the deleted role's grants age out with their TTL, which is why
// callers who need immediate revocation unassign first.
func (s *RoleService) DeleteRole(ctx context.Context, roleID string) error {
	return s.Roles.DeleteRole(ctx, roleID)
}

// Assign grants the role to the identity and drops the identity's
// cached permission set.
func (s *RoleService) Assign(ctx context.Context, identityID, roleID string) error {
	if err := s.Roles.AssignRole(ctx, identityID, roleID); err != nil {
		return err
	}
	return s.invalidate(ctx, identityID)
}

// Unassign revokes the role from the identity. The invalidation is not
// optional here: a stale cached set would keep honoring revoked grants
// until its TTL expires.
func (s *RoleService) Unassign(ctx context.Context, identityID, roleID string) error {
	if err := s.Roles.UnassignRole(ctx, identityID, roleID); err != nil {
		return err
	}
	return s.invalidate(ctx, identityID)
}

func (s *RoleService) invalidate(ctx context.Context, identityID string) error {
	if s.Resolver == nil {
		return nil
	}
	if err := s.Resolver.Invalidate(ctx, identityID); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("identity_id", identityID).
				Error("permission cache invalidation failed")
		}
		return err
	}
	return nil
}
