package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alaklabs/goacl/internal/cache"
	"github.com/alaklabs/goacl/internal/domain/repository"
)

// PermissionResolver computes the effective permission set for an
// identity and answers point queries against it. The cache is consulted
// first; any miss, staleness, or backend failure is silently repaired by
// recomputing from the repository. A check is read-only: its only side
// effect is the best-effort cache repopulation.
type PermissionResolver struct {
	repo     repository.IdentityRepository
	cache    cache.Backend
	cacheTTL time.Duration
	logger   *logrus.Logger
}

func NewPermissionResolver(repo repository.IdentityRepository, c cache.Backend, cacheTTL time.Duration, logger *logrus.Logger) *PermissionResolver {
	return &PermissionResolver{repo: repo, cache: c, cacheTTL: cacheTTL, logger: logger}
}

func permsKey(identityID string) string {
	return "perms:" + identityID
}

// EffectivePermissions returns the union of permission strings across
// every role assigned to the identity, deduplicated.
func (r *PermissionResolver) EffectivePermissions(ctx context.Context, identityID string) ([]string, error) {
	key := permsKey(identityID)

	if r.cache != nil {
		raw, err := r.cache.Get(ctx, key)
		if err != nil && r.logger != nil {
			r.logger.WithError(err).WithField("identity_id", identityID).
				Debug("permission cache read failed, recomputing")
		}
		if err == nil && raw != nil {
			var perms []string
			if uerr := json.Unmarshal(raw, &perms); uerr == nil {
				return perms, nil
			}
			// Undecodable entries are disposable, same as a miss.
		}
	}

	roles, err := r.repo.ListRolesFor(ctx, identityID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	perms := make([]string, 0)
	for _, role := range roles {
		for _, p := range role.Permissions {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
	}

	if r.cache != nil {
		// Repopulation is best effort; the freshly computed answer is
		// authoritative for this call either way.
		if raw, merr := json.Marshal(perms); merr == nil {
			if serr := r.cache.Set(ctx, key, raw, r.cacheTTL); serr != nil && r.logger != nil {
				r.logger.WithError(serr).WithField("identity_id", identityID).
					Warn("permission cache repopulation failed")
			}
		}
	}
	return perms, nil
}

// HasPermission reports whether the identity holds the requested
// permission, honoring the global wildcard and resource-prefix
// wildcards.
func (r *PermissionResolver) HasPermission(ctx context.Context, identityID, requested string) (bool, error) {
	perms, err := r.EffectivePermissions(ctx, identityID)
	if err != nil {
		return false, err
	}
	for _, granted := range perms {
		if permissionMatches(granted, requested) {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops the cached permission set for an identity. Called
// after role assignment changes; a failed delete is reported so the
// caller can decide whether stale reads are tolerable.
func (r *PermissionResolver) Invalidate(ctx context.Context, identityID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, permsKey(identityID))
}

// permissionMatches implements the flat resource:action scheme: an
// exact match, the global "*", or "resource:*" matching any action on
// the literal resource segment before the first colon. No deeper
// hierarchy, no regex; comparisons are case-sensitive.
func permissionMatches(granted, requested string) bool {
	if granted == "*" || granted == requested {
		return true
	}
	resource, rest, ok := strings.Cut(granted, ":")
	if !ok || rest != "*" || resource == "" {
		return false
	}
	return strings.HasPrefix(requested, resource+":")
}
