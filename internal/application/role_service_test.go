package application

import (
	"context"
	"testing"
	"time"

	"github.com/alaklabs/goacl/internal/cache"
	"github.com/alaklabs/goacl/internal/infrastructure/memory"
)

func newRoleFixture(t *testing.T) (*RoleService, *PermissionResolver, string) {
	t.Helper()
	repo := memory.NewRepository()
	resolver := NewPermissionResolver(repo, cache.NewMemoryBackend(), time.Hour, nil)
	svc := NewRoleService(repo, resolver, nil)

	u, err := repo.Create(context.Background(), "john", "john@x.com", "hash")
	if err != nil {
		t.Fatalf("create identity: %v", err)
	}
	return svc, resolver, u.ID
}

func TestAssignInvalidatesCachedDenial(t *testing.T) {
	svc, resolver, id := newRoleFixture(t)
	ctx := context.Background()

	// Prime the cache with the empty set. The TTL is an hour, so only
	// invalidation can change the answer within this test.
	if ok, err := resolver.HasPermission(ctx, id, "posts:read"); err != nil || ok {
		t.Fatalf("before grant: got (%v, %v), want deny", ok, err)
	}

	role, err := svc.CreateRole(ctx, "reader", []string{"posts:read"})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := svc.Assign(ctx, id, role.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if ok, err := resolver.HasPermission(ctx, id, "posts:read"); err != nil || !ok {
		t.Fatalf("after grant: got (%v, %v), want immediate allow", ok, err)
	}
}

func TestUnassignInvalidatesCachedGrant(t *testing.T) {
	svc, resolver, id := newRoleFixture(t)
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "reader", []string{"posts:read"})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := svc.Assign(ctx, id, role.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if ok, err := resolver.HasPermission(ctx, id, "posts:read"); err != nil || !ok {
		t.Fatalf("warmup: got (%v, %v), want allow", ok, err)
	}

	if err := svc.Unassign(ctx, id, role.ID); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if ok, err := resolver.HasPermission(ctx, id, "posts:read"); err != nil || ok {
		t.Fatalf("after revoke: got (%v, %v), want immediate deny", ok, err)
	}
}

func TestGetRoleByNameRoundTrip(t *testing.T) {
	svc, _, _ := newRoleFixture(t)
	ctx := context.Background()

	created, err := svc.CreateRole(ctx, "auditor", []string{"logs:read", "logs:export"})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	got, err := svc.GetRoleByName(ctx, "auditor")
	if err != nil || got == nil || got.ID != created.ID {
		t.Fatalf("GetRoleByName: (%v, %v)", got, err)
	}
	missing, err := svc.GetRoleByName(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("absent role must be (nil, nil), got (%v, %v)", missing, err)
	}
}
