package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alaklabs/goacl/internal/cache"
	"github.com/alaklabs/goacl/internal/domain/repository"
	"github.com/alaklabs/goacl/internal/infrastructure/memory"
	"github.com/alaklabs/goacl/pkg/helpers"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) (*Service, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	resolver := NewPermissionResolver(repo, cache.NewMemoryBackend(), time.Minute, nil)
	jwt := helpers.NewJWTManager(testSecret, "HS256", 15*time.Minute, 24*time.Hour)
	svc := NewService(repo, helpers.NewBcryptHasher(), jwt, resolver, nil)
	return svc, repo
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, "john", "john@x.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if created.PasswordHash == "secret123" {
		t.Fatalf("password stored in the clear")
	}

	u, pair, err := svc.Login(ctx, "john", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.ID != created.ID {
		t.Fatalf("login returned identity %q, want %q", u.ID, created.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair")
	}

	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse issued access token: %v", err)
	}
	if claims.Subject != created.ID {
		t.Fatalf("token subject = %q, want created id %q", claims.Subject, created.ID)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "john", "john@x.com", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "john", "other@x.com", "secret123"); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("duplicate username: got %v, want ErrAlreadyExists", err)
	}
	if _, err := svc.Register(ctx, "johnny", "john@x.com", "secret123"); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("duplicate email: got %v, want ErrAlreadyExists", err)
	}
	// Uniqueness is case-insensitive.
	if _, err := svc.Register(ctx, "JOHN", "j2@x.com", "secret123"); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("case-variant username: got %v, want ErrAlreadyExists", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "john", "john@x.com", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, errUnknownUser := svc.Login(ctx, "nosuchuser", "secret123")
	_, _, errWrongPassword := svc.Login(ctx, "john", "wrongpass")

	if !errors.Is(errUnknownUser, ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v", errUnknownUser)
	}
	if !errors.Is(errWrongPassword, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", errWrongPassword)
	}
	// Identical sentinel, identical message: no username enumeration.
	if errUnknownUser.Error() != errWrongPassword.Error() {
		t.Fatalf("failure modes distinguishable: %q vs %q", errUnknownUser, errWrongPassword)
	}
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "john", "john@x.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := svc.Login(ctx, "john", "secret123"); !errors.Is(err, ErrUserNotActive) {
		t.Fatalf("got %v, want ErrUserNotActive", err)
	}
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "john", "john@x.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, pair, err := svc.Login(ctx, "john", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, _, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := svc.JWT.ParseAccessToken(access)
	if err != nil {
		t.Fatalf("parse refreshed access token: %v", err)
	}
	if claims.Subject != u.ID {
		t.Fatalf("subject = %q, want %q", claims.Subject, u.ID)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "john", "john@x.com", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, pair, err := svc.Login(ctx, "john", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, helpers.ErrInvalidToken) {
		t.Fatalf("access token at refresh site: got %v, want ErrInvalidToken", err)
	}
}

func TestRefreshRejectsDeactivatedSubject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "john", "john@x.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, pair, err := svc.Login(ctx, "john", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, helpers.ErrInvalidToken) {
		t.Fatalf("deactivated subject: got %v, want ErrInvalidToken", err)
	}
}

func TestConcurrentRefreshBothSucceed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "john", "john@x.com", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, pair, err := svc.Login(ctx, "john", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	tokens := make([]string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _, errs[i] = svc.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("concurrent refresh %d: %v", i, errs[i])
		}
		if _, err := svc.JWT.ParseAccessToken(tokens[i]); err != nil {
			t.Fatalf("concurrent refresh %d produced unusable token: %v", i, err)
		}
	}
}

func TestAuthorizeActionEndToEnd(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "john", "john@x.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	role, err := repo.CreateRole(ctx, "member", []string{"profile:read", "posts:*"})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := repo.AssignRole(ctx, u.ID, role.ID); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	_, pair, err := svc.Login(ctx, "john", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token strings")
	}

	if _, err := svc.AuthorizeAction(ctx, pair.AccessToken, "profile:read"); err != nil {
		t.Fatalf("authorize profile:read: %v", err)
	}
	if _, err := svc.AuthorizeAction(ctx, pair.AccessToken, "posts:delete"); err != nil {
		t.Fatalf("authorize posts:delete via wildcard: %v", err)
	}
	if _, err := svc.AuthorizeAction(ctx, pair.AccessToken, "admin:manage"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("ungranted permission: got %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.AuthorizeAction(ctx, pair.RefreshToken, "profile:read"); !errors.Is(err, helpers.ErrInvalidToken) {
		t.Fatalf("refresh token at access site: got %v, want ErrInvalidToken", err)
	}
}

func TestAuthorizeAfterRoleDeletionTreatsDanglingAsNoop(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "john", "john@x.com", "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	role, err := repo.CreateRole(ctx, "member", []string{"profile:read"})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if err := repo.AssignRole(ctx, u.ID, role.ID); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	_, pair, err := svc.Login(ctx, "john", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// Delete the role without unassigning; invalidate the cached set as
	// an administrative caller would.
	if err := repo.DeleteRole(ctx, role.ID); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	if err := svc.Resolver.Invalidate(ctx, u.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	if _, err := svc.AuthorizeAction(ctx, pair.AccessToken, "profile:read"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("dangling assignment must deny, got %v", err)
	}
}
