package sqlrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/alaklabs/goacl/internal/domain/entity"
	"github.com/alaklabs/goacl/internal/domain/repository"
)

func newMockRepo(t *testing.T) (*IdentityRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// The sqlmock driver has no registered bind type, so Rebind keeps
	// the ? placeholders as written.
	return NewIdentityRepository(sqlx.NewDb(db, "sqlmock")), mock
}

var identityCols = []string{"id", "username", "email", "password_hash", "active", "verified", "created_at", "updated_at"}

func TestGetByUsernameFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM identities WHERE username = ?`)).
		WithArgs("john").
		WillReturnRows(sqlmock.NewRows(identityCols).
			AddRow("id-1", "john", "john@x.com", "hash", true, false, now, now))

	u, err := repo.GetByUsername(context.Background(), "JOHN")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if u == nil || u.ID != "id-1" || u.Username != "john" {
		t.Fatalf("got %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByUsernameMiss(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM identities WHERE username = ?`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(identityCols))

	u, err := repo.GetByUsername(context.Background(), "ghost")
	if err != nil || u != nil {
		t.Fatalf("miss must be (nil, nil), got (%v, %v)", u, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateInsertsNormalizedRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO identities`)).
		WithArgs(sqlmock.AnyArg(), "john", "john@x.com", "hash", true, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u, err := repo.Create(context.Background(), "John", "John@X.com", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Username != "john" || u.Email != "john@x.com" || !u.Active || u.Verified {
		t.Fatalf("got %+v", u)
	}
	if u.ID == "" {
		t.Fatalf("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateTranslatesUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO identities`)).
		WillReturnError(&pq.Error{Code: "23505"})

	if _, err := repo.Create(context.Background(), "john", "john@x.com", "hash"); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
}

func TestCreateTranslatesGenericDuplicateMessage(t *testing.T) {
	repo, mock := newMockRepo(t)

	// MySQL-style error 1062 has no pq type; the message match catches it.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO identities`)).
		WillReturnError(errors.New("Error 1062: Duplicate entry 'john' for key 'username'"))

	if _, err := repo.Create(context.Background(), "john", "john@x.com", "hash"); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE identities SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Zero rows affected triggers an existence probe before NotFound.
	mock.ExpectQuery(regexp.QuoteMeta(`FROM identities WHERE id = ?`)).
		WithArgs("no-such-id").
		WillReturnRows(sqlmock.NewRows(identityCols))

	active := false
	if _, err := repo.Update(context.Background(), "no-such-id", entity.IdentityUpdate{Active: &active}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRolesForAggregatesPermissions(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM role_assignments ra`)).
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).
			AddRow("r1", "reader", now, now).
			AddRow("r2", "writer", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM role_permissions WHERE role_id = ?`)).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"permission"}).AddRow("posts:read"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM role_permissions WHERE role_id = ?`)).
		WithArgs("r2").
		WillReturnRows(sqlmock.NewRows([]string{"permission"}).AddRow("posts:*").AddRow("posts:write"))

	roles, err := repo.ListRolesFor(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("ListRolesFor: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("got %d roles, want 2", len(roles))
	}
	if roles[0].Name != "reader" || len(roles[0].Permissions) != 1 {
		t.Fatalf("first role: %+v", roles[0])
	}
	if roles[1].Name != "writer" || len(roles[1].Permissions) != 2 {
		t.Fatalf("second role: %+v", roles[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
