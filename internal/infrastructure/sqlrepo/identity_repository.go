// Package sqlrepo is the dialect-portable relational backend. It
// targets database/sql through sqlx and relies on Rebind for
// placeholder translation, so the same repository serves both
// postgres (via lib/pq) and mysql deployments. IDs and timestamps are
// generated in Go instead of by the database for the same reason.
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/alaklabs/goacl/internal/domain/entity"
	"github.com/alaklabs/goacl/internal/domain/repository"
)

type identityRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Active       bool      `db:"active"`
	Verified     bool      `db:"verified"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r identityRow) toEntity() *entity.Identity {
	return &entity.Identity{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Active:       r.Active,
		Verified:     r.Verified,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// IdentityRepository is the sqlx variant of the identity storage
// contract.
type IdentityRepository struct {
	db *sqlx.DB
}

func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

const selectIdentity = `SELECT id, username, email, password_hash, active, verified, created_at, updated_at FROM identities`

func (r *IdentityRepository) Create(ctx context.Context, username, email, passwordHash string) (*entity.Identity, error) {
	now := time.Now().UTC()
	row := identityRow{
		ID:           uuid.NewString(),
		Username:     entity.NormalizeKey(username),
		Email:        entity.NormalizeKey(email),
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	q := r.db.Rebind(`
		INSERT INTO identities (id, username, email, password_hash, active, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q,
		row.ID, row.Username, row.Email, row.PasswordHash, row.Active, row.Verified, row.CreatedAt, row.UpdatedAt); err != nil {
		return nil, translateErr(err)
	}
	return row.toEntity(), nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*entity.Identity, error) {
	return r.getBy(ctx, `id = ?`, id)
}

func (r *IdentityRepository) GetByUsername(ctx context.Context, username string) (*entity.Identity, error) {
	return r.getBy(ctx, `username = ?`, entity.NormalizeKey(username))
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	return r.getBy(ctx, `email = ?`, entity.NormalizeKey(email))
}

func (r *IdentityRepository) getBy(ctx context.Context, where string, arg any) (*entity.Identity, error) {
	var row identityRow
	q := r.db.Rebind(selectIdentity + ` WHERE ` + where)
	if err := r.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	return row.toEntity(), nil
}

func (r *IdentityRepository) Update(ctx context.Context, id string, upd entity.IdentityUpdate) (*entity.Identity, error) {
	var email *string
	if upd.Email != nil {
		norm := entity.NormalizeKey(*upd.Email)
		email = &norm
	}
	q := r.db.Rebind(`
		UPDATE identities SET
			email         = COALESCE(?, email),
			password_hash = COALESCE(?, password_hash),
			active        = COALESCE(?, active),
			verified      = COALESCE(?, verified),
			updated_at    = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, email, upd.PasswordHash, upd.Active, upd.Verified, time.Now().UTC(), id)
	if err != nil {
		return nil, translateErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 affected rows for a no-op update too, so
		// confirm absence before declaring NotFound.
		if existing, gerr := r.GetByID(ctx, id); gerr == nil && existing != nil {
			return existing, nil
		}
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *IdentityRepository) ListRolesFor(ctx context.Context, identityID string) ([]entity.Role, error) {
	type roleRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	var rows []roleRow
	q := r.db.Rebind(`
		SELECT r.id, r.name, r.created_at, r.updated_at
		FROM role_assignments ra
		JOIN roles r ON r.id = ra.role_id
		WHERE ra.identity_id = ?
		ORDER BY ra.created_at`)
	if err := r.db.SelectContext(ctx, &rows, q, identityID); err != nil {
		return nil, translateErr(err)
	}

	roles := make([]entity.Role, 0, len(rows))
	for _, row := range rows {
		var perms []string
		pq := r.db.Rebind(`SELECT permission FROM role_permissions WHERE role_id = ? ORDER BY permission`)
		if err := r.db.SelectContext(ctx, &perms, pq, row.ID); err != nil {
			return nil, translateErr(err)
		}
		roles = append(roles, entity.Role{
			ID:          row.ID,
			Name:        row.Name,
			Permissions: perms,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return roles, nil
}

// translateErr maps driver-native failures into the shared taxonomy.
// lib/pq exposes SQLSTATE codes; other drivers are matched on the
// conventional message text. Uniqueness violations become
// ErrAlreadyExists, foreign-key violations (an assignment referencing
// an unknown identity or role) become ErrNotFound.
func translateErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return repository.ErrAlreadyExists
		case "23503":
			return repository.ErrNotFound
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate") {
		return repository.ErrAlreadyExists
	}
	if strings.Contains(msg, "foreign key") {
		return repository.ErrNotFound
	}
	return fmt.Errorf("sqlrepo: %w", err)
}

var _ repository.IdentityRepository = (*IdentityRepository)(nil)
