package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alaklabs/goacl/internal/domain/entity"
	"github.com/alaklabs/goacl/internal/domain/repository"
)

// IdentityRepository is the Postgres variant of the identity storage
// contract, backed by a pgx connection pool.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

const identityColumns = `id, username, email, password_hash, active, verified, created_at, updated_at`

func (r *IdentityRepository) Create(ctx context.Context, username, email, passwordHash string) (*entity.Identity, error) {
	u := &entity.Identity{
		Username:     entity.NormalizeKey(username),
		Email:        entity.NormalizeKey(email),
		PasswordHash: passwordHash,
		Active:       true,
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO identities (username, email, password_hash, active, verified)
		VALUES ($1, $2, $3, TRUE, FALSE)
		RETURNING id, active, verified, created_at, updated_at
	`, u.Username, u.Email, u.PasswordHash)

	if err := row.Scan(&u.ID, &u.Active, &u.Verified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translateErr(err)
	}
	return u, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*entity.Identity, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *IdentityRepository) GetByUsername(ctx context.Context, username string) (*entity.Identity, error) {
	return r.getBy(ctx, `username = $1`, entity.NormalizeKey(username))
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	return r.getBy(ctx, `email = $1`, entity.NormalizeKey(email))
}

func (r *IdentityRepository) getBy(ctx context.Context, where string, arg any) (*entity.Identity, error) {
	u := &entity.Identity{}
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE `+where, arg)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Active, &u.Verified,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	return u, nil
}

// Update applies every non-nil field in a single UPDATE so a cancelled
// request can never leave a half-applied change behind.
func (r *IdentityRepository) Update(ctx context.Context, id string, upd entity.IdentityUpdate) (*entity.Identity, error) {
	var email *string
	if upd.Email != nil {
		norm := entity.NormalizeKey(*upd.Email)
		email = &norm
	}
	u := &entity.Identity{}
	row := r.pool.QueryRow(ctx, `
		UPDATE identities SET
			email         = COALESCE($2, email),
			password_hash = COALESCE($3, password_hash),
			active        = COALESCE($4, active),
			verified      = COALESCE($5, verified),
			updated_at    = now()
		WHERE id = $1
		RETURNING `+identityColumns, id, email, upd.PasswordHash, upd.Active, upd.Verified)

	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Active, &u.Verified,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, translateErr(err)
	}
	return u, nil
}

func (r *IdentityRepository) ListRolesFor(ctx context.Context, identityID string) ([]entity.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name,
		       COALESCE(array_agg(rp.permission) FILTER (WHERE rp.permission IS NOT NULL), '{}'),
		       r.created_at, r.updated_at
		FROM role_assignments ra
		JOIN roles r ON r.id = ra.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		WHERE ra.identity_id = $1
		GROUP BY r.id
		ORDER BY min(ra.created_at)
	`, identityID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var roles []entity.Role
	for rows.Next() {
		var role entity.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Permissions, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, translateErr(err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// translateErr maps pgx-native failures into the shared taxonomy:
// unique violations become ErrAlreadyExists, foreign-key violations
// (an assignment referencing an unknown identity or role) become
// ErrNotFound.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repository.ErrAlreadyExists
		case "23503":
			return repository.ErrNotFound
		}
	}
	return fmt.Errorf("postgres: %w", err)
}

var _ repository.IdentityRepository = (*IdentityRepository)(nil)
