package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alaklabs/goacl/internal/domain/entity"
	"github.com/alaklabs/goacl/internal/domain/repository"
)

// RoleRepository is the Postgres variant of the role storage contract.
type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) CreateRole(ctx context.Context, name string, permissions []string) (*entity.Role, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, translateErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	role := &entity.Role{Name: name, Permissions: append([]string(nil), permissions...)}
	row := tx.QueryRow(ctx, `
		INSERT INTO roles (name) VALUES ($1)
		RETURNING id, created_at, updated_at
	`, name)
	if err := row.Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, translateErr(err)
	}
	for _, p := range role.Permissions {
		if _, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission) VALUES ($1, $2)
		`, role.ID, p); err != nil {
			return nil, translateErr(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, translateErr(err)
	}
	return role, nil
}

func (r *RoleRepository) GetRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	role := &entity.Role{}
	row := r.pool.QueryRow(ctx, `
		SELECT r.id, r.name,
		       COALESCE(array_agg(rp.permission) FILTER (WHERE rp.permission IS NOT NULL), '{}'),
		       r.created_at, r.updated_at
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		WHERE r.name = $1
		GROUP BY r.id
	`, name)
	if err := row.Scan(&role.ID, &role.Name, &role.Permissions, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	return role, nil
}

// DeleteRole removes the role and its permission rows but leaves
// assignments in place; readers skip the dangling join rows.
func (r *RoleRepository) DeleteRole(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return translateErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return translateErr(err)
	}
	res, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return translateErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *RoleRepository) AssignRole(ctx context.Context, identityID, roleID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_assignments (identity_id, role_id) VALUES ($1, $2)
	`, identityID, roleID)
	if err != nil {
		return translateErr(err)
	}
	return nil
}

func (r *RoleRepository) UnassignRole(ctx context.Context, identityID, roleID string) error {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM role_assignments WHERE identity_id = $1 AND role_id = $2
	`, identityID, roleID)
	if err != nil {
		return translateErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.RoleRepository = (*RoleRepository)(nil)
