package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/alaklabs/goacl/internal/domain/entity"
	"github.com/alaklabs/goacl/internal/domain/repository"
)

// RoleRepository is the sqlx variant of the role storage contract.
type RoleRepository struct {
	db *sqlx.DB
}

func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) CreateRole(ctx context.Context, name string, permissions []string) (*entity.Role, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, translateErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	role := &entity.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Permissions: append([]string(nil), permissions...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	q := tx.Rebind(`INSERT INTO roles (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, q, role.ID, role.Name, now, now); err != nil {
		return nil, translateErr(err)
	}
	pq := tx.Rebind(`INSERT INTO role_permissions (role_id, permission) VALUES (?, ?)`)
	for _, p := range role.Permissions {
		if _, err := tx.ExecContext(ctx, pq, role.ID, p); err != nil {
			return nil, translateErr(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, translateErr(err)
	}
	return role, nil
}

func (r *RoleRepository) GetRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	var row struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	q := r.db.Rebind(`SELECT id, name, created_at, updated_at FROM roles WHERE name = ?`)
	if err := r.db.GetContext(ctx, &row, q, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	var perms []string
	pq := r.db.Rebind(`SELECT permission FROM role_permissions WHERE role_id = ? ORDER BY permission`)
	if err := r.db.SelectContext(ctx, &perms, pq, row.ID); err != nil {
		return nil, translateErr(err)
	}
	return &entity.Role{
		ID:          row.ID,
		Name:        row.Name,
		Permissions: perms,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (r *RoleRepository) DeleteRole(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM role_permissions WHERE role_id = ?`), id); err != nil {
		return translateErr(err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM roles WHERE id = ?`), id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit()
}

func (r *RoleRepository) AssignRole(ctx context.Context, identityID, roleID string) error {
	q := r.db.Rebind(`INSERT INTO role_assignments (identity_id, role_id, created_at) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, identityID, roleID, time.Now().UTC()); err != nil {
		return translateErr(err)
	}
	return nil
}

func (r *RoleRepository) UnassignRole(ctx context.Context, identityID, roleID string) error {
	q := r.db.Rebind(`DELETE FROM role_assignments WHERE identity_id = ? AND role_id = ?`)
	res, err := r.db.ExecContext(ctx, q, identityID, roleID)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.RoleRepository = (*RoleRepository)(nil)
