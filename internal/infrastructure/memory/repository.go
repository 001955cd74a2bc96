// Package memory provides the reference repository backend: a
// process-local document store keyed by id with username/email
// indexes. It is the default backend and the one the application
// tests run against.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alaklabs/goacl/internal/domain/entity"
	"github.com/alaklabs/goacl/internal/domain/repository"
)

type assignment struct {
	identityID string
	roleID     string
}

// Repository implements both the identity and role storage contracts.
// A single RWMutex guards the maps; every exported method takes the
// lock for its full body so multi-field updates are atomic.
type Repository struct {
	mu          sync.RWMutex
	identities  map[string]*entity.Identity
	byUsername  map[string]string
	byEmail     map[string]string
	roles       map[string]*entity.Role
	roleByName  map[string]string
	assignments []assignment
	now         func() time.Time
}

func NewRepository() *Repository {
	return &Repository{
		identities: make(map[string]*entity.Identity),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		roles:      make(map[string]*entity.Role),
		roleByName: make(map[string]string),
		now:        time.Now,
	}
}

func (r *Repository) Create(_ context.Context, username, email, passwordHash string) (*entity.Identity, error) {
	uname := entity.NormalizeKey(username)
	mail := entity.NormalizeKey(email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUsername[uname]; ok {
		return nil, repository.ErrAlreadyExists
	}
	if _, ok := r.byEmail[mail]; ok {
		return nil, repository.ErrAlreadyExists
	}
	now := r.now()
	id := &entity.Identity{
		ID:           uuid.NewString(),
		Username:     uname,
		Email:        mail,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.identities[id.ID] = id
	r.byUsername[uname] = id.ID
	r.byEmail[mail] = id.ID
	return cloneIdentity(id), nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneIdentity(r.identities[id]), nil
}

func (r *Repository) GetByUsername(_ context.Context, username string) (*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byUsername[entity.NormalizeKey(username)]; ok {
		return cloneIdentity(r.identities[id]), nil
	}
	return nil, nil
}

func (r *Repository) GetByEmail(_ context.Context, email string) (*entity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byEmail[entity.NormalizeKey(email)]; ok {
		return cloneIdentity(r.identities[id]), nil
	}
	return nil, nil
}

func (r *Repository) Update(_ context.Context, id string, upd entity.IdentityUpdate) (*entity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.identities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Email != nil {
		mail := entity.NormalizeKey(*upd.Email)
		if other, taken := r.byEmail[mail]; taken && other != id {
			return nil, repository.ErrAlreadyExists
		}
		delete(r.byEmail, cur.Email)
		cur.Email = mail
		r.byEmail[mail] = id
	}
	if upd.PasswordHash != nil {
		cur.PasswordHash = *upd.PasswordHash
	}
	if upd.Active != nil {
		cur.Active = *upd.Active
	}
	if upd.Verified != nil {
		cur.Verified = *upd.Verified
	}
	cur.UpdatedAt = r.now()
	return cloneIdentity(cur), nil
}

func (r *Repository) ListRolesFor(_ context.Context, identityID string) ([]entity.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var roles []entity.Role
	for _, a := range r.assignments {
		if a.identityID != identityID {
			continue
		}
		// Assignments may outlive their role; skip the dangling ones.
		if role, ok := r.roles[a.roleID]; ok {
			roles = append(roles, *cloneRole(role))
		}
	}
	return roles, nil
}

func (r *Repository) CreateRole(_ context.Context, name string, permissions []string) (*entity.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roleByName[name]; ok {
		return nil, repository.ErrAlreadyExists
	}
	now := r.now()
	role := &entity.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Permissions: append([]string(nil), permissions...),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.roles[role.ID] = role
	r.roleByName[name] = role.ID
	return cloneRole(role), nil
}

func (r *Repository) GetRoleByName(_ context.Context, name string) (*entity.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.roleByName[name]; ok {
		return cloneRole(r.roles[id]), nil
	}
	return nil, nil
}

func (r *Repository) DeleteRole(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.roleByName, role.Name)
	delete(r.roles, id)
	return nil
}

func (r *Repository) AssignRole(_ context.Context, identityID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.identities[identityID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.roles[roleID]; !ok {
		return repository.ErrNotFound
	}
	for _, a := range r.assignments {
		if a.identityID == identityID && a.roleID == roleID {
			return repository.ErrAlreadyExists
		}
	}
	r.assignments = append(r.assignments, assignment{identityID: identityID, roleID: roleID})
	return nil
}

func (r *Repository) UnassignRole(_ context.Context, identityID, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.assignments {
		if a.identityID == identityID && a.roleID == roleID {
			r.assignments = append(r.assignments[:i], r.assignments[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func cloneIdentity(in *entity.Identity) *entity.Identity {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

func cloneRole(in *entity.Role) *entity.Role {
	if in == nil {
		return nil
	}
	out := *in
	out.Permissions = append([]string(nil), in.Permissions...)
	return &out
}

var (
	_ repository.IdentityRepository = (*Repository)(nil)
	_ repository.RoleRepository     = (*Repository)(nil)
)
