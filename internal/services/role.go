package services

import (
	"context"
	"errors"
	"strings"

	"github.com/adminpanel/apiserver/internal/metrics"
	"github.com/adminpanel/apiserver/internal/store"
	"github.com/adminpanel/apiserver/types"
)

// RoleRepository defines persistence operations for roles.
type RoleRepository interface {
	List(ctx context.Context) ([]types.Role, error)
	GetByName(ctx context.Context, name string) (types.Role, error)
	Create(ctx context.Context, role types.Role) (types.Role, error)
	UpdateWithCascade(ctx context.Context, role types.Role, oldName string, emoji *string) (store.RoleUpdate, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// RoleService encapsulates role use-cases, including the rename cascade to
// users.
type RoleService struct {
	repo RoleRepository
}

func NewRoleService(repo RoleRepository) *RoleService {
	return &RoleService{repo: repo}
}

func (s *RoleService) List(ctx context.Context) ([]types.Role, error) {
	return s.repo.List(ctx)
}

// Create stores role after trimming its name.
func (s *RoleService) Create(ctx context.Context, role types.Role) (types.Role, error) {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return types.Role{}, required("name")
	}
	return s.repo.Create(ctx, role)
}

// Update rewrites the role with the given id and moves users from oldName
// to the new name in the same transaction. A nil emoji keeps the stored one.
func (s *RoleService) Update(ctx context.Context, id int64, role types.Role, oldName string, emoji *string) (store.RoleUpdate, error) {
	role.ID = id
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return store.RoleUpdate{}, required("name")
	}

	result, err := s.repo.UpdateWithCascade(ctx, role, strings.TrimSpace(oldName), emoji)
	if err != nil {
		return store.RoleUpdate{}, err
	}
	metrics.RoleCascadeUsers.Add(float64(result.UsersRenamed))
	return result, nil
}

// ToggleFlag flips one flag of the role called name and persists the whole
// flag set. It returns 0 changes, without error, when no such role exists.
func (s *RoleService) ToggleFlag(ctx context.Context, name, category, flag string) (int64, error) {
	var probe types.Role
	if probe.FlagRef(category, flag) == nil {
		return 0, invalid("flag", "unknown flag "+category+"."+flag)
	}

	role, err := s.repo.GetByName(ctx, strings.TrimSpace(name))
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	ref := role.FlagRef(category, flag)
	*ref = !*ref

	result, err := s.repo.UpdateWithCascade(ctx, role, role.Name, nil)
	if err != nil {
		return 0, err
	}
	return result.Changes, nil
}

// Delete removes the role row only; users keep the stale role name.
func (s *RoleService) Delete(ctx context.Context, id int64) (int64, error) {
	return s.repo.Delete(ctx, id)
}
