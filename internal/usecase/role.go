package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/repository"
)

var (
	// ErrRoleExists indicates a role with the provided key already exists in the tenant.
	ErrRoleExists = errors.New("role already exists")
	// ErrRoleNotFound is returned when the role does not exist or is soft deleted.
	ErrRoleNotFound = errors.New("role not found")
	// ErrSystemRoleImmutable indicates system roles cannot be edited or deleted.
	ErrSystemRoleImmutable = errors.New("system role cannot be modified")
	// ErrInvalidEffect indicates the effect is neither allow nor deny.
	ErrInvalidEffect = errors.New("invalid permission effect")
)

// CreateRoleInput captures the payload for creating a custom role.
type CreateRoleInput struct {
	Key         string
	Name        string
	Description *string
}

// RoleService manages tenant-scoped roles and their permission mappings.
type RoleService struct {
	roles       port.RoleRepository
	permissions port.PermissionRepository
	cache       port.PolicyCache
}

// NewRoleService constructs a RoleService. The cache may be nil.
func NewRoleService(roles port.RoleRepository, permissions port.PermissionRepository, cache port.PolicyCache) *RoleService {
	return &RoleService{roles: roles, permissions: permissions, cache: cache}
}

// CreateRole provisions a custom role within the tenant.
func (s *RoleService) CreateRole(ctx context.Context, tenantID string, input CreateRoleInput) (*domain.Role, error) {
	key := strings.ToLower(strings.TrimSpace(input.Key))
	if key == "" {
		return nil, fmt.Errorf("role key is required")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}

	if existing, err := s.roles.GetByTenantAndKey(ctx, tenantID, key); err == nil && existing != nil {
		return nil, ErrRoleExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup role by key: %w", err)
	}

	role := domain.Role{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Key:       key,
		Name:      name,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed != "" {
			role.Description = &trimmed
		}
	}

	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrRoleExists
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	return &role, nil
}

// GetRole fetches one live role.
func (s *RoleService) GetRole(ctx context.Context, roleID string) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("lookup role: %w", err)
	}
	return role, nil
}

// ListRoles returns the tenant's live roles.
func (s *RoleService) ListRoles(ctx context.Context, tenantID string) ([]domain.Role, error) {
	return s.roles.ListByTenant(ctx, tenantID)
}

// DeleteRole soft deletes a custom role. System roles are immutable.
func (s *RoleService) DeleteRole(ctx context.Context, roleID string) error {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRoleImmutable
	}

	if err := s.roles.SoftDelete(ctx, roleID, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	return s.invalidateTenant(ctx, role.TenantID)
}

// SetRolePermission upserts the (role, permission) mapping with the given
// effect and optional conditions.
func (s *RoleService) SetRolePermission(ctx context.Context, roleID, permissionID string, effect domain.Effect, conditions domain.Conditions) error {
	if !effect.Valid() {
		return ErrInvalidEffect
	}

	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	if _, err := s.permissions.GetByID(ctx, permissionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPermissionNotFound
		}
		return fmt.Errorf("lookup permission: %w", err)
	}

	rp := domain.RolePermission{
		RoleID:       roleID,
		PermissionID: permissionID,
		Effect:       effect,
		Conditions:   conditions,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.roles.UpsertPermission(ctx, rp); err != nil {
		return fmt.Errorf("set role permission: %w", err)
	}

	return s.invalidateTenant(ctx, role.TenantID)
}

// ClearRolePermission removes the (role, permission) mapping.
func (s *RoleService) ClearRolePermission(ctx context.Context, roleID, permissionID string) error {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	if err := s.roles.RemovePermission(ctx, roleID, permissionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPermissionNotFound
		}
		return fmt.Errorf("clear role permission: %w", err)
	}

	return s.invalidateTenant(ctx, role.TenantID)
}

// ListRolePermissions returns the mappings currently attached to the role.
func (s *RoleService) ListRolePermissions(ctx context.Context, roleID string) ([]domain.RolePermission, error) {
	if _, err := s.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.roles.ListPermissions(ctx, roleID)
}

// invalidateTenant drops cached policy state for every membership of the
// tenant after a role mutation. A failed invalidation fails the mutation:
// otherwise cached entries keep answering with the old mappings until they
// expire.
func (s *RoleService) invalidateTenant(ctx context.Context, tenantID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateTenant(ctx, tenantID); err != nil {
		return fmt.Errorf("invalidate policy cache: %w", err)
	}
	return nil
}
