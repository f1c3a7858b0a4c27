package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/repository"
)

var (
	// ErrPermissionExists indicates a permission with the provided key already exists.
	ErrPermissionExists = errors.New("permission already exists")
	// ErrPermissionNotFound is returned when the catalog holds no such permission.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrInvalidPermissionKey indicates the key is not a "resource.action" pair.
	ErrInvalidPermissionKey = errors.New("invalid permission key")
)

// ListPermissionsResult includes catalog entries and pagination metadata.
type ListPermissionsResult struct {
	Permissions []domain.Permission
	Total       int
	Limit       int
	Offset      int
}

// CatalogService manages the global permission catalog. Catalog entries are
// system configuration; tenant admins never mutate them.
type CatalogService struct {
	permissions port.PermissionRepository
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(permissions port.PermissionRepository) *CatalogService {
	return &CatalogService{permissions: permissions}
}

// RegisterPermission adds a catalog entry. The key must be the canonical
// "resource.action" pair for the provided resource and action.
func (s *CatalogService) RegisterPermission(ctx context.Context, resource, action string, description *string) (*domain.Permission, error) {
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	if resource == "" || action == "" || strings.Contains(resource, ".") || strings.Contains(action, ".") {
		return nil, ErrInvalidPermissionKey
	}

	key := fmt.Sprintf("%s.%s", resource, action)

	if existing, err := s.permissions.GetByKey(ctx, key); err == nil && existing != nil {
		return nil, ErrPermissionExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup permission by key: %w", err)
	}

	permission := domain.Permission{
		ID:          uuid.NewString(),
		Key:         key,
		Name:        key,
		Description: description,
		Resource:    resource,
		Action:      action,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.permissions.Create(ctx, permission); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrPermissionExists
		}
		return nil, fmt.Errorf("create permission: %w", err)
	}

	return &permission, nil
}

// RetirePermission deactivates a catalog entry. Retired permissions resolve
// to deny for every membership.
func (s *CatalogService) RetirePermission(ctx context.Context, key string) error {
	permission, err := s.GetPermissionByKey(ctx, key)
	if err != nil {
		return err
	}

	if err := s.permissions.SetActive(ctx, permission.ID, false); err != nil {
		return fmt.Errorf("retire permission: %w", err)
	}
	return nil
}

// GetPermissionByKey fetches one catalog entry by its unique key.
func (s *CatalogService) GetPermissionByKey(ctx context.Context, key string) (*domain.Permission, error) {
	permission, err := s.permissions.GetByKey(ctx, strings.TrimSpace(key))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("lookup permission by key: %w", err)
	}
	return permission, nil
}

// ListPermissions returns catalog entries with pagination metadata.
func (s *CatalogService) ListPermissions(ctx context.Context, filter port.PermissionFilter) (ListPermissionsResult, error) {
	var result ListPermissionsResult

	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	permissions, err := s.permissions.List(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("list permissions: %w", err)
	}

	total, err := s.permissions.Count(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("count permissions: %w", err)
	}

	result.Permissions = permissions
	result.Total = total
	result.Limit = filter.Limit
	result.Offset = filter.Offset
	return result, nil
}
