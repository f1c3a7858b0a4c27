package port

import (
	"context"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

// PermissionFilter narrows catalog listings.
type PermissionFilter struct {
	Resource   string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// PermissionRepository manages the global permission catalog.
type PermissionRepository interface {
	Create(ctx context.Context, permission domain.Permission) error
	GetByID(ctx context.Context, id string) (*domain.Permission, error)
	GetByKey(ctx context.Context, key string) (*domain.Permission, error)
	List(ctx context.Context, filter PermissionFilter) ([]domain.Permission, error)
	Count(ctx context.Context, filter PermissionFilter) (int, error)
	SetActive(ctx context.Context, id string, active bool) error
}
