package port

import (
	"context"
	"time"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

// TenantRepository exposes persistence behavior for tenants. Read methods
// exclude soft-deleted rows by construction.
type TenantRepository interface {
	Create(ctx context.Context, tenant domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	UpdateStatus(ctx context.Context, id string, status domain.TenantStatus) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
	Delete(ctx context.Context, id string) error
}
