package port

import (
	"context"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

// PolicyCache caches resolved role-permission sets per membership. Every
// mutating catalog, role, assignment, override, or grant operation must fire
// an invalidation before the next evaluation can observe stale state, so
// implementations are expected to be cheap to invalidate and safe to miss.
type PolicyCache interface {
	GetRolePermissions(ctx context.Context, membershipID string) ([]domain.RolePermission, bool, error)
	SetRolePermissions(ctx context.Context, tenantID, membershipID string, rps []domain.RolePermission) error
	InvalidateMembership(ctx context.Context, membershipID string) error
	// InvalidateTenant drops cached state for every membership of the tenant,
	// used when a role or the catalog changes.
	InvalidateTenant(ctx context.Context, tenantID string) error
}
