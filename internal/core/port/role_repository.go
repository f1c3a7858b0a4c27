package port

import (
	"context"
	"time"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

// RoleRepository manages tenant-scoped roles and their permission mappings.
// Read methods exclude soft-deleted rows by construction.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) error
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByTenantAndKey(ctx context.Context, tenantID, key string) (*domain.Role, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Role, error)
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error

	// UpsertPermission inserts or replaces the (role, permission) mapping.
	UpsertPermission(ctx context.Context, rp domain.RolePermission) error
	RemovePermission(ctx context.Context, roleID, permissionID string) error
	ListPermissions(ctx context.Context, roleID string) ([]domain.RolePermission, error)
}

// AssignmentRepository manages member role assignments.
type AssignmentRepository interface {
	// Upsert inserts the assignment or reactivates a revoked one.
	Upsert(ctx context.Context, assignment domain.MemberRoleAssignment) error
	Revoke(ctx context.Context, membershipID, roleID string, revokedAt time.Time) error
	// ListActiveByMembership returns assignments with IsActive true and no
	// RevokedAt, joined against live, active roles only.
	ListActiveByMembership(ctx context.Context, membershipID string) ([]domain.MemberRoleAssignment, error)
}

// OverrideRepository manages per-membership permission overrides. Read
// methods exclude soft-deleted rows by construction.
type OverrideRepository interface {
	Upsert(ctx context.Context, override domain.MemberPermissionOverride) error
	Clear(ctx context.Context, membershipID, permissionID string, deletedAt time.Time) error
	GetByMembershipAndPermission(ctx context.Context, membershipID, permissionID string) (*domain.MemberPermissionOverride, error)
	ListByMembership(ctx context.Context, membershipID string) ([]domain.MemberPermissionOverride, error)
}
