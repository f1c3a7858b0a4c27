package port

import (
	"context"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

// MembershipActivityUpdate captures the flags touched when a membership's
// activity changes, so cascade-driven and admin-driven deactivation stay
// distinguishable.
type MembershipActivityUpdate struct {
	IsActive             bool
	DeactivatedByCascade bool
}

// MembershipRepository exposes persistence behavior for memberships. Read
// methods exclude soft-deleted rows by construction.
type MembershipRepository interface {
	Create(ctx context.Context, membership domain.Membership) error
	GetByID(ctx context.Context, id string) (*domain.Membership, error)
	GetByUserAndTenant(ctx context.Context, userID, tenantID string) (*domain.Membership, error)
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]domain.Membership, error)
	ListByTenant(ctx context.Context, tenantID string, activeOnly bool) ([]domain.Membership, error)
	UpdateRole(ctx context.Context, id string, role string) error
	SetActivity(ctx context.Context, id string, update MembershipActivityUpdate) error
	// CascadeActivity flips activity for every membership of the tenant. When
	// active is false every membership is marked inactive with the cascade
	// flag set; when true only cascade-deactivated memberships are restored.
	CascadeActivity(ctx context.Context, tenantID string, active bool) (int, error)
	// SetPrimary clears the primary flag on every membership of the user and
	// sets it on the given membership, all within the executor's transaction.
	SetPrimary(ctx context.Context, userID, membershipID string) error
	ClearPrimary(ctx context.Context, membershipID string) error
	Delete(ctx context.Context, id string) error
}
