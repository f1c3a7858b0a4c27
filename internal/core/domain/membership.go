package domain

import "time"

// Membership links one user to one tenant. The pair (UserID, TenantID) is
// unique; across all memberships of a user at most one may be primary, and
// the primary membership must itself be active.
type Membership struct {
	ID       string
	TenantID string
	UserID   string

	// Role is the legacy coarse label (owner/admin/member/viewer), superseded
	// by member role assignments but still carried for older callers.
	Role      string
	IsActive  bool
	IsPrimary bool

	// DeactivatedByCascade distinguishes a membership suspended by a tenant
	// status cascade from one an admin deactivated directly. Only the former
	// is reactivated when the tenant returns to active.
	DeactivatedByCascade bool

	JoinedAt  time.Time
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
}

// Live reports whether the membership has not been soft deleted.
func (m Membership) Live() bool {
	return m.DeletedAt == nil
}
