package domain

import "time"

// Effect is the outcome a role-permission mapping or override expresses.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Valid reports whether the effect is allow or deny.
func (e Effect) Valid() bool {
	return e == EffectAllow || e == EffectDeny
}

// Conditions is an opaque predicate document attached to a role permission,
// override, or resource grant. The resolver only interprets it through a
// registered condition evaluator.
type Conditions map[string]any

// Permission is a global catalog entry identified by a "resource.action" key.
// Catalog entries are created and retired by system configuration, never by
// tenant admins.
type Permission struct {
	ID          string
	Key         string
	Name        string
	Description *string
	Resource    string
	Action      string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Role is a tenant-scoped named bundle of permission effects. System roles
// are seeded per tenant at creation and cannot be edited or deleted.
type Role struct {
	ID          string
	TenantID    string
	Key         string
	Name        string
	Description *string
	IsSystem    bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
}

// Live reports whether the role has not been soft deleted.
func (r Role) Live() bool {
	return r.DeletedAt == nil
}

// RolePermission links a role with a permission under an explicit effect.
type RolePermission struct {
	RoleID       string
	PermissionID string
	Effect       Effect
	Conditions   Conditions
	CreatedAt    time.Time
}

// MemberRoleAssignment assigns a role to a membership. A revoked assignment
// (RevokedAt set or IsActive false) contributes nothing to resolution.
type MemberRoleAssignment struct {
	ID               string
	TenantID         string
	MembershipID     string
	RoleID           string
	AssignedByUserID *string
	IsActive         bool
	AssignedAt       time.Time
	RevokedAt        *time.Time
}

// MemberPermissionOverride is a per-membership direct effect on one
// permission, superseding role aggregation for that exact permission.
type MemberPermissionOverride struct {
	ID           string
	TenantID     string
	MembershipID string
	PermissionID string
	Effect       Effect
	Conditions   Conditions
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
}

// Live reports whether the override has not been soft deleted.
func (o MemberPermissionOverride) Live() bool {
	return o.DeletedAt == nil
}

// System role keys seeded for every tenant at creation.
const (
	RoleKeyOwner  = "owner"
	RoleKeyAdmin  = "admin"
	RoleKeyMember = "member"
	RoleKeyViewer = "viewer"
)

// SystemRoleKeys lists the role keys seeded at tenant creation, in seeding order.
func SystemRoleKeys() []string {
	return []string{RoleKeyOwner, RoleKeyAdmin, RoleKeyMember, RoleKeyViewer}
}
