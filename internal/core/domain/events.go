package domain

import "time"

// TenantCreatedEvent represents the payload for access.tenant.created messages.
type TenantCreatedEvent struct {
	EventID     string
	TenantID    string
	Slug        string
	Status      string
	OwnerUserID string
	CreatedAt   time.Time
	Metadata    map[string]any
}

// TenantStatusChangedEvent represents the payload for access.tenant.status_changed messages.
type TenantStatusChangedEvent struct {
	EventID             string
	TenantID            string
	OldStatus           string
	NewStatus           string
	MembershipsCascaded int
	ChangedAt           time.Time
	Metadata            map[string]any
}

// PrimaryTenantChangedEvent represents the payload for access.membership.primary_changed messages.
type PrimaryTenantChangedEvent struct {
	EventID   string
	UserID    string
	TenantID  string
	ChangedAt time.Time
	Metadata  map[string]any
}

// RoleChange captures an individual role referenced by an assignment event.
type RoleChange struct {
	RoleID  string
	RoleKey string
}

// RolesAssignedEvent represents the payload for access.member.roles.assigned messages.
type RolesAssignedEvent struct {
	EventID      string
	TenantID     string
	MembershipID string
	RolesAdded   []RoleChange
	AssignedBy   string
	AssignedAt   time.Time
	Metadata     map[string]any
}

// RolesRevokedEvent represents the payload for access.member.roles.revoked messages.
type RolesRevokedEvent struct {
	EventID      string
	TenantID     string
	MembershipID string
	RolesRemoved []RoleChange
	RevokedAt    time.Time
	Metadata     map[string]any
}
