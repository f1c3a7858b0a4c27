package domain

import "time"

// TenantStatus enumerates the tenant lifecycle states.
type TenantStatus string

const (
	TenantStatusTrial       TenantStatus = "trial"
	TenantStatusActive      TenantStatus = "active"
	TenantStatusSuspended   TenantStatus = "suspended"
	TenantStatusDeactivated TenantStatus = "deactivated"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantStatusTrial, TenantStatusActive, TenantStatusSuspended, TenantStatusDeactivated:
		return true
	}
	return false
}

// Tenant is an isolated organization-scoped namespace owning its roles,
// memberships, and resources.
type Tenant struct {
	ID        string
	Name      string
	Slug      string
	Email     *string
	Website   *string
	Status    TenantStatus
	Settings  map[string]any
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
}

// Live reports whether the tenant has not been soft deleted.
func (t Tenant) Live() bool {
	return t.DeletedAt == nil
}
