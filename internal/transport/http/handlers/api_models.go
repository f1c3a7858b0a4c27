package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/smb-platform-access/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// TenantPayload describes a tenant returned by the API.
type TenantPayload struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Email     *string        `json:"email,omitempty"`
	Website   *string        `json:"website,omitempty"`
	Status    string         `json:"status"`
	Settings  map[string]any `json:"settings,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

func newTenantPayload(t domain.Tenant) TenantPayload {
	return TenantPayload{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Email:     t.Email,
		Website:   t.Website,
		Status:    string(t.Status),
		Settings:  t.Settings,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// TenantCreateRequest defines the payload for creating a tenant.
type TenantCreateRequest struct {
	Name    string  `json:"name" binding:"required"`
	Slug    string  `json:"slug" binding:"required"`
	Email   *string `json:"email" binding:"omitempty,email"`
	Website *string `json:"website"`
	Trial   bool    `json:"trial"`
}

// TenantStatusRequest defines the payload for a tenant status transition.
type TenantStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// MembershipPayload describes a membership returned by the API.
type MembershipPayload struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	UserID    string     `json:"user_id"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"is_active"`
	IsPrimary bool       `json:"is_primary"`
	JoinedAt  time.Time  `json:"joined_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func newMembershipPayload(m domain.Membership) MembershipPayload {
	return MembershipPayload{
		ID:        m.ID,
		TenantID:  m.TenantID,
		UserID:    m.UserID,
		Role:      m.Role,
		IsActive:  m.IsActive,
		IsPrimary: m.IsPrimary,
		JoinedAt:  m.JoinedAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func newMembershipPayloads(items []domain.Membership) []MembershipPayload {
	out := make([]MembershipPayload, 0, len(items))
	for _, m := range items {
		out = append(out, newMembershipPayload(m))
	}
	return out
}

// MembershipCreateRequest defines the payload for adding a member to a tenant.
type MembershipCreateRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

// MembershipRoleRequest defines the payload for updating the coarse role label.
type MembershipRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// PermissionPayload describes a catalog permission returned by the API.
type PermissionPayload struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func newPermissionPayload(p domain.Permission) PermissionPayload {
	return PermissionPayload{
		ID:          p.ID,
		Key:         p.Key,
		Name:        p.Name,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}

// PermissionRegisterRequest defines the payload for registering a catalog permission.
type PermissionRegisterRequest struct {
	Resource    string  `json:"resource" binding:"required"`
	Action      string  `json:"action" binding:"required"`
	Description *string `json:"description"`
}

// PermissionListResponse wraps a page of catalog permissions.
type PermissionListResponse struct {
	Permissions []PermissionPayload `json:"permissions"`
	Total       int                 `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// RolePayload describes a tenant role returned by the API.
type RolePayload struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsSystem    bool      `json:"is_system"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func newRolePayload(r domain.Role) RolePayload {
	return RolePayload{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Key:         r.Key,
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
	}
}

// RoleCreateRequest defines the payload for creating a custom role.
type RoleCreateRequest struct {
	Key         string  `json:"key" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// RolePermissionRequest defines the payload for mapping a permission onto a role.
type RolePermissionRequest struct {
	PermissionID string         `json:"permission_id" binding:"required"`
	Effect       string         `json:"effect" binding:"required"`
	Conditions   map[string]any `json:"conditions"`
}

// RolePermissionPayload describes one role-permission mapping.
type RolePermissionPayload struct {
	RoleID       string         `json:"role_id"`
	PermissionID string         `json:"permission_id"`
	Effect       string         `json:"effect"`
	Conditions   map[string]any `json:"conditions,omitempty"`
}

func newRolePermissionPayloads(items []domain.RolePermission) []RolePermissionPayload {
	out := make([]RolePermissionPayload, 0, len(items))
	for _, rp := range items {
		out = append(out, RolePermissionPayload{
			RoleID:       rp.RoleID,
			PermissionID: rp.PermissionID,
			Effect:       string(rp.Effect),
			Conditions:   rp.Conditions,
		})
	}
	return out
}

// RoleAssignRequest defines the payload for assigning a role to a member.
type RoleAssignRequest struct {
	RoleID string `json:"role_id" binding:"required"`
}

// OverrideRequest defines the payload for setting a member permission override.
type OverrideRequest struct {
	PermissionID string         `json:"permission_id" binding:"required"`
	Effect       string         `json:"effect" binding:"required"`
	Conditions   map[string]any `json:"conditions"`
}

// OverridePayload describes one member permission override.
type OverridePayload struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	MembershipID string         `json:"membership_id"`
	PermissionID string         `json:"permission_id"`
	Effect       string         `json:"effect"`
	Conditions   map[string]any `json:"conditions,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func newOverridePayloads(items []domain.MemberPermissionOverride) []OverridePayload {
	out := make([]OverridePayload, 0, len(items))
	for _, o := range items {
		out = append(out, OverridePayload{
			ID:           o.ID,
			TenantID:     o.TenantID,
			MembershipID: o.MembershipID,
			PermissionID: o.PermissionID,
			Effect:       string(o.Effect),
			Conditions:   o.Conditions,
			CreatedAt:    o.CreatedAt,
		})
	}
	return out
}

// GrantRequest defines the payload for granting object-level access.
type GrantRequest struct {
	MembershipID string         `json:"membership_id" binding:"required"`
	ResourceType string         `json:"resource_type" binding:"required"`
	ResourceID   string         `json:"resource_id" binding:"required"`
	AccessLevel  string         `json:"access_level" binding:"required"`
	Conditions   map[string]any `json:"conditions"`
}

// GrantPayload describes one resource grant.
type GrantPayload struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	MembershipID string         `json:"membership_id"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	AccessLevel  string         `json:"access_level"`
	Conditions   map[string]any `json:"conditions,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func newGrantPayload(g domain.ResourceGrant) GrantPayload {
	return GrantPayload{
		ID:           g.ID,
		TenantID:     g.TenantID,
		MembershipID: g.SubjectID,
		ResourceType: g.ResourceType,
		ResourceID:   g.ResourceID,
		AccessLevel:  string(g.AccessLevel),
		Conditions:   g.Conditions,
		CreatedAt:    g.CreatedAt,
	}
}

// EvaluateRequest defines the payload for an access decision.
type EvaluateRequest struct {
	TenantID   string         `json:"tenant_id" binding:"required"`
	UserID     string         `json:"user_id"`
	Permission string         `json:"permission" binding:"required"`
	Resource   *ResourceRef   `json:"resource"`
	Context    map[string]any `json:"context"`
}

// ResourceRef identifies one resource instance in an evaluate request.
type ResourceRef struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id" binding:"required"`
}

// EvaluateResponse carries the resolved decision.
type EvaluateResponse struct {
	Decision   string `json:"decision"`
	Permission string `json:"permission"`
	TenantID   string `json:"tenant_id"`
	UserID     string `json:"user_id"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// BillingWebhookRequest is the payload pushed by the billing provider when a
// subscription state changes.
type BillingWebhookRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
	Event    string `json:"event" binding:"required"`
}
