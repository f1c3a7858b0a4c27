package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/transport/http/middleware"
	"github.com/arklim/smb-platform-access/internal/usecase"
)

// RoleHandler exposes tenant role and member access endpoints.
type RoleHandler struct {
	roles  *usecase.RoleService
	access *usecase.MemberAccessService
}

func NewRoleHandler(roles *usecase.RoleService, access *usecase.MemberAccessService) *RoleHandler {
	return &RoleHandler{roles: roles, access: access}
}

// RegisterTenantRoutes mounts role endpoints scoped under a tenant.
func (h *RoleHandler) RegisterTenantRoutes(r *gin.RouterGroup) {
	r.POST("/:tenant_id/roles", h.CreateRole)
	r.GET("/:tenant_id/roles", h.ListRoles)
}

// RegisterRoleRoutes mounts endpoints addressed by role id.
func (h *RoleHandler) RegisterRoleRoutes(r *gin.RouterGroup) {
	r.GET("/:role_id", h.GetRole)
	r.DELETE("/:role_id", h.DeleteRole)
	r.GET("/:role_id/permissions", h.ListRolePermissions)
	r.PUT("/:role_id/permissions", h.SetRolePermission)
	r.DELETE("/:role_id/permissions/:permission_id", h.ClearRolePermission)
}

// RegisterMembershipRoutes mounts member access endpoints addressed by membership id.
func (h *RoleHandler) RegisterMembershipRoutes(r *gin.RouterGroup) {
	r.POST("/:membership_id/roles", h.AssignRole)
	r.DELETE("/:membership_id/roles/:role_id", h.RevokeRole)
	r.GET("/:membership_id/overrides", h.ListOverrides)
	r.PUT("/:membership_id/overrides", h.SetOverride)
	r.DELETE("/:membership_id/overrides/:permission_id", h.ClearOverride)
}

var roleErrorCases = []ErrorCase{
	{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
	{Err: usecase.ErrSystemRoleImmutable, Status: http.StatusForbidden, Message: "system roles cannot be modified"},
}

// CreateRole godoc
// @Summary Create a custom role for a tenant
// @Tags Roles
// @Accept json
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param request body RoleCreateRequest true "Role create request"
// @Success 201 {object} RolePayload
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id}/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	var req RoleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	input := usecase.CreateRoleInput{
		Key:  strings.ToLower(strings.TrimSpace(req.Key)),
		Name: strings.TrimSpace(req.Name),
	}
	if req.Description != nil {
		trimmed := strings.TrimSpace(*req.Description)
		if trimmed != "" {
			input.Description = &trimmed
		}
	}

	role, err := h.roles.CreateRole(c.Request.Context(), tenantID, input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleExists, Status: http.StatusConflict, Message: "role key already exists for tenant"},
		}, http.StatusInternalServerError, "failed to create role")
		return
	}

	c.JSON(http.StatusCreated, newRolePayload(*role))
}

// ListRoles godoc
// @Summary List roles of a tenant
// @Tags Roles
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Success 200 {array} RolePayload
// @Router /api/v1/tenants/{tenant_id}/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	roles, err := h.roles.ListRoles(c.Request.Context(), tenantID)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases,
			http.StatusInternalServerError, "failed to list roles")
		return
	}

	payloads := make([]RolePayload, 0, len(roles))
	for _, role := range roles {
		payloads = append(payloads, newRolePayload(role))
	}

	c.JSON(http.StatusOK, payloads)
}

// GetRole godoc
// @Summary Fetch a role
// @Tags Roles
// @Produce json
// @Param role_id path string true "Role ID"
// @Success 200 {object} RolePayload
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/roles/{role_id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	roleID := c.Param("role_id")

	role, err := h.roles.GetRole(c.Request.Context(), roleID)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases,
			http.StatusInternalServerError, "failed to fetch role")
		return
	}

	c.JSON(http.StatusOK, newRolePayload(*role))
}

// DeleteRole godoc
// @Summary Soft delete a custom role
// @Tags Roles
// @Produce json
// @Param role_id path string true "Role ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/roles/{role_id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	roleID := c.Param("role_id")

	if err := h.roles.DeleteRole(c.Request.Context(), roleID); err != nil {
		RespondWithMappedError(c, err, roleErrorCases,
			http.StatusInternalServerError, "failed to delete role")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role deleted"})
}

// ListRolePermissions godoc
// @Summary List a role's permission mappings
// @Tags Roles
// @Produce json
// @Param role_id path string true "Role ID"
// @Success 200 {array} RolePermissionPayload
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/roles/{role_id}/permissions [get]
func (h *RoleHandler) ListRolePermissions(c *gin.Context) {
	roleID := c.Param("role_id")

	mappings, err := h.roles.ListRolePermissions(c.Request.Context(), roleID)
	if err != nil {
		RespondWithMappedError(c, err, roleErrorCases,
			http.StatusInternalServerError, "failed to list role permissions")
		return
	}

	c.JSON(http.StatusOK, newRolePermissionPayloads(mappings))
}

// SetRolePermission godoc
// @Summary Map a permission onto a role with an explicit effect
// @Tags Roles
// @Accept json
// @Produce json
// @Param role_id path string true "Role ID"
// @Param request body RolePermissionRequest true "Role permission request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/roles/{role_id}/permissions [put]
func (h *RoleHandler) SetRolePermission(c *gin.Context) {
	roleID := c.Param("role_id")

	var req RolePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role permission payload"))
		return
	}

	effect := domain.Effect(strings.ToLower(strings.TrimSpace(req.Effect)))

	err := h.roles.SetRolePermission(c.Request.Context(), roleID, req.PermissionID, effect, req.Conditions)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrPermissionNotFound, Status: http.StatusNotFound, Message: "permission not found"},
			{Err: usecase.ErrSystemRoleImmutable, Status: http.StatusForbidden, Message: "system roles cannot be modified"},
			{Err: usecase.ErrInvalidEffect, Status: http.StatusBadRequest, Message: "effect must be allow or deny"},
		}, http.StatusInternalServerError, "failed to set role permission")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role permission set"})
}

// ClearRolePermission godoc
// @Summary Remove a permission mapping from a role
// @Tags Roles
// @Produce json
// @Param role_id path string true "Role ID"
// @Param permission_id path string true "Permission ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/roles/{role_id}/permissions/{permission_id} [delete]
func (h *RoleHandler) ClearRolePermission(c *gin.Context) {
	roleID := c.Param("role_id")
	permissionID := c.Param("permission_id")

	if err := h.roles.ClearRolePermission(c.Request.Context(), roleID, permissionID); err != nil {
		RespondWithMappedError(c, err, roleErrorCases,
			http.StatusInternalServerError, "failed to clear role permission")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role permission cleared"})
}

var memberAccessErrorCases = []ErrorCase{
	{Err: usecase.ErrMembershipNotFound, Status: http.StatusNotFound, Message: "membership not found"},
	{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
	{Err: usecase.ErrPermissionNotFound, Status: http.StatusNotFound, Message: "permission not found"},
	{Err: usecase.ErrTenantMismatch, Status: http.StatusUnprocessableEntity, Message: "role belongs to a different tenant"},
	{Err: usecase.ErrInvalidEffect, Status: http.StatusBadRequest, Message: "effect must be allow or deny"},
}

// AssignRole godoc
// @Summary Assign a role to a member
// @Tags MemberAccess
// @Accept json
// @Produce json
// @Param membership_id path string true "Membership ID"
// @Param request body RoleAssignRequest true "Role assignment request"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/memberships/{membership_id}/roles [post]
func (h *RoleHandler) AssignRole(c *gin.Context) {
	membershipID := c.Param("membership_id")

	actorID, _ := middleware.GetAuthenticatedUserID(c)

	var req RoleAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid assignment payload"))
		return
	}

	if err := h.access.AssignRole(c.Request.Context(), membershipID, req.RoleID, actorID); err != nil {
		RespondWithMappedError(c, err, memberAccessErrorCases,
			http.StatusInternalServerError, "failed to assign role")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role assigned"})
}

// RevokeRole godoc
// @Summary Revoke a role from a member
// @Tags MemberAccess
// @Produce json
// @Param membership_id path string true "Membership ID"
// @Param role_id path string true "Role ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/memberships/{membership_id}/roles/{role_id} [delete]
func (h *RoleHandler) RevokeRole(c *gin.Context) {
	membershipID := c.Param("membership_id")
	roleID := c.Param("role_id")

	if err := h.access.RevokeRole(c.Request.Context(), membershipID, roleID); err != nil {
		RespondWithMappedError(c, err, memberAccessErrorCases,
			http.StatusInternalServerError, "failed to revoke role")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role revoked"})
}

// ListOverrides godoc
// @Summary List a member's permission overrides
// @Tags MemberAccess
// @Produce json
// @Param membership_id path string true "Membership ID"
// @Success 200 {array} OverridePayload
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/memberships/{membership_id}/overrides [get]
func (h *RoleHandler) ListOverrides(c *gin.Context) {
	membershipID := c.Param("membership_id")

	overrides, err := h.access.ListMemberOverrides(c.Request.Context(), membershipID)
	if err != nil {
		RespondWithMappedError(c, err, memberAccessErrorCases,
			http.StatusInternalServerError, "failed to list overrides")
		return
	}

	c.JSON(http.StatusOK, newOverridePayloads(overrides))
}

// SetOverride godoc
// @Summary Set a member permission override
// @Tags MemberAccess
// @Accept json
// @Produce json
// @Param membership_id path string true "Membership ID"
// @Param request body OverrideRequest true "Override request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/memberships/{membership_id}/overrides [put]
func (h *RoleHandler) SetOverride(c *gin.Context) {
	membershipID := c.Param("membership_id")

	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid override payload"))
		return
	}

	effect := domain.Effect(strings.ToLower(strings.TrimSpace(req.Effect)))

	err := h.access.SetMemberOverride(c.Request.Context(), membershipID, req.PermissionID, effect, req.Conditions)
	if err != nil {
		RespondWithMappedError(c, err, memberAccessErrorCases,
			http.StatusInternalServerError, "failed to set override")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "override set"})
}

// ClearOverride godoc
// @Summary Clear a member permission override
// @Tags MemberAccess
// @Produce json
// @Param membership_id path string true "Membership ID"
// @Param permission_id path string true "Permission ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/memberships/{membership_id}/overrides/{permission_id} [delete]
func (h *RoleHandler) ClearOverride(c *gin.Context) {
	membershipID := c.Param("membership_id")
	permissionID := c.Param("permission_id")

	if err := h.access.ClearMemberOverride(c.Request.Context(), membershipID, permissionID); err != nil {
		RespondWithMappedError(c, err, memberAccessErrorCases,
			http.StatusInternalServerError, "failed to clear override")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "override cleared"})
}
