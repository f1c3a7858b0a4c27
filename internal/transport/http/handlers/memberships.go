package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/smb-platform-access/internal/transport/http/middleware"
	"github.com/arklim/smb-platform-access/internal/usecase"
)

// MembershipHandler exposes tenant membership endpoints.
type MembershipHandler struct {
	memberships *usecase.MembershipService
}

func NewMembershipHandler(memberships *usecase.MembershipService) *MembershipHandler {
	return &MembershipHandler{memberships: memberships}
}

// RegisterTenantRoutes mounts membership endpoints scoped under a tenant.
func (h *MembershipHandler) RegisterTenantRoutes(r *gin.RouterGroup) {
	r.POST("/:tenant_id/members", h.AddMember)
	r.GET("/:tenant_id/members", h.ListMembers)
	r.GET("/:tenant_id/members/:user_id", h.GetMember)
	r.PATCH("/:tenant_id/members/:user_id/role", h.UpdateRole)
	r.POST("/:tenant_id/members/:user_id/deactivate", h.DeactivateMember)
	r.POST("/:tenant_id/members/:user_id/activate", h.ActivateMember)
	r.DELETE("/:tenant_id/members/:user_id", h.RemoveMember)
}

// RegisterUserRoutes mounts membership endpoints scoped to the calling user.
func (h *MembershipHandler) RegisterUserRoutes(r *gin.RouterGroup) {
	r.GET("/memberships", h.ListMyMemberships)
	r.PUT("/primary-tenant/:tenant_id", h.SetPrimaryTenant)
}

var membershipErrorCases = []ErrorCase{
	{Err: usecase.ErrMembershipNotFound, Status: http.StatusNotFound, Message: "membership not found"},
	{Err: usecase.ErrTenantNotFound, Status: http.StatusNotFound, Message: "tenant not found"},
}

// AddMember godoc
// @Summary Add a member to a tenant
// @Tags Memberships
// @Accept json
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param request body MembershipCreateRequest true "Membership create request"
// @Success 201 {object} MembershipPayload
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id}/members [post]
func (h *MembershipHandler) AddMember(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	var req MembershipCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid membership payload"))
		return
	}

	membership, err := h.memberships.CreateMembership(c.Request.Context(), strings.TrimSpace(req.UserID), tenantID, strings.TrimSpace(req.Role))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrMembershipExists, Status: http.StatusConflict, Message: "user is already a member"},
			{Err: usecase.ErrTenantNotFound, Status: http.StatusNotFound, Message: "tenant not found"},
			{Err: usecase.ErrTenantNotActive, Status: http.StatusUnprocessableEntity, Message: "tenant does not accept new members"},
		}, http.StatusInternalServerError, "failed to create membership")
		return
	}

	c.JSON(http.StatusCreated, newMembershipPayload(*membership))
}

// ListMembers godoc
// @Summary List members of a tenant
// @Tags Memberships
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param active_only query bool false "Only active memberships"
// @Success 200 {array} MembershipPayload
// @Router /api/v1/tenants/{tenant_id}/members [get]
func (h *MembershipHandler) ListMembers(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	activeOnly := c.Query("active_only") == "true"

	members, err := h.memberships.ListTenantMembers(c.Request.Context(), tenantID, activeOnly)
	if err != nil {
		RespondWithMappedError(c, err, membershipErrorCases,
			http.StatusInternalServerError, "failed to list members")
		return
	}

	c.JSON(http.StatusOK, newMembershipPayloads(members))
}

// GetMember godoc
// @Summary Fetch one tenant membership
// @Tags Memberships
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param user_id path string true "User ID"
// @Success 200 {object} MembershipPayload
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id}/members/{user_id} [get]
func (h *MembershipHandler) GetMember(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	userID := c.Param("user_id")

	membership, err := h.memberships.GetMembership(c.Request.Context(), userID, tenantID)
	if err != nil {
		RespondWithMappedError(c, err, membershipErrorCases,
			http.StatusInternalServerError, "failed to fetch membership")
		return
	}

	c.JSON(http.StatusOK, newMembershipPayload(*membership))
}

// UpdateRole godoc
// @Summary Update a member's coarse role label
// @Tags Memberships
// @Accept json
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param user_id path string true "User ID"
// @Param request body MembershipRoleRequest true "Role update request"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id}/members/{user_id}/role [patch]
func (h *MembershipHandler) UpdateRole(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	userID := c.Param("user_id")

	var req MembershipRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid role payload"))
		return
	}

	if err := h.memberships.UpdateMembershipRole(c.Request.Context(), userID, tenantID, strings.TrimSpace(req.Role)); err != nil {
		RespondWithMappedError(c, err, membershipErrorCases,
			http.StatusInternalServerError, "failed to update role")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "membership role updated"})
}

// DeactivateMember godoc
// @Summary Deactivate a membership
// @Tags Memberships
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param user_id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id}/members/{user_id}/deactivate [post]
func (h *MembershipHandler) DeactivateMember(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	userID := c.Param("user_id")

	if err := h.memberships.DeactivateMembership(c.Request.Context(), userID, tenantID); err != nil {
		RespondWithMappedError(c, err, membershipErrorCases,
			http.StatusInternalServerError, "failed to deactivate membership")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "membership deactivated"})
}

// ActivateMember godoc
// @Summary Reactivate a membership
// @Tags Memberships
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param user_id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id}/members/{user_id}/activate [post]
func (h *MembershipHandler) ActivateMember(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	userID := c.Param("user_id")

	if err := h.memberships.ActivateMembership(c.Request.Context(), userID, tenantID); err != nil {
		RespondWithMappedError(c, err, membershipErrorCases,
			http.StatusInternalServerError, "failed to activate membership")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "membership activated"})
}

// RemoveMember godoc
// @Summary Soft delete a membership
// @Tags Memberships
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param user_id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id}/members/{user_id} [delete]
func (h *MembershipHandler) RemoveMember(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	userID := c.Param("user_id")

	if err := h.memberships.DeleteMembership(c.Request.Context(), userID, tenantID); err != nil {
		RespondWithMappedError(c, err, membershipErrorCases,
			http.StatusInternalServerError, "failed to delete membership")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "membership deleted"})
}

// ListMyMemberships godoc
// @Summary List the caller's memberships
// @Tags Memberships
// @Produce json
// @Param active_only query bool false "Only active memberships"
// @Success 200 {array} MembershipPayload
// @Router /api/v1/users/me/memberships [get]
func (h *MembershipHandler) ListMyMemberships(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	activeOnly := c.Query("active_only") == "true"

	memberships, err := h.memberships.ListUserMemberships(c.Request.Context(), userID, activeOnly)
	if err != nil {
		RespondWithMappedError(c, err, membershipErrorCases,
			http.StatusInternalServerError, "failed to list memberships")
		return
	}

	c.JSON(http.StatusOK, newMembershipPayloads(memberships))
}

// SetPrimaryTenant godoc
// @Summary Mark a tenant as the caller's primary tenant
// @Tags Memberships
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /api/v1/users/me/primary-tenant/{tenant_id} [put]
func (h *MembershipHandler) SetPrimaryTenant(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	tenantID := c.Param("tenant_id")

	if err := h.memberships.SetPrimaryTenant(c.Request.Context(), userID, tenantID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrMembershipNotFound, Status: http.StatusNotFound, Message: "membership not found"},
			{Err: usecase.ErrTenantNotFound, Status: http.StatusNotFound, Message: "tenant not found"},
			{Err: usecase.ErrMembershipInactive, Status: http.StatusUnprocessableEntity, Message: "membership is not active"},
			{Err: usecase.ErrTenantNotActive, Status: http.StatusUnprocessableEntity, Message: "tenant is not active"},
		}, http.StatusInternalServerError, "failed to set primary tenant")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "primary tenant updated"})
}
