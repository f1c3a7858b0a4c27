package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/transport/http/middleware"
	"github.com/arklim/smb-platform-access/internal/usecase"
)

// TenantHandler exposes tenant lifecycle endpoints.
type TenantHandler struct {
	tenants *usecase.TenantService
}

func NewTenantHandler(tenants *usecase.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

func (h *TenantHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.CreateTenant)
	r.GET("/:tenant_id", h.GetTenant)
	r.PATCH("/:tenant_id/status", h.UpdateStatus)
	r.DELETE("/:tenant_id", h.DeleteTenant)
}

// CreateTenant godoc
// @Summary Create a tenant
// @Description Creates a tenant, seeds its system roles, and enrolls the caller as owner.
// @Tags Tenants
// @Accept json
// @Produce json
// @Param request body TenantCreateRequest true "Tenant create request"
// @Success 201 {object} TenantPayload
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/tenants [post]
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	ownerID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || ownerID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
		return
	}

	var req TenantCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid tenant payload"))
		return
	}

	input := usecase.CreateTenantInput{
		Name:    strings.TrimSpace(req.Name),
		Slug:    strings.ToLower(strings.TrimSpace(req.Slug)),
		Email:   req.Email,
		Website: req.Website,
		Trial:   req.Trial,
	}

	tenant, err := h.tenants.CreateTenant(c.Request.Context(), ownerID, input)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTenantExists, Status: http.StatusConflict, Message: "tenant slug already taken"},
		}, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	c.JSON(http.StatusCreated, newTenantPayload(*tenant))
}

// GetTenant godoc
// @Summary Fetch a tenant
// @Tags Tenants
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Success 200 {object} TenantPayload
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id} [get]
func (h *TenantHandler) GetTenant(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	tenant, err := h.tenants.GetTenant(c.Request.Context(), tenantID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTenantNotFound, Status: http.StatusNotFound, Message: "tenant not found"},
		}, http.StatusInternalServerError, "failed to fetch tenant")
		return
	}

	c.JSON(http.StatusOK, newTenantPayload(*tenant))
}

// UpdateStatus godoc
// @Summary Transition a tenant's lifecycle status
// @Description Moves the tenant between trial, active, suspended, and deactivated, cascading membership activity.
// @Tags Tenants
// @Accept json
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param request body TenantStatusRequest true "Status transition request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id}/status [patch]
func (h *TenantHandler) UpdateStatus(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	var req TenantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid status payload"))
		return
	}

	status := domain.TenantStatus(strings.ToLower(strings.TrimSpace(req.Status)))

	if err := h.tenants.UpdateTenantStatus(c.Request.Context(), tenantID, status); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidTenantStatus, Status: http.StatusBadRequest, Message: "unknown tenant status"},
			{Err: usecase.ErrTenantNotFound, Status: http.StatusNotFound, Message: "tenant not found"},
		}, http.StatusInternalServerError, "failed to update tenant status")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "tenant status updated"})
}

// DeleteTenant godoc
// @Summary Delete a tenant
// @Description Tombstones the tenant and deactivates its memberships. With permanent=true the row and every tenant-scoped child are removed.
// @Tags Tenants
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param permanent query bool false "Remove the row instead of tombstoning"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id} [delete]
func (h *TenantHandler) DeleteTenant(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	var err error
	if c.Query("permanent") == "true" {
		err = h.tenants.PermanentDeleteTenant(c.Request.Context(), tenantID)
	} else {
		err = h.tenants.SoftDeleteTenant(c.Request.Context(), tenantID)
	}
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTenantNotFound, Status: http.StatusNotFound, Message: "tenant not found"},
		}, http.StatusInternalServerError, "failed to delete tenant")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "tenant deleted"})
}
