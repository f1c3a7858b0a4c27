package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/usecase"
)

// PermissionHandler exposes the global permission catalog. These endpoints
// are system configuration, mounted behind the admin surface.
type PermissionHandler struct {
	catalog *usecase.CatalogService
}

func NewPermissionHandler(catalog *usecase.CatalogService) *PermissionHandler {
	return &PermissionHandler{catalog: catalog}
}

func (h *PermissionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.RegisterPermission)
	r.GET("", h.ListPermissions)
	r.GET("/:key", h.GetPermission)
	r.DELETE("/:key", h.RetirePermission)
}

// RegisterPermission godoc
// @Summary Register a catalog permission
// @Tags Permissions
// @Accept json
// @Produce json
// @Param request body PermissionRegisterRequest true "Permission register request"
// @Success 201 {object} PermissionPayload
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/admin/permissions [post]
func (h *PermissionHandler) RegisterPermission(c *gin.Context) {
	var req PermissionRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid permission payload"))
		return
	}

	permission, err := h.catalog.RegisterPermission(c.Request.Context(), req.Resource, req.Action, req.Description)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionExists, Status: http.StatusConflict, Message: "permission already registered"},
			{Err: usecase.ErrInvalidPermissionKey, Status: http.StatusBadRequest, Message: "resource and action must be non-empty and dot-free"},
		}, http.StatusInternalServerError, "failed to register permission")
		return
	}

	c.JSON(http.StatusCreated, newPermissionPayload(*permission))
}

// ListPermissions godoc
// @Summary List catalog permissions
// @Tags Permissions
// @Produce json
// @Param resource query string false "Filter by resource"
// @Param active_only query bool false "Only active permissions"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} PermissionListResponse
// @Router /api/v1/admin/permissions [get]
func (h *PermissionHandler) ListPermissions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	filter := port.PermissionFilter{
		Resource:   c.Query("resource"),
		ActiveOnly: c.Query("active_only") == "true",
		Limit:      limit,
		Offset:     offset,
	}

	result, err := h.catalog.ListPermissions(c.Request.Context(), filter)
	if err != nil {
		RespondWithMappedError(c, err, nil,
			http.StatusInternalServerError, "failed to list permissions")
		return
	}

	payloads := make([]PermissionPayload, 0, len(result.Permissions))
	for _, p := range result.Permissions {
		payloads = append(payloads, newPermissionPayload(p))
	}

	c.JSON(http.StatusOK, PermissionListResponse{
		Permissions: payloads,
		Total:       result.Total,
		Limit:       result.Limit,
		Offset:      result.Offset,
	})
}

// GetPermission godoc
// @Summary Fetch a catalog permission by key
// @Tags Permissions
// @Produce json
// @Param key path string true "Permission key (resource.action)"
// @Success 200 {object} PermissionPayload
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/admin/permissions/{key} [get]
func (h *PermissionHandler) GetPermission(c *gin.Context) {
	key := c.Param("key")

	permission, err := h.catalog.GetPermissionByKey(c.Request.Context(), key)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionNotFound, Status: http.StatusNotFound, Message: "permission not found"},
		}, http.StatusInternalServerError, "failed to fetch permission")
		return
	}

	c.JSON(http.StatusOK, newPermissionPayload(*permission))
}

// RetirePermission godoc
// @Summary Retire a catalog permission
// @Description Marks the permission inactive; existing references resolve to deny.
// @Tags Permissions
// @Produce json
// @Param key path string true "Permission key (resource.action)"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/admin/permissions/{key} [delete]
func (h *PermissionHandler) RetirePermission(c *gin.Context) {
	key := c.Param("key")

	if err := h.catalog.RetirePermission(c.Request.Context(), key); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPermissionNotFound, Status: http.StatusNotFound, Message: "permission not found"},
		}, http.StatusInternalServerError, "failed to retire permission")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "permission retired"})
}
