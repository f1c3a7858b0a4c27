package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/usecase"
)

// billingEventStatuses maps billing provider events onto tenant lifecycle states.
var billingEventStatuses = map[string]domain.TenantStatus{
	"subscription.activated": domain.TenantStatusActive,
	"subscription.past_due":  domain.TenantStatusSuspended,
	"subscription.resumed":   domain.TenantStatusActive,
	"subscription.cancelled": domain.TenantStatusDeactivated,
	"trial.started":          domain.TenantStatusTrial,
}

// WebhookHandler receives billing provider callbacks that drive tenant status.
type WebhookHandler struct {
	tenants *usecase.TenantService
	logger  *zap.Logger
}

func NewWebhookHandler(tenants *usecase.TenantService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{tenants: tenants, logger: logger}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/billing", h.Billing)
}

// Billing godoc
// @Summary Billing provider webhook
// @Description Applies subscription lifecycle events to the tenant's status.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body BillingWebhookRequest true "Billing event"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/webhooks/billing [post]
func (h *WebhookHandler) Billing(c *gin.Context) {
	var req BillingWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid webhook payload"))
		return
	}

	event := strings.ToLower(strings.TrimSpace(req.Event))
	status, known := billingEventStatuses[event]
	if !known {
		// Unknown events are acknowledged so the provider stops retrying.
		h.logger.Warn("Ignoring unknown billing event",
			zap.String("event", event),
			zap.String("tenant_id", req.TenantID),
		)
		c.JSON(http.StatusOK, MessageResponse{Message: "event ignored"})
		return
	}

	if err := h.tenants.UpdateTenantStatus(c.Request.Context(), req.TenantID, status); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTenantNotFound, Status: http.StatusNotFound, Message: "tenant not found"},
		}, http.StatusInternalServerError, "failed to apply billing event")
		return
	}

	h.logger.Info("Applied billing event",
		zap.String("event", event),
		zap.String("tenant_id", req.TenantID),
		zap.String("status", string(status)),
	)

	c.JSON(http.StatusOK, MessageResponse{Message: "tenant status updated"})
}
