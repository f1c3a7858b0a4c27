package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/transport/http/middleware"
	"github.com/arklim/smb-platform-access/internal/usecase"
)

// DecisionMetrics counts resolved access decisions by outcome.
type DecisionMetrics struct {
	Decisions *prometheus.CounterVec
}

// NewDecisionMetrics registers the decision counter with the provided registerer.
func NewDecisionMetrics(reg prometheus.Registerer) (*DecisionMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "access",
		Subsystem: "resolver",
		Name:      "decisions_total",
		Help:      "Total number of access decisions partitioned by outcome.",
	}, []string{"decision"})

	if err := reg.Register(decisions); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				decisions = existing
			} else {
				return nil, fmt.Errorf("existing decisions collector has unexpected type %T", already.ExistingCollector)
			}
		} else {
			return nil, fmt.Errorf("register decisions collector: %w", err)
		}
	}

	return &DecisionMetrics{Decisions: decisions}, nil
}

func (m *DecisionMetrics) observe(decision domain.Decision) {
	if m == nil || m.Decisions == nil {
		return
	}
	m.Decisions.WithLabelValues(string(decision)).Inc()
}

// AccessHandler exposes the policy evaluation endpoint and resource grants.
type AccessHandler struct {
	resolver    *usecase.PolicyResolver
	memberships *usecase.MembershipService
	grants      *usecase.GrantService
	metrics     *DecisionMetrics
}

func NewAccessHandler(
	resolver *usecase.PolicyResolver,
	memberships *usecase.MembershipService,
	grants *usecase.GrantService,
	metrics *DecisionMetrics,
) *AccessHandler {
	return &AccessHandler{
		resolver:    resolver,
		memberships: memberships,
		grants:      grants,
		metrics:     metrics,
	}
}

func (h *AccessHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/evaluate", h.Evaluate)
}

// RegisterGrantRoutes mounts resource grant endpoints scoped under a tenant.
func (h *AccessHandler) RegisterGrantRoutes(r *gin.RouterGroup) {
	r.POST("/:tenant_id/grants", h.CreateGrant)
	r.GET("/:tenant_id/grants/:membership_id", h.ListGrants)
	r.DELETE("/:tenant_id/grants/:membership_id/:resource_type/:resource_id", h.RevokeGrant)
}

// Evaluate godoc
// @Summary Resolve an access decision
// @Description Resolves whether the subject may exercise the permission, most specific source first.
// @Tags Access
// @Accept json
// @Produce json
// @Param request body EvaluateRequest true "Evaluate request"
// @Success 200 {object} EvaluateResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/access/evaluate [post]
func (h *AccessHandler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid evaluate payload"))
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		callerID, ok := middleware.GetAuthenticatedUserID(c)
		if !ok || callerID == "" {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authentication"))
			return
		}
		userID = callerID
	}

	respond := func(decision domain.Decision) {
		h.metrics.observe(decision)
		c.JSON(http.StatusOK, EvaluateResponse{
			Decision:   string(decision),
			Permission: req.Permission,
			TenantID:   req.TenantID,
			UserID:     userID,
		})
	}

	membership, err := h.memberships.GetMembership(c.Request.Context(), userID, req.TenantID)
	if err != nil {
		// Unknown subjects resolve to deny, not an error.
		if errors.Is(err, usecase.ErrMembershipNotFound) {
			respond(domain.DecisionDeny)
			return
		}
		RespondWithMappedError(c, err, nil,
			http.StatusInternalServerError, "failed to evaluate access")
		return
	}

	var resource *domain.ResourceRef
	if req.Resource != nil {
		resource = &domain.ResourceRef{
			Type: req.Resource.Type,
			ID:   req.Resource.ID,
		}
	}

	decision, err := h.resolver.Evaluate(c.Request.Context(), *membership, req.Permission, resource, req.Context)
	if err != nil {
		RespondWithMappedError(c, err, nil,
			http.StatusInternalServerError, "failed to evaluate access")
		return
	}

	respond(decision)
}

var grantErrorCases = []ErrorCase{
	{Err: usecase.ErrMembershipNotFound, Status: http.StatusNotFound, Message: "membership not found"},
	{Err: usecase.ErrGrantNotFound, Status: http.StatusNotFound, Message: "resource grant not found"},
	{Err: usecase.ErrTenantMismatch, Status: http.StatusUnprocessableEntity, Message: "membership belongs to a different tenant"},
	{Err: usecase.ErrInvalidAccessLevel, Status: http.StatusBadRequest, Message: "access level must be read, write, admin, or full"},
}

// CreateGrant godoc
// @Summary Grant object-level access on one resource instance
// @Tags Grants
// @Accept json
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param request body GrantRequest true "Grant request"
// @Success 201 {object} GrantPayload
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id}/grants [post]
func (h *AccessHandler) CreateGrant(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	actorID, _ := middleware.GetAuthenticatedUserID(c)

	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid grant payload"))
		return
	}

	level := domain.AccessLevel(strings.ToLower(strings.TrimSpace(req.AccessLevel)))

	grant, err := h.grants.Grant(c.Request.Context(), tenantID, req.MembershipID,
		req.ResourceType, req.ResourceID, level, req.Conditions, actorID)
	if err != nil {
		RespondWithMappedError(c, err, grantErrorCases,
			http.StatusInternalServerError, "failed to create grant")
		return
	}

	c.JSON(http.StatusCreated, newGrantPayload(*grant))
}

// ListGrants godoc
// @Summary List a member's resource grants
// @Tags Grants
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param membership_id path string true "Membership ID"
// @Success 200 {array} GrantPayload
// @Router /api/v1/tenants/{tenant_id}/grants/{membership_id} [get]
func (h *AccessHandler) ListGrants(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	membershipID := c.Param("membership_id")

	grants, err := h.grants.ListGrants(c.Request.Context(), tenantID, membershipID)
	if err != nil {
		RespondWithMappedError(c, err, grantErrorCases,
			http.StatusInternalServerError, "failed to list grants")
		return
	}

	payloads := make([]GrantPayload, 0, len(grants))
	for _, g := range grants {
		payloads = append(payloads, newGrantPayload(g))
	}

	c.JSON(http.StatusOK, payloads)
}

// RevokeGrant godoc
// @Summary Revoke object-level access on one resource instance
// @Tags Grants
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param membership_id path string true "Membership ID"
// @Param resource_type path string true "Resource type"
// @Param resource_id path string true "Resource ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/tenants/{tenant_id}/grants/{membership_id}/{resource_type}/{resource_id} [delete]
func (h *AccessHandler) RevokeGrant(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	membershipID := c.Param("membership_id")
	resourceType := c.Param("resource_type")
	resourceID := c.Param("resource_id")

	if err := h.grants.Revoke(c.Request.Context(), tenantID, membershipID, resourceType, resourceID); err != nil {
		RespondWithMappedError(c, err, grantErrorCases,
			http.StatusInternalServerError, "failed to revoke grant")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "grant revoked"})
}
