package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/smb-platform-access/internal/infra/config"
	"github.com/arklim/smb-platform-access/internal/transport/http/handlers"
	"github.com/arklim/smb-platform-access/internal/transport/http/middleware"
	"github.com/arklim/smb-platform-access/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Tenants      *usecase.TenantService
	Memberships  *usecase.MembershipService
	Catalog      *usecase.CatalogService
	Roles        *usecase.RoleService
	MemberAccess *usecase.MemberAccessService
	Grants       *usecase.GrantService
	Resolver     *usecase.PolicyResolver
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Services ServiceSet
	Metrics  *handlers.DecisionMetrics
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	if httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(httpMetrics.Handler())
	} else if deps.Logger != nil {
		deps.Logger.Warn("HTTP metrics disabled", zap.Error(err))
	}

	authMiddleware := middleware.RequireGatewayToken(deps.Config.Gateway.TokenSecret)

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		tenantHandler := handlers.NewTenantHandler(deps.Services.Tenants)
		membershipHandler := handlers.NewMembershipHandler(deps.Services.Memberships)
		roleHandler := handlers.NewRoleHandler(deps.Services.Roles, deps.Services.MemberAccess)
		permissionHandler := handlers.NewPermissionHandler(deps.Services.Catalog)
		accessHandler := handlers.NewAccessHandler(deps.Services.Resolver, deps.Services.Memberships, deps.Services.Grants, deps.Metrics)

		tenantGroup := api.Group("/tenants")
		tenantGroup.Use(authMiddleware)
		tenantHandler.RegisterRoutes(tenantGroup)
		membershipHandler.RegisterTenantRoutes(tenantGroup)
		roleHandler.RegisterTenantRoutes(tenantGroup)
		accessHandler.RegisterGrantRoutes(tenantGroup)

		userGroup := api.Group("/users/me")
		userGroup.Use(authMiddleware)
		membershipHandler.RegisterUserRoutes(userGroup)

		roleGroup := api.Group("/roles")
		roleGroup.Use(authMiddleware)
		roleHandler.RegisterRoleRoutes(roleGroup)

		membershipGroup := api.Group("/memberships")
		membershipGroup.Use(authMiddleware)
		roleHandler.RegisterMembershipRoutes(membershipGroup)

		accessGroup := api.Group("/access")
		accessGroup.Use(authMiddleware)
		accessHandler.RegisterRoutes(accessGroup)

		adminGroup := api.Group("/admin/permissions")
		adminGroup.Use(authMiddleware)
		permissionHandler.RegisterRoutes(adminGroup)

		// Billing callbacks authenticate at the network layer; the provider
		// cannot present a gateway token.
		webhookHandler := handlers.NewWebhookHandler(deps.Services.Tenants, deps.Logger)
		webhookGroup := api.Group("/webhooks")
		webhookHandler.RegisterRoutes(webhookGroup)
	}

	return r
}
