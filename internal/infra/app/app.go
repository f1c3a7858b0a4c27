package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/smb-platform-access/internal/core/domain"
	"github.com/arklim/smb-platform-access/internal/core/port"
	"github.com/arklim/smb-platform-access/internal/infra/config"
	"github.com/arklim/smb-platform-access/internal/infra/database"
	kafkainfra "github.com/arklim/smb-platform-access/internal/infra/kafka"
	"github.com/arklim/smb-platform-access/internal/infra/logger"
	redisinfra "github.com/arklim/smb-platform-access/internal/infra/redis"
	postgresrepo "github.com/arklim/smb-platform-access/internal/repository/postgres"
	redisrepo "github.com/arklim/smb-platform-access/internal/repository/redis"
	"github.com/arklim/smb-platform-access/internal/transport/http/handlers"
	"github.com/arklim/smb-platform-access/internal/transport/http/routes"
	"github.com/arklim/smb-platform-access/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	txManager := postgresrepo.NewTxManager(pool)

	policyCache := redisrepo.NewPolicyCache(redisClient.Client(), cfg.Redis.PolicyCachePrefix, cfg.Redis.PolicyCacheTTL)

	var eventPublisher port.EventPublisher
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	accessPolicy := buildAccessPolicy(cfg.Policy)
	conditions := usecase.NewConditionRegistry()

	tenantService := usecase.NewTenantService(repos.Tenants, repos.Memberships, repos.Roles, txManager, eventPublisher)
	membershipService := usecase.NewMembershipService(repos.Tenants, repos.Memberships, txManager, eventPublisher)
	catalogService := usecase.NewCatalogService(repos.Permissions)
	roleService := usecase.NewRoleService(repos.Roles, repos.Permissions, policyCache)
	memberAccessService := usecase.NewMemberAccessService(repos.Memberships, repos.Roles, repos.Permissions,
		repos.Assignments, repos.Overrides, policyCache, eventPublisher)
	grantService := usecase.NewGrantService(repos.Memberships, repos.Grants, policyCache)
	resolver := usecase.NewPolicyResolver(repos.Tenants, repos.Permissions, repos.Roles,
		repos.Assignments, repos.Overrides, repos.Grants, policyCache, conditions, accessPolicy)

	decisionMetrics, err := handlers.NewDecisionMetrics(nil)
	if err != nil {
		log.Warn("decision metrics disabled", zap.Error(err))
	}

	engine := routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Metrics:  decisionMetrics,
		Database: pool,
		Cache:    redisClient,
		Services: routes.ServiceSet{
			Tenants:      tenantService,
			Memberships:  membershipService,
			Catalog:      catalogService,
			Roles:        roleService,
			MemberAccess: memberAccessService,
			Grants:       grantService,
			Resolver:     resolver,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting access API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// buildAccessPolicy converts configured action levels into the resolver's
// action-class table, falling back to the defaults for anything unset.
func buildAccessPolicy(cfg config.PolicySettings) *usecase.AccessPolicy {
	if len(cfg.ActionLevels) == 0 {
		return usecase.DefaultAccessPolicy()
	}

	levels := make(map[string]domain.AccessLevel, len(cfg.ActionLevels))
	for action, level := range cfg.ActionLevels {
		parsed := domain.AccessLevel(level)
		if !parsed.Valid() {
			continue
		}
		levels[action] = parsed
	}

	if len(levels) == 0 {
		return usecase.DefaultAccessPolicy()
	}
	return usecase.NewAccessPolicy(levels)
}
