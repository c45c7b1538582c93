package http

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/servora/servora/internal/application/ticket/usecases"
	domainpermission "github.com/servora/servora/internal/domain/permission"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/infrastructure/auth"
	"github.com/servora/servora/internal/infrastructure/cache"
	"github.com/servora/servora/internal/infrastructure/config"
	"github.com/servora/servora/internal/infrastructure/permission"
	"github.com/servora/servora/internal/infrastructure/repository"
	tickethandlers "github.com/servora/servora/internal/interfaces/http/handlers/ticket"
	"github.com/servora/servora/internal/interfaces/http/middleware"
	"github.com/servora/servora/internal/shared/db"
	"github.com/servora/servora/internal/shared/logger"
	"github.com/servora/servora/internal/shared/services/markdown"
)

// Container holds the wired application graph.
type Container struct {
	Router   *Router
	Services map[vo.TicketType]*usecases.LifecycleService
	Enforcer *permission.Enforcer
	JWT      *auth.JWTService
}

// NewContainer wires repositories, the permission evaluator, the lifecycle
// services and the router. redisClient may be nil, which disables the stats
// cache and rate limiting.
func NewContainer(cfg *config.Config, gdb *gorm.DB, redisClient *redis.Client, log logger.Interface) (*Container, error) {
	enforcer, err := permission.NewEnforcer(gdb, cfg.Permission.ModelPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission enforcer: %w", err)
	}
	if cfg.Permission.SeedDefaults {
		seeded, err := enforcer.SeedDefaults()
		if err != nil {
			return nil, fmt.Errorf("failed to seed permission policies: %w", err)
		}
		if seeded {
			log.Infow("seeded default role grants")
		}
	}

	deps := usecases.Dependencies{
		Tickets:   repository.NewTicketRepository(gdb, log),
		Comments:  repository.NewCommentRepository(gdb, log),
		Actions:   repository.NewActionEventRepository(gdb, log),
		Users:     repository.NewUserRepository(gdb, log),
		Tx:        db.NewTransactionManager(gdb),
		Evaluator: domainpermission.NewEvaluator(enforcer),
		Markdown:  markdown.NewRenderer(),
		Logger:    log,
	}
	var limiter *middleware.RateLimiter
	if redisClient != nil {
		deps.Stats = cache.NewTicketStatsCache(redisClient, cfg.Redis.StatsTTL())
		if cfg.Server.RateLimitPerMinute > 0 {
			limiter = middleware.NewRateLimiter(redisClient, cfg.Server.RateLimitPerMinute, time.Minute, log)
		}
	}
	services := usecases.NewLifecycleServices(deps)

	jwtService := auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.Auth.JWT.TTL())

	handlerServices := make(map[vo.TicketType]tickethandlers.LifecycleService, len(services))
	for t, svc := range services {
		handlerServices[t] = svc
	}

	router := NewRouter(RouterConfig{
		Services:       handlerServices,
		Verifier:       jwtService,
		RateLimiter:    limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Health:         pingDatabase(gdb),
		Logger:         log,
	})
	router.SetupRoutes()

	return &Container{
		Router:   router,
		Services: services,
		Enforcer: enforcer,
		JWT:      jwtService,
	}, nil
}

func pingDatabase(gdb *gorm.DB) HealthChecker {
	return func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
