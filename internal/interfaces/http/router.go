package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	tickethandlers "github.com/servora/servora/internal/interfaces/http/handlers/ticket"
	"github.com/servora/servora/internal/interfaces/http/middleware"
	"github.com/servora/servora/internal/interfaces/http/routes"
	"github.com/servora/servora/internal/shared/logger"
	"github.com/servora/servora/internal/shared/utils"
)

// HealthChecker reports whether a backing store is reachable.
type HealthChecker func(ctx context.Context) error

type RouterConfig struct {
	Services       map[vo.TicketType]tickethandlers.LifecycleService
	Verifier       middleware.TokenVerifier
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	Health         HealthChecker
	Logger         logger.Interface
}

// Router represents the HTTP router configuration
type Router struct {
	engine         *gin.Engine
	ticketHandlers []*tickethandlers.TicketHandler
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter
	allowedOrigins []string
	health         HealthChecker
	logger         logger.Interface
}

func NewRouter(cfg RouterConfig) *Router {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	r := &Router{
		engine:         gin.New(),
		authMiddleware: middleware.NewAuthMiddleware(cfg.Verifier, log),
		rateLimiter:    cfg.RateLimiter,
		allowedOrigins: cfg.AllowedOrigins,
		health:         cfg.Health,
		logger:         log,
	}
	for _, t := range vo.AllTicketTypes {
		if svc, ok := cfg.Services[t]; ok && svc != nil {
			r.ticketHandlers = append(r.ticketHandlers, tickethandlers.NewTicketHandler(svc, log))
		}
	}
	return r
}

func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CustomLogger(r.logger))
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.SecurityHeaders())
	r.engine.Use(middleware.CORS(r.allowedOrigins))

	r.engine.GET("/health", r.healthCheck)

	for _, h := range r.ticketHandlers {
		routes.SetupTicketRoutes(r.engine, &routes.TicketRouteConfig{
			TicketHandler:  h,
			AuthMiddleware: r.authMiddleware,
			RateLimiter:    r.rateLimiter,
		})
	}

	r.engine.NoRoute(func(c *gin.Context) {
		utils.ErrorResponse(c, http.StatusNotFound, "route not found")
	})
}

func (r *Router) healthCheck(c *gin.Context) {
	if r.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := r.health(ctx); err != nil {
			r.logger.Warnw("health check failed", "error", err)
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"status": "ok"})
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
