package routes

import (
	"github.com/gin-gonic/gin"

	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	tickethandlers "github.com/servora/servora/internal/interfaces/http/handlers/ticket"
	"github.com/servora/servora/internal/interfaces/http/middleware"
	"github.com/servora/servora/internal/shared/authorization"
)

type TicketRouteConfig struct {
	TicketHandler  *tickethandlers.TicketHandler
	AuthMiddleware *middleware.AuthMiddleware
	// RateLimiter is optional; nil disables per-user limiting.
	RateLimiter *middleware.RateLimiter
}

// CollectionPath is the REST collection of a ticket type, e.g. /incidents.
func CollectionPath(t vo.TicketType) string {
	return "/" + t.String() + "s"
}

// SetupTicketRoutes registers the collection of the handler's ticket type.
func SetupTicketRoutes(router gin.IRouter, config *TicketRouteConfig) {
	h := config.TicketHandler
	tickets := router.Group(CollectionPath(h.Type()))
	tickets.Use(config.AuthMiddleware.RequireAuth())
	if config.RateLimiter != nil {
		tickets.Use(config.RateLimiter.Limit())
	}
	{
		tickets.POST("", h.CreateTicket)
		tickets.GET("", h.ListTickets)
		tickets.GET("/stats", authorization.RequireMinRole(authorization.RoleAgent), h.GetStats)

		tickets.POST("/:id/status", h.UpdateStatus)
		tickets.POST("/:id/assign", h.AssignTicket)
		tickets.POST("/:id/comments", h.AddComment)
		tickets.GET("/:id/history", h.GetHistory)
		tickets.GET("/:id/transitions", h.GetTransitions)

		if h.Type() == vo.TicketTypeProblem {
			tickets.POST("/:id/related-incidents", h.LinkIncident)
			tickets.DELETE("/:id/related-incidents/:incident_id", h.UnlinkIncident)
		}

		tickets.GET("/:id", h.GetTicket)
		tickets.PATCH("/:id", h.UpdateTicket)
		tickets.DELETE("/:id", h.DeleteTicket)
	}
}
