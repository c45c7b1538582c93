package ticket

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/servora/servora/internal/application/ticket/usecases"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/errors"
	"github.com/servora/servora/internal/shared/logger"
	"github.com/servora/servora/internal/shared/utils"
)

// TicketHandler serves the REST surface of one ticket type.
type TicketHandler struct {
	svc    LifecycleService
	entity string
	logger logger.Interface
}

func NewTicketHandler(svc LifecycleService, log logger.Interface) *TicketHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &TicketHandler{
		svc:    svc,
		entity: svc.Type().String(),
		logger: log.With("ticket_type", svc.Type().String()),
	}
}

func (h *TicketHandler) Type() vo.TicketType {
	return h.svc.Type()
}

// CreateTicket handles POST /{type}s
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req CreateTicketRequest
	if !h.bind(c, &req) {
		return
	}
	cmd, err := req.ToCommand(actor, h.svc.Type())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.svc.Create(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Ticket created successfully")
}

// GetTicket handles GET /{type}s/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	includeDeleted, err := queryBool(c, "include_deleted")
	if err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("include_deleted must be a boolean"))
		return
	}
	includeHistory, err := queryBool(c, "include_history")
	if err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("include_history must be a boolean"))
		return
	}

	result, err := h.svc.FindByID(c.Request.Context(), usecases.GetTicketQuery{
		Actor:          actor,
		ID:             id,
		IncludeDeleted: includeDeleted,
		IncludeHistory: includeHistory,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// ListTickets handles GET /{type}s
func (h *TicketHandler) ListTickets(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	q, err := parseListTicketsQuery(c, actor)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, result.Items, result.Total, result.Page, result.PageSize)
}

// UpdateTicket handles PATCH /{type}s/:id
func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req UpdateTicketRequest
	if !h.bind(c, &req) {
		return
	}
	patch, err := req.ToPatch(h.svc.Type())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.svc.UpdateFields(c.Request.Context(), usecases.UpdateFieldsCommand{
		Actor: actor,
		ID:    id,
		Patch: patch,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Ticket updated successfully", result)
}

// UpdateStatus handles POST /{type}s/:id/status
func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), usecases.UpdateStatusCommand{
		Actor:   actor,
		ID:      id,
		Status:  vo.TicketStatus(req.Status),
		Comment: req.Comment,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Ticket status updated successfully", result)
}

// AssignTicket handles POST /{type}s/:id/assign
func (h *TicketHandler) AssignTicket(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req AssignTicketRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Assign(c.Request.Context(), usecases.AssignTicketCommand{
		Actor:      actor,
		ID:         id,
		AssigneeID: req.AssigneeID,
		Comment:    req.Comment,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Ticket assigned successfully", result)
}

// AddComment handles POST /{type}s/:id/comments
func (h *TicketHandler) AddComment(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req AddCommentRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.AddComment(c.Request.Context(), usecases.AddCommentCommand{
		Actor:      actor,
		ID:         id,
		Content:    req.Content,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Comment added successfully")
}

// GetHistory handles GET /{type}s/:id/history
func (h *TicketHandler) GetHistory(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	includeDeleted, err := queryBool(c, "include_deleted")
	if err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("include_deleted must be a boolean"))
		return
	}

	result, err := h.svc.History(c.Request.Context(), usecases.HistoryQuery{
		Actor:          actor,
		ID:             id,
		IncludeDeleted: includeDeleted,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// GetTransitions handles GET /{type}s/:id/transitions
func (h *TicketHandler) GetTransitions(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	result, err := h.svc.AvailableTransitions(c.Request.Context(), usecases.TransitionsQuery{Actor: actor, ID: id})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// DeleteTicket handles DELETE /{type}s/:id
func (h *TicketHandler) DeleteTicket(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	if err := h.svc.Remove(c.Request.Context(), usecases.RemoveTicketCommand{Actor: actor, ID: id}); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.NoContentResponse(c)
}

// GetStats handles GET /{type}s/stats
func (h *TicketHandler) GetStats(c *gin.Context) {
	result, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// LinkIncident handles POST /problems/:id/related-incidents
func (h *TicketHandler) LinkIncident(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req RelatedIncidentRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.LinkRelated(c.Request.Context(), usecases.RelatedIncidentCommand{
		Actor:      actor,
		ID:         id,
		IncidentID: req.IncidentID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Incident linked successfully", result)
}

// UnlinkIncident handles DELETE /problems/:id/related-incidents/:incident_id
func (h *TicketHandler) UnlinkIncident(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	incidentID, err := utils.ParseUUIDParam(c, "incident_id", "incident")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.svc.UnlinkRelated(c.Request.Context(), usecases.RelatedIncidentCommand{
		Actor:      actor,
		ID:         id,
		IncidentID: incidentID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Incident unlinked successfully", result)
}

func (h *TicketHandler) actor(c *gin.Context) (authorization.Actor, bool) {
	actor, err := authorization.ActorFrom(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return authorization.Actor{}, false
	}
	return actor, true
}

func (h *TicketHandler) actorAndID(c *gin.Context) (authorization.Actor, string, bool) {
	actor, ok := h.actor(c)
	if !ok {
		return authorization.Actor{}, "", false
	}
	id, err := utils.ParseUUIDParam(c, "id", h.entity)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return authorization.Actor{}, "", false
	}
	return actor, id, true
}

// bind decodes the JSON body and runs struct validation.
func (h *TicketHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Warnw("invalid request body", "path", c.FullPath(), "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
		return false
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return false
	}
	return true
}
