package usecases

import (
	"context"

	"github.com/servora/servora/internal/application/ticket/dto"
	"github.com/servora/servora/internal/domain/permission"
	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/errors"
)

type RelatedIncidentCommand struct {
	Actor      authorization.Actor
	ID         string
	IncidentID string
}

// LinkRelated relates a live incident to a problem.
func (s *LifecycleService) LinkRelated(ctx context.Context, cmd RelatedIncidentCommand) (*dto.TicketDTO, error) {
	t, err := s.loadForLink(ctx, cmd)
	if err != nil {
		return nil, err
	}

	incident, err := s.tickets.GetByID(ctx, vo.TicketTypeIncident, cmd.IncidentID, ticket.LoadOptions{})
	if err != nil && !errors.IsNotFoundError(err) {
		return nil, gatewayErr(err, "failed to load incident")
	}
	if incident == nil || incident.IsDeleted() {
		return nil, errors.NewNotFoundError("incident not found", cmd.IncidentID)
	}

	if err := t.LinkIncident(cmd.IncidentID, cmd.Actor.ID, s.now()); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, t); err != nil {
		s.logger.Errorw("failed to link incident", "ticket_id", t.ID(), "incident_id", cmd.IncidentID, "error", err)
		return nil, err
	}

	s.logger.Infow("incident linked successfully", "ticket_id", t.ID(), "incident_id", cmd.IncidentID, "actor_id", cmd.Actor.ID)
	return dto.ToTicketDTO(t, s.viewOptions(cmd.Actor)), nil
}

// UnlinkRelated removes an incident from a problem.
func (s *LifecycleService) UnlinkRelated(ctx context.Context, cmd RelatedIncidentCommand) (*dto.TicketDTO, error) {
	t, err := s.loadForLink(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if err := t.UnlinkIncident(cmd.IncidentID, cmd.Actor.ID, s.now()); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, t); err != nil {
		s.logger.Errorw("failed to unlink incident", "ticket_id", t.ID(), "incident_id", cmd.IncidentID, "error", err)
		return nil, err
	}

	s.logger.Infow("incident unlinked successfully", "ticket_id", t.ID(), "incident_id", cmd.IncidentID, "actor_id", cmd.Actor.ID)
	return dto.ToTicketDTO(t, s.viewOptions(cmd.Actor)), nil
}

func (s *LifecycleService) loadForLink(ctx context.Context, cmd RelatedIncidentCommand) (*ticket.Ticket, error) {
	if s.cfg.Type != vo.TicketTypeProblem {
		return nil, errors.NewBadRequestError("only problems have related incidents")
	}
	if cmd.IncidentID == "" {
		return nil, errors.NewFieldValidationError([]errors.FieldError{{Field: "incident_id", Message: "incident_id is required"}})
	}

	t, err := s.load(ctx, cmd.ID, ticket.LoadOptions{WithComments: true})
	if err != nil {
		return nil, err
	}
	req := permission.Request{Op: permission.OpUpdateFields, Fields: []ticket.Field{ticket.FieldRelatedIncidents}}
	if err := s.authorize(cmd.Actor, t, req); err != nil {
		return nil, err
	}
	return t, nil
}
