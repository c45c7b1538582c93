package usecases

import (
	"context"

	"github.com/servora/servora/internal/application/ticket/dto"
	"github.com/servora/servora/internal/domain/permission"
	"github.com/servora/servora/internal/domain/ticket"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/errors"
)

type GetTicketQuery struct {
	Actor          authorization.Actor
	ID             string
	IncludeDeleted bool
	IncludeHistory bool
}

// FindByID returns a ticket with its comments, oldest first. Tombstoned
// tickets are only returned when requested, and only to administrators and
// their reporter.
func (s *LifecycleService) FindByID(ctx context.Context, q GetTicketQuery) (*dto.TicketDTO, error) {
	t, err := s.loadVisible(ctx, q.Actor, q.ID, q.IncludeDeleted, true)
	if err != nil {
		return nil, err
	}

	opts := s.viewOptions(q.Actor)
	opts.Users = s.lookupUsers(ctx, t.ReporterID(), t.AssigneeID())
	result := dto.ToTicketDTO(t, opts)

	if q.IncludeHistory {
		events, err := s.actions.ListFor(ctx, t.ID())
		if err != nil {
			return nil, gatewayErr(err, "failed to load history")
		}
		result.History = dto.ToActionEventDTOs(events)
	}
	return result, nil
}

type HistoryQuery struct {
	Actor          authorization.Actor
	ID             string
	IncludeDeleted bool
}

// History returns the audit trail of a ticket ordered by time.
func (s *LifecycleService) History(ctx context.Context, q HistoryQuery) ([]dto.ActionEventDTO, error) {
	t, err := s.loadVisible(ctx, q.Actor, q.ID, q.IncludeDeleted, false)
	if err != nil {
		return nil, err
	}

	events, err := s.actions.ListFor(ctx, t.ID())
	if err != nil {
		s.logger.Errorw("failed to load history", "ticket_id", t.ID(), "error", err)
		return nil, gatewayErr(err, "failed to load history")
	}
	out := dto.ToActionEventDTOs(events)
	if out == nil {
		out = []dto.ActionEventDTO{}
	}
	return out, nil
}

type TransitionsQuery struct {
	Actor authorization.Actor
	ID    string
}

// AvailableTransitions lists the next statuses the actor may move the ticket to.
func (s *LifecycleService) AvailableTransitions(ctx context.Context, q TransitionsQuery) (*dto.TransitionsDTO, error) {
	t, err := s.loadVisible(ctx, q.Actor, q.ID, false, false)
	if err != nil {
		return nil, err
	}
	return dto.ToTransitionsDTO(t.Status(), s.evaluator.AllowedTransitions(q.Actor, t)), nil
}

func (s *LifecycleService) loadVisible(ctx context.Context, actor authorization.Actor, id string, includeDeleted, withComments bool) (*ticket.Ticket, error) {
	t, err := s.load(ctx, id, ticket.LoadOptions{WithComments: withComments, IncludeDeleted: includeDeleted})
	if err != nil {
		return nil, err
	}
	if t.IsDeleted() && !s.canSeeDeleted(actor, t) {
		return nil, errors.NewNotFoundError(s.cfg.Type.String()+" not found", id)
	}
	if err := s.authorize(actor, t, permission.Request{Op: permission.OpView}); err != nil {
		return nil, err
	}
	return t, nil
}
