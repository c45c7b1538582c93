package usecases

import (
	"context"

	"github.com/servora/servora/internal/application/ticket/dto"
	"github.com/servora/servora/internal/domain/permission"
	"github.com/servora/servora/internal/domain/ticket"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/errors"
)

type AssignTicketCommand struct {
	Actor      authorization.Actor
	ID         string
	AssigneeID string
	Comment    string
}

// Assign hands the ticket to another user. A ticket still in its initial
// status moves to the in-progress status of its type.
func (s *LifecycleService) Assign(ctx context.Context, cmd AssignTicketCommand) (*dto.TicketDTO, error) {
	s.logger.Infow("executing assign ticket use case", "ticket_id", cmd.ID, "assignee_id", cmd.AssigneeID, "actor_id", cmd.Actor.ID)

	if cmd.AssigneeID == "" {
		return nil, errors.NewFieldValidationError([]errors.FieldError{{Field: "assignee_id", Message: "assignee_id is required"}})
	}

	t, err := s.load(ctx, cmd.ID, ticket.LoadOptions{WithComments: true})
	if err != nil {
		return nil, err
	}
	if err := s.authorize(cmd.Actor, t, permission.Request{Op: permission.OpAssign}); err != nil {
		return nil, err
	}
	if _, err := s.resolveAssignee(ctx, cmd.AssigneeID); err != nil {
		s.logger.Warnw("assignee rejected", "ticket_id", t.ID(), "assignee_id", cmd.AssigneeID, "error", err)
		return nil, err
	}

	previous := t.AssigneeID()
	now := s.now()
	moved, err := t.Assign(cmd.AssigneeID, cmd.Actor.ID, now)
	if err != nil {
		return nil, err
	}
	remark, err := s.internalRemark(t, cmd.Actor, cmd.Comment, now)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, t, remark); err != nil {
		s.logger.Errorw("failed to persist assignment", "ticket_id", t.ID(), "actor_id", cmd.Actor.ID, "error", err)
		return nil, err
	}

	s.logger.Infow("ticket assigned successfully",
		"ticket_id", t.ID(),
		"actor_id", cmd.Actor.ID,
		"from_assignee", previous,
		"to_assignee", cmd.AssigneeID,
		"status_changed", moved,
	)
	return dto.ToTicketDTO(t, s.viewOptions(cmd.Actor)), nil
}
