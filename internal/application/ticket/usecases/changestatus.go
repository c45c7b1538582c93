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

type UpdateStatusCommand struct {
	Actor  authorization.Actor
	ID     string
	Status vo.TicketStatus
	// Comment is kept as an internal remark and, when resolving, as the
	// resolution notes.
	Comment string
}

// UpdateStatus moves a ticket along one edge of its status graph.
func (s *LifecycleService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*dto.TicketDTO, error) {
	s.logger.Infow("executing update status use case", "ticket_id", cmd.ID, "status", cmd.Status.String(), "actor_id", cmd.Actor.ID)

	if !s.cfg.Graph.IsValid(cmd.Status) {
		return nil, errors.NewFieldValidationError([]errors.FieldError{
			{Field: "status", Message: "unknown " + s.cfg.Type.String() + " status " + cmd.Status.String()},
		})
	}

	t, err := s.load(ctx, cmd.ID, ticket.LoadOptions{WithComments: true})
	if err != nil {
		return nil, err
	}
	if err := s.authorize(cmd.Actor, t, permission.Request{Op: permission.OpTransition, To: cmd.Status}); err != nil {
		return nil, err
	}

	from := t.Status()
	now := s.now()
	if err := t.ChangeStatus(cmd.Status, cmd.Actor.ID, cmd.Comment, now); err != nil {
		s.logger.Warnw("status change rejected", "ticket_id", t.ID(), "from", from.String(), "to", cmd.Status.String(), "error", err)
		return nil, err
	}
	remark, err := s.internalRemark(t, cmd.Actor, cmd.Comment, now)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, t, remark); err != nil {
		s.logger.Errorw("failed to persist status change", "ticket_id", t.ID(), "actor_id", cmd.Actor.ID, "error", err)
		return nil, err
	}

	s.logger.Infow("ticket status changed successfully",
		"ticket_id", t.ID(),
		"actor_id", cmd.Actor.ID,
		"old_status", from.String(),
		"new_status", t.Status().String(),
		"version", t.Version(),
	)
	return dto.ToTicketDTO(t, s.viewOptions(cmd.Actor)), nil
}
