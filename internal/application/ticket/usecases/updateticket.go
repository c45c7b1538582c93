package usecases

import (
	"context"

	"github.com/servora/servora/internal/application/ticket/dto"
	"github.com/servora/servora/internal/domain/permission"
	"github.com/servora/servora/internal/domain/ticket"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/errors"
)

type UpdateFieldsCommand struct {
	Actor authorization.Actor
	ID    string
	Patch ticket.FieldPatch
}

// UpdateFields applies a partial update. Which fields the actor may touch
// depends on their relation to the ticket.
func (s *LifecycleService) UpdateFields(ctx context.Context, cmd UpdateFieldsCommand) (*dto.TicketDTO, error) {
	fields := cmd.Patch.Fields()
	s.logger.Infow("executing update ticket use case", "ticket_id", cmd.ID, "fields", fields, "actor_id", cmd.Actor.ID)

	if len(fields) == 0 {
		return nil, errors.NewValidationError("no fields to update")
	}

	t, err := s.load(ctx, cmd.ID, ticket.LoadOptions{WithComments: true})
	if err != nil {
		return nil, err
	}
	if err := s.authorize(cmd.Actor, t, permission.Request{Op: permission.OpUpdateFields, Fields: fields}); err != nil {
		return nil, err
	}

	if err := t.ApplyPatch(cmd.Patch, cmd.Actor.ID, s.now()); err != nil {
		s.logger.Warnw("invalid ticket update", "ticket_id", t.ID(), "error", err)
		return nil, err
	}
	if err := s.persist(ctx, t); err != nil {
		s.logger.Errorw("failed to persist ticket update", "ticket_id", t.ID(), "actor_id", cmd.Actor.ID, "error", err)
		return nil, err
	}

	s.logger.Infow("ticket updated successfully", "ticket_id", t.ID(), "actor_id", cmd.Actor.ID, "version", t.Version())
	return dto.ToTicketDTO(t, s.viewOptions(cmd.Actor)), nil
}
