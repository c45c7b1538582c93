package usecases

import (
	"context"

	"github.com/servora/servora/internal/domain/permission"
	"github.com/servora/servora/internal/domain/ticket"
	"github.com/servora/servora/internal/shared/authorization"
)

type RemoveTicketCommand struct {
	Actor authorization.Actor
	ID    string
}

// Remove tombstones a ticket. Comments and history stay in place.
func (s *LifecycleService) Remove(ctx context.Context, cmd RemoveTicketCommand) error {
	s.logger.Infow("executing remove ticket use case", "ticket_id", cmd.ID, "actor_id", cmd.Actor.ID)

	t, err := s.load(ctx, cmd.ID, ticket.LoadOptions{})
	if err != nil {
		return err
	}
	if err := s.authorize(cmd.Actor, t, permission.Request{Op: permission.OpDelete}); err != nil {
		return err
	}

	if err := t.MarkDeleted(s.now()); err != nil {
		return err
	}
	if err := s.persist(ctx, t); err != nil {
		s.logger.Errorw("failed to remove ticket", "ticket_id", t.ID(), "actor_id", cmd.Actor.ID, "error", err)
		return err
	}

	s.logger.Infow("ticket removed successfully", "ticket_id", t.ID(), "actor_id", cmd.Actor.ID)
	return nil
}
