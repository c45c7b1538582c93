package usecases

import (
	"context"

	"github.com/servora/servora/internal/application/ticket/dto"
	"github.com/servora/servora/internal/domain/permission"
	"github.com/servora/servora/internal/domain/ticket"
	"github.com/servora/servora/internal/shared/authorization"
)

type AddCommentCommand struct {
	Actor      authorization.Actor
	ID         string
	Content    string
	IsInternal bool
}

// AddComment stores a comment from anyone who may view the ticket.
// Internal comments are filtered when read, not here.
func (s *LifecycleService) AddComment(ctx context.Context, cmd AddCommentCommand) (*dto.CommentDTO, error) {
	s.logger.Infow("executing add comment use case", "ticket_id", cmd.ID, "actor_id", cmd.Actor.ID, "internal", cmd.IsInternal)

	t, err := s.load(ctx, cmd.ID, ticket.LoadOptions{})
	if err != nil {
		return nil, err
	}
	if err := s.authorize(cmd.Actor, t, permission.Request{Op: permission.OpComment}); err != nil {
		return nil, err
	}

	c, err := ticket.NewComment(t.ID(), cmd.Actor.ID, cmd.Content, cmd.IsInternal, s.now())
	if err != nil {
		return nil, err
	}
	if err := t.RecordComment(c, cmd.Actor.ID); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, t, c); err != nil {
		s.logger.Errorw("failed to persist comment", "ticket_id", t.ID(), "actor_id", cmd.Actor.ID, "error", err)
		return nil, err
	}

	s.logger.Infow("comment added successfully", "ticket_id", t.ID(), "comment_id", c.ID(), "actor_id", cmd.Actor.ID)
	result := dto.ToCommentDTO(c, s.markdown)
	return &result, nil
}
