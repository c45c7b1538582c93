package ticket

import (
	"context"

	"github.com/servora/servora/internal/application/ticket/dto"
	"github.com/servora/servora/internal/application/ticket/usecases"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
)

// LifecycleService is the per-type lifecycle the handler drives.
type LifecycleService interface {
	Type() vo.TicketType
	Graph() vo.StatusGraph

	Create(ctx context.Context, cmd usecases.CreateTicketCommand) (*dto.TicketDTO, error)
	FindByID(ctx context.Context, q usecases.GetTicketQuery) (*dto.TicketDTO, error)
	List(ctx context.Context, q usecases.ListTicketsQuery) (*dto.TicketListDTO, error)
	UpdateFields(ctx context.Context, cmd usecases.UpdateFieldsCommand) (*dto.TicketDTO, error)
	UpdateStatus(ctx context.Context, cmd usecases.UpdateStatusCommand) (*dto.TicketDTO, error)
	Assign(ctx context.Context, cmd usecases.AssignTicketCommand) (*dto.TicketDTO, error)
	AddComment(ctx context.Context, cmd usecases.AddCommentCommand) (*dto.CommentDTO, error)
	History(ctx context.Context, q usecases.HistoryQuery) ([]dto.ActionEventDTO, error)
	AvailableTransitions(ctx context.Context, q usecases.TransitionsQuery) (*dto.TransitionsDTO, error)
	Remove(ctx context.Context, cmd usecases.RemoveTicketCommand) error
	Stats(ctx context.Context) (*dto.StatsDTO, error)
	LinkRelated(ctx context.Context, cmd usecases.RelatedIncidentCommand) (*dto.TicketDTO, error)
	UnlinkRelated(ctx context.Context, cmd usecases.RelatedIncidentCommand) (*dto.TicketDTO, error)
}

var _ LifecycleService = (*usecases.LifecycleService)(nil)
