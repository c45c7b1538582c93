package usecases

import (
	"context"
	"time"

	"github.com/servora/servora/internal/application/ticket/dto"
	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/authorization"
)

// CreateTicketCommand carries a new ticket. The reporter is always the actor.
type CreateTicketCommand struct {
	Actor       authorization.Actor
	Title       string
	Description string
	Priority    vo.Priority
	Impact      vo.Impact
	Tags        []string
	AssigneeID  string

	Category           string
	RootCause          string
	Workaround         string
	ChangeType         vo.ChangeType
	RiskLevel          vo.RiskLevel
	ScheduledStart     *time.Time
	ScheduledEnd       *time.Time
	ImplementationPlan string
	BackoutPlan        string
}

func (cmd CreateTicketCommand) draft(t vo.TicketType) ticket.Draft {
	return ticket.Draft{
		Type:               t,
		Title:              cmd.Title,
		Description:        cmd.Description,
		Priority:           cmd.Priority,
		Impact:             cmd.Impact,
		ReporterID:         cmd.Actor.ID,
		ReporterDepartment: cmd.Actor.Department,
		Tags:               cmd.Tags,
		Category:           cmd.Category,
		RootCause:          cmd.RootCause,
		Workaround:         cmd.Workaround,
		ChangeType:         cmd.ChangeType,
		RiskLevel:          cmd.RiskLevel,
		ScheduledStart:     cmd.ScheduledStart,
		ScheduledEnd:       cmd.ScheduledEnd,
		ImplementationPlan: cmd.ImplementationPlan,
		BackoutPlan:        cmd.BackoutPlan,
	}
}

// Create validates and stores a new ticket. A supplied assignee is attached
// in the same unit of work, moving the ticket to the in-progress status of
// its type where one exists.
func (s *LifecycleService) Create(ctx context.Context, cmd CreateTicketCommand) (*dto.TicketDTO, error) {
	s.logger.Infow("executing create ticket use case", "actor_id", cmd.Actor.ID)

	if err := s.evaluator.CanCreate(cmd.Actor); err != nil {
		return nil, err
	}

	now := s.now()
	t, err := ticket.NewTicket(cmd.draft(s.cfg.Type), now)
	if err != nil {
		s.logger.Warnw("invalid ticket input", "actor_id", cmd.Actor.ID, "error", err)
		return nil, err
	}

	if cmd.AssigneeID != "" {
		if _, err := s.resolveAssignee(ctx, cmd.AssigneeID); err != nil {
			return nil, err
		}
		if _, err := t.Assign(cmd.AssigneeID, cmd.Actor.ID, now); err != nil {
			return nil, err
		}
	}

	err = s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, t); err != nil {
			return gatewayErr(err, "failed to create ticket")
		}
		for _, e := range t.PendingActions() {
			if err := s.actions.Append(ctx, e); err != nil {
				return gatewayErr(err, "failed to append action event")
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Errorw("failed to create ticket", "actor_id", cmd.Actor.ID, "error", err)
		return nil, gatewayErr(err, "failed to create ticket")
	}
	t.FlushActions()
	s.invalidateStats(ctx)

	s.logger.Infow("ticket created successfully",
		"ticket_id", t.ID(),
		"number", t.Number(),
		"actor_id", cmd.Actor.ID,
		"status", t.Status().String(),
	)

	return dto.ToTicketDTO(t, s.viewOptions(cmd.Actor)), nil
}
