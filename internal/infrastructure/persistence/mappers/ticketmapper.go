package mappers

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/infrastructure/persistence/models"
)

// TicketMapper handles the conversion between Ticket domain entities and persistence models.
type TicketMapper interface {
	// ToModel converts a ticket domain entity to a persistence model, tags included.
	ToModel(t *ticket.Ticket) (*models.TicketModel, error)

	// ToDomain converts a ticket persistence model and its tags to a domain entity.
	ToDomain(model *models.TicketModel) (*ticket.Ticket, error)

	CommentToModel(c *ticket.Comment) *models.CommentModel
	CommentToDomain(model *models.CommentModel) *ticket.Comment

	ActionEventToModel(e *ticket.ActionEvent) (*models.ActionEventModel, error)
	ActionEventToDomain(model *models.ActionEventModel) (*ticket.ActionEvent, error)
}

// TicketMapperImpl is the concrete implementation of TicketMapper.
type TicketMapperImpl struct{}

// NewTicketMapper creates a new TicketMapper.
func NewTicketMapper() TicketMapper {
	return &TicketMapperImpl{}
}

func (m *TicketMapperImpl) ToModel(t *ticket.Ticket) (*models.TicketModel, error) {
	s := t.Snapshot()
	model := &models.TicketModel{
		ID:                 s.ID,
		Number:             s.Number,
		TicketType:         s.Type.String(),
		Title:              s.Title,
		Description:        s.Description,
		Status:             s.Status.String(),
		Priority:           s.Priority.String(),
		Impact:             s.Impact.String(),
		ReporterID:         s.ReporterID,
		ReporterDepartment: s.ReporterDepartment,
		AssigneeID:         s.AssigneeID,
		Category:           s.Category,
		ResolutionNotes:    s.ResolutionNotes,
		RootCause:          s.RootCause,
		Workaround:         s.Workaround,
		Solution:           s.Solution,
		ChangeType:         string(s.ChangeType),
		RiskLevel:          string(s.RiskLevel),
		ScheduledStart:     s.ScheduledStart,
		ScheduledEnd:       s.ScheduledEnd,
		ImplementationPlan: s.ImplementationPlan,
		BackoutPlan:        s.BackoutPlan,
		Version:            s.Version,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		ResolvedAt:         s.ResolvedAt,
		ClosedAt:           s.ClosedAt,
		DeletedAt:          s.DeletedAt,
	}

	related := s.RelatedIncidentIDs
	if related == nil {
		related = []string{}
	}
	raw, err := json.Marshal(related)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal related incidents: %w", err)
	}
	model.RelatedIncidentIDs = datatypes.JSON(raw)

	model.Tags = make([]models.TicketTagModel, 0, len(s.Tags))
	for _, tag := range s.Tags {
		model.Tags = append(model.Tags, models.TicketTagModel{TicketID: s.ID, Tag: tag})
	}
	return model, nil
}

func (m *TicketMapperImpl) ToDomain(model *models.TicketModel) (*ticket.Ticket, error) {
	if model == nil {
		return nil, nil
	}

	var related []string
	if len(model.RelatedIncidentIDs) > 0 {
		if err := json.Unmarshal(model.RelatedIncidentIDs, &related); err != nil {
			return nil, fmt.Errorf("failed to unmarshal related incidents of ticket %s: %w", model.ID, err)
		}
	}

	tags := make([]string, 0, len(model.Tags))
	for _, t := range model.Tags {
		tags = append(tags, t.Tag)
	}

	t, err := ticket.ReconstructTicket(ticket.Snapshot{
		ID:                 model.ID,
		Number:             model.Number,
		Type:               vo.TicketType(model.TicketType),
		Title:              model.Title,
		Description:        model.Description,
		Status:             vo.TicketStatus(model.Status),
		Priority:           vo.Priority(model.Priority),
		Impact:             vo.Impact(model.Impact),
		ReporterID:         model.ReporterID,
		ReporterDepartment: model.ReporterDepartment,
		AssigneeID:         model.AssigneeID,
		Tags:               tags,
		Category:           model.Category,
		ResolutionNotes:    model.ResolutionNotes,
		RootCause:          model.RootCause,
		Workaround:         model.Workaround,
		Solution:           model.Solution,
		RelatedIncidentIDs: related,
		ChangeType:         vo.ChangeType(model.ChangeType),
		RiskLevel:          vo.RiskLevel(model.RiskLevel),
		ScheduledStart:     utcPtr(model.ScheduledStart),
		ScheduledEnd:       utcPtr(model.ScheduledEnd),
		ImplementationPlan: model.ImplementationPlan,
		BackoutPlan:        model.BackoutPlan,
		CreatedAt:          model.CreatedAt.UTC(),
		UpdatedAt:          model.UpdatedAt.UTC(),
		ResolvedAt:         utcPtr(model.ResolvedAt),
		ClosedAt:           utcPtr(model.ClosedAt),
		DeletedAt:          utcPtr(model.DeletedAt),
		Version:            model.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct ticket %s: %w", model.ID, err)
	}
	return t, nil
}

func (m *TicketMapperImpl) CommentToModel(c *ticket.Comment) *models.CommentModel {
	return &models.CommentModel{
		ID:         c.ID(),
		TicketID:   c.TicketID(),
		AuthorID:   c.AuthorID(),
		Body:       c.Body(),
		IsInternal: c.IsInternal(),
		CreatedAt:  c.CreatedAt(),
	}
}

func (m *TicketMapperImpl) CommentToDomain(model *models.CommentModel) *ticket.Comment {
	return ticket.ReconstructComment(
		model.ID,
		model.TicketID,
		model.AuthorID,
		model.Body,
		model.IsInternal,
		model.CreatedAt.UTC(),
	)
}

func (m *TicketMapperImpl) ActionEventToModel(e *ticket.ActionEvent) (*models.ActionEventModel, error) {
	raw, err := json.Marshal(e.Payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action payload: %w", err)
	}
	return &models.ActionEventModel{
		ID:        e.ID(),
		TicketID:  e.TicketID(),
		Kind:      e.Kind().String(),
		ActorID:   e.ActorID(),
		Payload:   datatypes.JSON(raw),
		CreatedAt: e.CreatedAt(),
	}, nil
}

func (m *TicketMapperImpl) ActionEventToDomain(model *models.ActionEventModel) (*ticket.ActionEvent, error) {
	payload := map[string]any{}
	if len(model.Payload) > 0 {
		if err := json.Unmarshal(model.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload of action event %s: %w", model.ID, err)
		}
	}
	return ticket.ReconstructActionEvent(
		model.ID,
		model.TicketID,
		vo.ActionKind(model.Kind),
		model.ActorID,
		payload,
		model.CreatedAt.UTC(),
	), nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
