package dto

import (
	"time"

	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/domain/user"
	"github.com/servora/servora/internal/shared/mapper"
	"github.com/servora/servora/internal/shared/services/markdown"
)

type TicketDTO struct {
	ID                 string           `json:"id"`
	Number             string           `json:"number"`
	Type               string           `json:"type"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Status             string           `json:"status"`
	Priority           string           `json:"priority"`
	Impact             string           `json:"impact"`
	ReporterID         string           `json:"reporter_id"`
	AssigneeID         *string          `json:"assignee_id"`
	Reporter           *UserSummaryDTO  `json:"reporter,omitempty"`
	Assignee           *UserSummaryDTO  `json:"assignee,omitempty"`
	Tags               []string         `json:"tags"`
	Category           string           `json:"category,omitempty"`
	ResolutionNotes    string           `json:"resolution_notes,omitempty"`
	RootCause          string           `json:"root_cause,omitempty"`
	Workaround         string           `json:"workaround,omitempty"`
	Solution           string           `json:"solution,omitempty"`
	RelatedIncidentIDs []string         `json:"related_incident_ids,omitempty"`
	ChangeType         string           `json:"change_type,omitempty"`
	RiskLevel          string           `json:"risk_level,omitempty"`
	ScheduledStart     *time.Time       `json:"scheduled_start,omitempty"`
	ScheduledEnd       *time.Time       `json:"scheduled_end,omitempty"`
	ImplementationPlan string           `json:"implementation_plan,omitempty"`
	BackoutPlan        string           `json:"backout_plan,omitempty"`
	SLAHours           int              `json:"sla_hours"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	ResolvedAt         *time.Time       `json:"resolved_at"`
	ClosedAt           *time.Time       `json:"closed_at"`
	IsDeleted          bool             `json:"is_deleted"`
	DeletedAt          *time.Time       `json:"deleted_at,omitempty"`
	Version            int              `json:"version"`
	Comments           []CommentDTO     `json:"comments,omitempty"`
	History            []ActionEventDTO `json:"history,omitempty"`
}

type CommentDTO struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	AuthorID    string    `json:"author_id"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"content_html"`
	IsInternal  bool      `json:"is_internal"`
	CreatedAt   time.Time `json:"created_at"`
}

type ActionEventDTO struct {
	ID        string         `json:"id"`
	TicketID  string         `json:"ticket_id"`
	Kind      string         `json:"kind"`
	ActorID   string         `json:"actor_id"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// UserSummaryDTO is the public projection of a user; contact details beyond
// name and email are never exposed.
type UserSummaryDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
}

type TicketListDTO struct {
	Items       []*TicketDTO `json:"items"`
	Total       int64        `json:"total"`
	Page        int          `json:"page"`
	PageSize    int          `json:"page_size"`
	TotalPages  int          `json:"total_pages"`
	HasNext     bool         `json:"has_next"`
	HasPrevious bool         `json:"has_previous"`
}

type StatsDTO struct {
	Type   string           `json:"type"`
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

type TransitionsDTO struct {
	Current string   `json:"current"`
	Next    []string `json:"next"`
}

// ViewOptions controls what a viewer may see of a ticket.
type ViewOptions struct {
	IncludeInternal bool
	Renderer        markdown.Renderer
	Users           map[string]*user.User
}

func ToTicketDTO(t *ticket.Ticket, opts ViewOptions) *TicketDTO {
	if t == nil {
		return nil
	}

	var assigneeID *string
	if id := t.AssigneeID(); id != "" {
		assigneeID = &id
	}

	d := &TicketDTO{
		ID:                 t.ID(),
		Number:             t.Number(),
		Type:               t.Type().String(),
		Title:              t.Title(),
		Description:        t.Description(),
		Status:             t.Status().String(),
		Priority:           t.Priority().String(),
		Impact:             t.Impact().String(),
		ReporterID:         t.ReporterID(),
		AssigneeID:         assigneeID,
		Reporter:           ToUserSummaryDTO(opts.Users[t.ReporterID()]),
		Tags:               t.Tags(),
		Category:           t.Category(),
		ResolutionNotes:    t.ResolutionNotes(),
		RootCause:          t.RootCause(),
		Workaround:         t.Workaround(),
		Solution:           t.Solution(),
		ChangeType:         string(t.ChangeType()),
		RiskLevel:          string(t.RiskLevel()),
		ScheduledStart:     t.ScheduledStart(),
		ScheduledEnd:       t.ScheduledEnd(),
		ImplementationPlan: t.ImplementationPlan(),
		BackoutPlan:        t.BackoutPlan(),
		SLAHours:           t.Priority().GetSLAHours(),
		CreatedAt:          t.CreatedAt(),
		UpdatedAt:          t.UpdatedAt(),
		ResolvedAt:         t.ResolvedAt(),
		ClosedAt:           t.ClosedAt(),
		IsDeleted:          t.IsDeleted(),
		DeletedAt:          t.Deletion().Timestamp(),
		Version:            t.Version(),
		Comments:           ToCommentDTOs(t.Comments(), opts),
	}
	if assigneeID != nil {
		d.Assignee = ToUserSummaryDTO(opts.Users[*assigneeID])
	}
	if t.Type() == vo.TicketTypeProblem {
		d.RelatedIncidentIDs = t.RelatedIncidentIDs()
	}
	return d
}

func ToTicketDTOs(tickets []*ticket.Ticket, opts ViewOptions) []*TicketDTO {
	return mapper.MapSlice(tickets, func(t *ticket.Ticket) *TicketDTO {
		return ToTicketDTO(t, opts)
	})
}

// ToCommentDTOs keeps the oldest-first order and drops internal comments the
// viewer may not see.
func ToCommentDTOs(comments []*ticket.Comment, opts ViewOptions) []CommentDTO {
	visible := mapper.FilterSlice(comments, func(c *ticket.Comment) bool {
		return opts.IncludeInternal || !c.IsInternal()
	})
	return mapper.MapSlice(visible, func(c *ticket.Comment) CommentDTO {
		return ToCommentDTO(c, opts.Renderer)
	})
}

func ToCommentDTO(c *ticket.Comment, r markdown.Renderer) CommentDTO {
	d := CommentDTO{
		ID:         c.ID(),
		TicketID:   c.TicketID(),
		AuthorID:   c.AuthorID(),
		Content:    c.Body(),
		IsInternal: c.IsInternal(),
		CreatedAt:  c.CreatedAt(),
	}
	if r != nil {
		d.ContentHTML = r.Render(c.Body())
	}
	return d
}

func ToActionEventDTO(e *ticket.ActionEvent) ActionEventDTO {
	return ActionEventDTO{
		ID:        e.ID(),
		TicketID:  e.TicketID(),
		Kind:      e.Kind().String(),
		ActorID:   e.ActorID(),
		Payload:   e.Payload(),
		CreatedAt: e.CreatedAt(),
	}
}

func ToActionEventDTOs(events []*ticket.ActionEvent) []ActionEventDTO {
	return mapper.MapSlice(events, ToActionEventDTO)
}

func ToUserSummaryDTO(u *user.User) *UserSummaryDTO {
	if u == nil {
		return nil
	}
	return &UserSummaryDTO{
		ID:         u.ID(),
		Name:       u.Name(),
		Email:      u.Email(),
		Role:       u.Role().String(),
		Department: u.Department(),
	}
}

// ToStatsDTO zero-fills every status of the graph so none is omitted.
func ToStatsDTO(graph vo.StatusGraph, counts map[vo.TicketStatus]int64) *StatsDTO {
	out := &StatsDTO{
		Type:   graph.Type.String(),
		Counts: make(map[string]int64, len(graph.Statuses)),
	}
	for _, s := range graph.Statuses {
		n := counts[s]
		out.Counts[s.String()] = n
		out.Total += n
	}
	return out
}

func ToTransitionsDTO(current vo.TicketStatus, next []vo.TicketStatus) *TransitionsDTO {
	return &TransitionsDTO{
		Current: current.String(),
		Next: mapper.MapSlice(next, func(s vo.TicketStatus) string {
			return s.String()
		}),
	}
}
