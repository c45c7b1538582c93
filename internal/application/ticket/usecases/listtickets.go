package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/servora/servora/internal/application/ticket/dto"
	"github.com/servora/servora/internal/domain/permission"
	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/errors"
	"github.com/servora/servora/internal/shared/utils"
)

// SortableFields are the columns List may order by.
var SortableFields = []string{"created_at", "updated_at", "priority", "status", "title", "number"}

type ListTicketsQuery struct {
	Actor authorization.Actor

	Statuses    []vo.TicketStatus
	Priorities  []vo.Priority
	Impacts     []vo.Impact
	AssigneeID  string
	ReporterID  string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Tags        []string

	IncludeClosed  bool
	IncludeDeleted bool

	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// List returns the page of tickets visible to the actor. Tombstoned and
// terminal tickets are excluded unless asked for; only administrators may
// include tombstoned ones.
func (s *LifecycleService) List(ctx context.Context, q ListTicketsQuery) (*dto.TicketListDTO, error) {
	if err := s.evaluator.CanCreate(q.Actor); err != nil {
		return nil, err
	}
	if q.IncludeDeleted && !s.evaluator.IsAdministrator(q.Actor, s.cfg.Type) {
		return nil, errors.NewForbiddenWithReason(permission.ReasonRoleInsufficient, "only administrators may list deleted tickets")
	}

	filter, err := s.buildFilter(q)
	if err != nil {
		return nil, err
	}

	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		s.logger.Errorw("failed to list tickets", "actor_id", q.Actor.ID, "error", err)
		return nil, gatewayErr(err, "failed to list tickets")
	}

	items := dto.ToTicketDTOs(tickets, s.viewOptions(q.Actor))
	if items == nil {
		items = []*dto.TicketDTO{}
	}
	totalPages := utils.TotalPages(total, filter.PageSize)
	return &dto.TicketListDTO{
		Items:       items,
		Total:       total,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
		TotalPages:  totalPages,
		HasNext:     filter.Page < totalPages,
		HasPrevious: filter.Page > 1,
	}, nil
}

func (s *LifecycleService) buildFilter(q ListTicketsQuery) (ticket.ListFilter, error) {
	var fields []errors.FieldError
	for _, st := range q.Statuses {
		if !s.cfg.Graph.IsValid(st) {
			fields = append(fields, errors.FieldError{Field: "status", Message: "unknown status " + st.String()})
		}
	}
	for _, p := range q.Priorities {
		if !p.IsValid() {
			fields = append(fields, errors.FieldError{Field: "priority", Message: "unknown priority " + p.String()})
		}
	}
	for _, i := range q.Impacts {
		if !i.IsValidFor(s.cfg.Type) {
			fields = append(fields, errors.FieldError{Field: "impact", Message: "unknown impact " + i.String()})
		}
	}
	if q.CreatedFrom != nil && q.CreatedTo != nil && q.CreatedTo.Before(*q.CreatedFrom) {
		fields = append(fields, errors.FieldError{Field: "created_to", Message: "created_to must not be before created_from"})
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	if !isSortable(sortBy) {
		fields = append(fields, errors.FieldError{Field: "sort_by", Message: "sort_by must be one of [" + strings.Join(SortableFields, " ") + "]"})
	}
	sortOrder := strings.ToLower(q.SortOrder)
	if sortOrder == "" {
		sortOrder = "desc"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		fields = append(fields, errors.FieldError{Field: "sort_order", Message: "sort_order must be one of [asc desc]"})
	}
	if len(fields) > 0 {
		return ticket.ListFilter{}, errors.NewFieldValidationError(fields)
	}

	p := utils.ValidatePagination(q.Page, q.PageSize)
	return ticket.ListFilter{
		Type:           s.cfg.Type,
		Statuses:       q.Statuses,
		Priorities:     q.Priorities,
		Impacts:        q.Impacts,
		AssigneeID:     q.AssigneeID,
		ReporterID:     q.ReporterID,
		Search:         strings.TrimSpace(q.Search),
		CreatedFrom:    q.CreatedFrom,
		CreatedTo:      q.CreatedTo,
		Tags:           ticket.NormalizeTags(q.Tags),
		IncludeClosed:  q.IncludeClosed,
		IncludeDeleted: q.IncludeDeleted,
		Visibility:     s.evaluator.Visibility(q.Actor, s.cfg.Type),
		Page:           p.Page,
		PageSize:       p.PageSize,
		SortBy:         sortBy,
		SortOrder:      sortOrder,
	}, nil
}

func isSortable(field string) bool {
	for _, f := range SortableFields {
		if f == field {
			return true
		}
	}
	return false
}
