package ticket

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/servora/servora/internal/application/ticket/usecases"
	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/errors"
	"github.com/servora/servora/internal/shared/utils"
)

type CreateTicketRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=10000"`
	Priority    string   `json:"priority,omitempty"`
	Impact      string   `json:"impact,omitempty"`
	Tags        []string `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	AssigneeID  string   `json:"assignee_id,omitempty" validate:"omitempty,uuid"`

	Category           string     `json:"category,omitempty"`
	RootCause          string     `json:"root_cause,omitempty"`
	Workaround         string     `json:"workaround,omitempty"`
	ChangeType         string     `json:"change_type,omitempty"`
	RiskLevel          string     `json:"risk_level,omitempty"`
	ScheduledStart     *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd       *time.Time `json:"scheduled_end,omitempty"`
	ImplementationPlan string     `json:"implementation_plan,omitempty"`
	BackoutPlan        string     `json:"backout_plan,omitempty"`
}

func (r *CreateTicketRequest) ToCommand(actor authorization.Actor, t vo.TicketType) (usecases.CreateTicketCommand, error) {
	var p enumParser
	cmd := usecases.CreateTicketCommand{
		Actor:              actor,
		Title:              r.Title,
		Description:        r.Description,
		Tags:               r.Tags,
		AssigneeID:         r.AssigneeID,
		Category:           r.Category,
		RootCause:          r.RootCause,
		Workaround:         r.Workaround,
		ScheduledStart:     r.ScheduledStart,
		ScheduledEnd:       r.ScheduledEnd,
		ImplementationPlan: r.ImplementationPlan,
		BackoutPlan:        r.BackoutPlan,
	}
	if r.Priority != "" {
		cmd.Priority = p.priority(r.Priority)
	}
	if r.Impact != "" {
		cmd.Impact = p.impact(r.Impact, t)
	}
	if r.ChangeType != "" {
		cmd.ChangeType = p.changeType(r.ChangeType)
	}
	if r.RiskLevel != "" {
		cmd.RiskLevel = p.riskLevel(r.RiskLevel)
	}
	return cmd, p.err()
}

// UpdateTicketRequest is a partial update; absent fields stay untouched.
type UpdateTicketRequest struct {
	Title              *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	Description        *string    `json:"description,omitempty" validate:"omitempty,max=10000"`
	Priority           *string    `json:"priority,omitempty"`
	Impact             *string    `json:"impact,omitempty"`
	Tags               *[]string  `json:"tags,omitempty"`
	Category           *string    `json:"category,omitempty"`
	ResolutionNotes    *string    `json:"resolution_notes,omitempty"`
	RootCause          *string    `json:"root_cause,omitempty"`
	Workaround         *string    `json:"workaround,omitempty"`
	Solution           *string    `json:"solution,omitempty"`
	ChangeType         *string    `json:"change_type,omitempty"`
	RiskLevel          *string    `json:"risk_level,omitempty"`
	ScheduledStart     *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd       *time.Time `json:"scheduled_end,omitempty"`
	ImplementationPlan *string    `json:"implementation_plan,omitempty"`
	BackoutPlan        *string    `json:"backout_plan,omitempty"`
}

func (r *UpdateTicketRequest) ToPatch(t vo.TicketType) (ticket.FieldPatch, error) {
	var p enumParser
	patch := ticket.FieldPatch{
		Title:              r.Title,
		Description:        r.Description,
		Tags:               r.Tags,
		Category:           r.Category,
		ResolutionNotes:    r.ResolutionNotes,
		RootCause:          r.RootCause,
		Workaround:         r.Workaround,
		Solution:           r.Solution,
		ScheduledStart:     r.ScheduledStart,
		ScheduledEnd:       r.ScheduledEnd,
		ImplementationPlan: r.ImplementationPlan,
		BackoutPlan:        r.BackoutPlan,
	}
	if r.Priority != nil {
		v := p.priority(*r.Priority)
		patch.Priority = &v
	}
	if r.Impact != nil {
		v := p.impact(*r.Impact, t)
		patch.Impact = &v
	}
	if r.ChangeType != nil {
		v := p.changeType(*r.ChangeType)
		patch.ChangeType = &v
	}
	if r.RiskLevel != nil {
		v := p.riskLevel(*r.RiskLevel)
		patch.RiskLevel = &v
	}
	return patch, p.err()
}

type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment,omitempty" validate:"max=10000"`
}

type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id" validate:"required,uuid"`
	Comment    string `json:"comment,omitempty" validate:"max=10000"`
}

type AddCommentRequest struct {
	Content    string `json:"content" validate:"required,max=10000"`
	IsInternal bool   `json:"is_internal"`
}

type RelatedIncidentRequest struct {
	IncidentID string `json:"incident_id" validate:"required,uuid"`
}

// enumParser collects field errors while converting wire strings.
type enumParser struct {
	fields []errors.FieldError
}

func (p *enumParser) fail(field, msg string) {
	p.fields = append(p.fields, errors.FieldError{Field: field, Message: msg})
}

func (p *enumParser) priority(s string) vo.Priority {
	v, err := vo.NewPriority(s)
	if err != nil {
		p.fail("priority", err.Error())
	}
	return v
}

func (p *enumParser) impact(s string, t vo.TicketType) vo.Impact {
	v, err := vo.NewImpact(s, t)
	if err != nil {
		p.fail("impact", err.Error())
	}
	return v
}

func (p *enumParser) changeType(s string) vo.ChangeType {
	v, err := vo.NewChangeType(s)
	if err != nil {
		p.fail("change_type", err.Error())
	}
	return v
}

func (p *enumParser) riskLevel(s string) vo.RiskLevel {
	v, err := vo.NewRiskLevel(s)
	if err != nil {
		p.fail("risk_level", err.Error())
	}
	return v
}

func (p *enumParser) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return errors.NewFieldValidationError(p.fields)
}

// parseListTicketsQuery reads list filters from the query string. Enum
// values are checked against the ticket type by the service.
func parseListTicketsQuery(c *gin.Context, actor authorization.Actor) (usecases.ListTicketsQuery, error) {
	var fields []errors.FieldError

	q := usecases.ListTicketsQuery{
		Actor:      actor,
		AssigneeID: strings.TrimSpace(c.Query("assignee_id")),
		ReporterID: strings.TrimSpace(c.Query("reporter_id")),
		Search:     c.Query("search"),
		Tags:       utils.QueryList(c, "tags"),
		SortBy:     c.Query("sort_by"),
		SortOrder:  c.Query("sort_order"),
	}
	if q.Search == "" {
		q.Search = c.Query("q")
	}
	for _, s := range utils.QueryList(c, "status") {
		q.Statuses = append(q.Statuses, vo.TicketStatus(s))
	}
	for _, s := range utils.QueryList(c, "priority") {
		q.Priorities = append(q.Priorities, vo.Priority(s))
	}
	for _, s := range utils.QueryList(c, "impact") {
		q.Impacts = append(q.Impacts, vo.Impact(s))
	}

	var err error
	if q.IncludeClosed, err = queryBool(c, "include_closed"); err != nil {
		fields = append(fields, errors.FieldError{Field: "include_closed", Message: "include_closed must be a boolean"})
	}
	if q.IncludeDeleted, err = queryBool(c, "include_deleted"); err != nil {
		fields = append(fields, errors.FieldError{Field: "include_deleted", Message: "include_deleted must be a boolean"})
	}
	if q.CreatedFrom, err = queryTime(c, "created_from"); err != nil {
		fields = append(fields, errors.FieldError{Field: "created_from", Message: "created_from must be RFC 3339 or YYYY-MM-DD"})
	}
	if q.CreatedTo, err = queryTime(c, "created_to"); err != nil {
		fields = append(fields, errors.FieldError{Field: "created_to", Message: "created_to must be RFC 3339 or YYYY-MM-DD"})
	}
	if len(fields) > 0 {
		return usecases.ListTicketsQuery{}, errors.NewFieldValidationError(fields)
	}

	p := utils.ParsePagination(c)
	q.Page, q.PageSize = p.Page, p.PageSize
	return q, nil
}

func queryBool(c *gin.Context, key string) (bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func queryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errors.NewValidationError("invalid time " + raw)
}
