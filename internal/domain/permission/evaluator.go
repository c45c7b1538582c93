package permission

import (
	"github.com/servora/servora/internal/domain/ticket"
	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/errors"
)

// Reason codes carried by Forbidden errors.
const (
	ReasonNotOwner         = "not-owner"
	ReasonNotAssignee      = "not-assignee"
	ReasonRoleInsufficient = "role-insufficient"
	ReasonTerminalState    = "terminal-state"
)

type Operation string

const (
	OpView         Operation = "view"
	OpCreate       Operation = "create"
	OpUpdateFields Operation = "update_fields"
	OpTransition   Operation = "transition"
	OpAssign       Operation = "assign"
	OpDelete       Operation = "delete"
	OpComment      Operation = "comment"
)

// Target is the ticket state the evaluator needs. *ticket.Ticket satisfies it.
type Target interface {
	Type() vo.TicketType
	Status() vo.TicketStatus
	ReporterDepartment() string
	IsReporter(userID string) bool
	IsAssignee(userID string) bool
	IsTerminal() bool
	Graph() vo.StatusGraph
}

var _ Target = (*ticket.Ticket)(nil)

// Request describes one operation to authorize. Fields is consulted for
// OpUpdateFields and To for OpTransition.
type Request struct {
	Op     Operation
	Fields []ticket.Field
	To     vo.TicketStatus
}

// Evaluator decides whether an actor may perform an operation on a ticket.
// It performs no I/O and is safe for concurrent use.
type Evaluator struct {
	grants RoleGrants
}

// NewEvaluator returns an evaluator backed by grants, or by RankGrants when nil.
func NewEvaluator(grants RoleGrants) *Evaluator {
	if grants == nil {
		grants = RankGrants{}
	}
	return &Evaluator{grants: grants}
}

func (e *Evaluator) has(actor authorization.Actor, t vo.TicketType, g Grant) bool {
	return e.grants.Allows(actor.Role, t, g)
}

// Check authorizes req. A nil return means allowed; every denial is a
// Forbidden AppError with a reason code.
func (e *Evaluator) Check(actor authorization.Actor, t Target, req Request) error {
	switch req.Op {
	case OpCreate:
		return e.CanCreate(actor)
	case OpView:
		return e.CanView(actor, t)
	case OpUpdateFields:
		return e.CanUpdate(actor, t, req.Fields)
	case OpTransition:
		return e.CanTransition(actor, t, req.To)
	case OpAssign:
		return e.CanAssign(actor, t)
	case OpDelete:
		return e.CanDelete(actor, t)
	case OpComment:
		return e.CanComment(actor, t)
	}
	return errors.NewForbiddenWithReason(ReasonRoleInsufficient, "unknown operation "+string(req.Op))
}

// CanCreate allows any authenticated actor.
func (e *Evaluator) CanCreate(actor authorization.Actor) error {
	if actor.ID == "" {
		return errors.NewUnauthorizedError("authentication required")
	}
	return nil
}

func (e *Evaluator) CanView(actor authorization.Actor, t Target) error {
	if actor.ID == "" {
		return errors.NewUnauthorizedError("authentication required")
	}
	if e.has(actor, t.Type(), GrantViewAny) || t.IsReporter(actor.ID) || t.IsAssignee(actor.ID) {
		return nil
	}
	if actor.Department != "" && actor.Department == t.ReporterDepartment() &&
		e.has(actor, t.Type(), GrantViewDepartment) {
		return nil
	}
	return errors.NewForbiddenWithReason(ReasonNotOwner, "you do not have access to this ticket")
}

// CanUpdate checks a field update. Reporters may edit until the ticket is
// terminal; assignees may only touch resolution fields.
func (e *Evaluator) CanUpdate(actor authorization.Actor, t Target, fields []ticket.Field) error {
	if err := e.CanView(actor, t); err != nil {
		return err
	}
	if e.has(actor, t.Type(), GrantUpdateAny) {
		return nil
	}
	if t.IsAssignee(actor.ID) && onlyResolutionFields(fields) {
		return nil
	}
	if t.IsReporter(actor.ID) {
		if t.IsTerminal() {
			return errors.NewForbiddenWithReason(ReasonTerminalState, "ticket can no longer be edited by its reporter")
		}
		return nil
	}
	if t.IsAssignee(actor.ID) {
		return errors.NewForbiddenWithReason(ReasonNotOwner, "assignees may only edit resolution fields")
	}
	return errors.NewForbiddenWithReason(ReasonNotOwner, "only the reporter or an administrator may edit this ticket")
}

func onlyResolutionFields(fields []ticket.Field) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !f.IsResolution() {
			return false
		}
	}
	return true
}

// CanTransition checks a status change. Reporters are limited to the
// self-service targets of the type's graph.
func (e *Evaluator) CanTransition(actor authorization.Actor, t Target, to vo.TicketStatus) error {
	if err := e.CanView(actor, t); err != nil {
		return err
	}
	if e.has(actor, t.Type(), GrantTransitionAny) || t.IsAssignee(actor.ID) {
		return nil
	}
	if t.IsReporter(actor.ID) && t.Graph().IsReporterTransition(to) {
		return nil
	}
	return errors.NewForbiddenWithReason(ReasonNotAssignee, "only the assignee may change the status of this ticket")
}

// CanAssign checks an assignment. Terminal tickets may only be reassigned by
// actors holding the update-any grant.
func (e *Evaluator) CanAssign(actor authorization.Actor, t Target) error {
	if err := e.CanView(actor, t); err != nil {
		return err
	}
	if t.IsTerminal() && !e.has(actor, t.Type(), GrantUpdateAny) {
		return errors.NewForbiddenWithReason(ReasonTerminalState, "ticket is in a terminal status")
	}
	if e.has(actor, t.Type(), GrantAssignAny) || t.IsAssignee(actor.ID) {
		return nil
	}
	return errors.NewForbiddenWithReason(ReasonRoleInsufficient, "only managers, administrators or the current assignee may assign this ticket")
}

// CanDelete allows administrators and the reporter. Assignees never qualify.
func (e *Evaluator) CanDelete(actor authorization.Actor, t Target) error {
	if err := e.CanView(actor, t); err != nil {
		return err
	}
	if e.has(actor, t.Type(), GrantDeleteAny) || t.IsReporter(actor.ID) {
		return nil
	}
	return errors.NewForbiddenWithReason(ReasonNotOwner, "only the reporter or an administrator may delete this ticket")
}

func (e *Evaluator) CanComment(actor authorization.Actor, t Target) error {
	return e.CanView(actor, t)
}

// AllowedTransitions filters the legal next statuses down to those the actor may perform.
func (e *Evaluator) AllowedTransitions(actor authorization.Actor, t Target) []vo.TicketStatus {
	next := t.Graph().Next(t.Status())
	out := make([]vo.TicketStatus, 0, len(next))
	for _, to := range next {
		if e.CanTransition(actor, t, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

// Visibility returns the row restriction for listing tickets of a type,
// nil when the actor may view every ticket.
func (e *Evaluator) Visibility(actor authorization.Actor, ticketType vo.TicketType) *ticket.Visibility {
	if e.has(actor, ticketType, GrantViewAny) {
		return nil
	}
	v := &ticket.Visibility{UserID: actor.ID}
	if e.has(actor, ticketType, GrantViewDepartment) {
		v.Department = actor.Department
	}
	return v
}

// CanSeeInternal reports whether internal comments are shown to the actor.
func CanSeeInternal(actor authorization.Actor) bool {
	return actor.IsStaff()
}

// IsAdministrator reports whether the actor holds every ownership bypass for the type.
func (e *Evaluator) IsAdministrator(actor authorization.Actor, ticketType vo.TicketType) bool {
	return e.has(actor, ticketType, GrantViewAny) && e.has(actor, ticketType, GrantDeleteAny)
}
