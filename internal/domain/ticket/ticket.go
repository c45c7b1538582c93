package ticket

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/errors"
	"github.com/servora/servora/internal/shared/id"
)

var numberPrefixes = map[vo.TicketType]string{
	vo.TicketTypeIncident: id.PrefixIncident,
	vo.TicketTypeProblem:  id.PrefixProblem,
	vo.TicketTypeChange:   id.PrefixChange,
}

// Ticket is the aggregate shared by incidents, problems and changes.
// Variant-specific attributes are empty on the other variants.
type Ticket struct {
	id                 string
	number             string
	ticketType         vo.TicketType
	title              string
	description        string
	status             vo.TicketStatus
	priority           vo.Priority
	impact             vo.Impact
	reporterID         string
	reporterDepartment string
	assigneeID         *string
	tags               []string

	category           string
	resolutionNotes    string
	rootCause          string
	workaround         string
	solution           string
	relatedIncidentIDs []string
	changeType         vo.ChangeType
	riskLevel          vo.RiskLevel
	scheduledStart     *time.Time
	scheduledEnd       *time.Time
	implementationPlan string
	backoutPlan        string

	createdAt  time.Time
	updatedAt  time.Time
	resolvedAt *time.Time
	closedAt   *time.Time
	deletion   Deletion
	version    int

	comments []*Comment
	pending  []*ActionEvent
	dirty    bool
}

// NewTicket validates the draft and creates a ticket in the initial status of its type.
func NewTicket(d Draft, now time.Time) (*Ticket, error) {
	d.applyDefaults()
	if fields := d.Validate(); len(fields) > 0 {
		return nil, errors.NewFieldValidationError(fields)
	}

	number, err := id.NewTicketNumber(numberPrefixes[d.Type])
	if err != nil {
		return nil, fmt.Errorf("failed to generate ticket number: %w", err)
	}

	now = now.UTC()
	return &Ticket{
		id:                 uuid.NewString(),
		number:             number,
		ticketType:         d.Type,
		title:              d.Title,
		description:        d.Description,
		status:             vo.MustGraphFor(d.Type).Initial,
		priority:           d.Priority,
		impact:             d.Impact,
		reporterID:         d.ReporterID,
		reporterDepartment: d.ReporterDepartment,
		tags:               d.Tags,
		category:           d.Category,
		rootCause:          d.RootCause,
		workaround:         d.Workaround,
		relatedIncidentIDs: []string{},
		changeType:         d.ChangeType,
		riskLevel:          d.RiskLevel,
		scheduledStart:     utcPtr(d.ScheduledStart),
		scheduledEnd:       utcPtr(d.ScheduledEnd),
		implementationPlan: d.ImplementationPlan,
		backoutPlan:        d.BackoutPlan,
		createdAt:          now,
		updatedAt:          now,
		version:            1,
		comments:           []*Comment{},
	}, nil
}

// Snapshot is the persisted state of a ticket.
type Snapshot struct {
	ID                 string
	Number             string
	Type               vo.TicketType
	Title              string
	Description        string
	Status             vo.TicketStatus
	Priority           vo.Priority
	Impact             vo.Impact
	ReporterID         string
	ReporterDepartment string
	AssigneeID         *string
	Tags               []string
	Category           string
	ResolutionNotes    string
	RootCause          string
	Workaround         string
	Solution           string
	RelatedIncidentIDs []string
	ChangeType         vo.ChangeType
	RiskLevel          vo.RiskLevel
	ScheduledStart     *time.Time
	ScheduledEnd       *time.Time
	ImplementationPlan string
	BackoutPlan        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ResolvedAt         *time.Time
	ClosedAt           *time.Time
	DeletedAt          *time.Time
	Version            int
}

// ReconstructTicket rebuilds a ticket from persistence.
func ReconstructTicket(s Snapshot) (*Ticket, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("ticket ID cannot be empty")
	}
	graph, err := vo.GraphFor(s.Type)
	if err != nil {
		return nil, err
	}
	if !graph.IsValid(s.Status) {
		return nil, fmt.Errorf("invalid %s status: %s", s.Type, s.Status)
	}
	if s.ReporterID == "" {
		return nil, fmt.Errorf("ticket %s has no reporter", s.ID)
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.RelatedIncidentIDs == nil {
		s.RelatedIncidentIDs = []string{}
	}

	return &Ticket{
		id:                 s.ID,
		number:             s.Number,
		ticketType:         s.Type,
		title:              s.Title,
		description:        s.Description,
		status:             s.Status,
		priority:           s.Priority,
		impact:             s.Impact,
		reporterID:         s.ReporterID,
		reporterDepartment: s.ReporterDepartment,
		assigneeID:         s.AssigneeID,
		tags:               s.Tags,
		category:           s.Category,
		resolutionNotes:    s.ResolutionNotes,
		rootCause:          s.RootCause,
		workaround:         s.Workaround,
		solution:           s.Solution,
		relatedIncidentIDs: s.RelatedIncidentIDs,
		changeType:         s.ChangeType,
		riskLevel:          s.RiskLevel,
		scheduledStart:     s.ScheduledStart,
		scheduledEnd:       s.ScheduledEnd,
		implementationPlan: s.ImplementationPlan,
		backoutPlan:        s.BackoutPlan,
		createdAt:          s.CreatedAt,
		updatedAt:          s.UpdatedAt,
		resolvedAt:         s.ResolvedAt,
		closedAt:           s.ClosedAt,
		deletion:           DeletionFrom(s.DeletedAt),
		version:            s.Version,
		comments:           []*Comment{},
	}, nil
}

// Snapshot returns the persisted state of the ticket, without comments.
func (t *Ticket) Snapshot() Snapshot {
	var assignee *string
	if t.assigneeID != nil {
		a := *t.assigneeID
		assignee = &a
	}
	return Snapshot{
		ID:                 t.id,
		Number:             t.number,
		Type:               t.ticketType,
		Title:              t.title,
		Description:        t.description,
		Status:             t.status,
		Priority:           t.priority,
		Impact:             t.impact,
		ReporterID:         t.reporterID,
		ReporterDepartment: t.reporterDepartment,
		AssigneeID:         assignee,
		Tags:               t.Tags(),
		Category:           t.category,
		ResolutionNotes:    t.resolutionNotes,
		RootCause:          t.rootCause,
		Workaround:         t.workaround,
		Solution:           t.solution,
		RelatedIncidentIDs: t.RelatedIncidentIDs(),
		ChangeType:         t.changeType,
		RiskLevel:          t.riskLevel,
		ScheduledStart:     copyTime(t.scheduledStart),
		ScheduledEnd:       copyTime(t.scheduledEnd),
		ImplementationPlan: t.implementationPlan,
		BackoutPlan:        t.backoutPlan,
		CreatedAt:          t.createdAt,
		UpdatedAt:          t.updatedAt,
		ResolvedAt:         copyTime(t.resolvedAt),
		ClosedAt:           copyTime(t.closedAt),
		DeletedAt:          t.deletion.Timestamp(),
		Version:            t.version,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (t *Ticket) ID() string                   { return t.id }
func (t *Ticket) Number() string               { return t.number }
func (t *Ticket) Type() vo.TicketType          { return t.ticketType }
func (t *Ticket) Title() string                { return t.title }
func (t *Ticket) Description() string          { return t.description }
func (t *Ticket) Status() vo.TicketStatus      { return t.status }
func (t *Ticket) Priority() vo.Priority        { return t.priority }
func (t *Ticket) Impact() vo.Impact            { return t.impact }
func (t *Ticket) ReporterID() string           { return t.reporterID }
func (t *Ticket) ReporterDepartment() string   { return t.reporterDepartment }
func (t *Ticket) Category() string             { return t.category }
func (t *Ticket) ResolutionNotes() string      { return t.resolutionNotes }
func (t *Ticket) RootCause() string            { return t.rootCause }
func (t *Ticket) Workaround() string           { return t.workaround }
func (t *Ticket) Solution() string             { return t.solution }
func (t *Ticket) ChangeType() vo.ChangeType    { return t.changeType }
func (t *Ticket) RiskLevel() vo.RiskLevel      { return t.riskLevel }
func (t *Ticket) ScheduledStart() *time.Time   { return t.scheduledStart }
func (t *Ticket) ScheduledEnd() *time.Time     { return t.scheduledEnd }
func (t *Ticket) ImplementationPlan() string   { return t.implementationPlan }
func (t *Ticket) BackoutPlan() string          { return t.backoutPlan }
func (t *Ticket) CreatedAt() time.Time         { return t.createdAt }
func (t *Ticket) UpdatedAt() time.Time         { return t.updatedAt }
func (t *Ticket) ResolvedAt() *time.Time       { return t.resolvedAt }
func (t *Ticket) ClosedAt() *time.Time         { return t.closedAt }
func (t *Ticket) Deletion() Deletion           { return t.deletion }
func (t *Ticket) IsDeleted() bool              { return t.deletion.IsDeleted() }
func (t *Ticket) Version() int                 { return t.version }
func (t *Ticket) Graph() vo.StatusGraph        { return vo.MustGraphFor(t.ticketType) }
func (t *Ticket) IsTerminal() bool             { return t.Graph().IsTerminal(t.status) }
func (t *Ticket) IsReporter(userID string) bool { return userID != "" && t.reporterID == userID }

// AssigneeID returns the current assignee or an empty string.
func (t *Ticket) AssigneeID() string {
	if t.assigneeID == nil {
		return ""
	}
	return *t.assigneeID
}

func (t *Ticket) IsAssignee(userID string) bool {
	return userID != "" && t.assigneeID != nil && *t.assigneeID == userID
}

func (t *Ticket) Tags() []string {
	return append([]string{}, t.tags...)
}

func (t *Ticket) RelatedIncidentIDs() []string {
	return append([]string{}, t.relatedIncidentIDs...)
}

// Comments returns the loaded comments, oldest first.
func (t *Ticket) Comments() []*Comment {
	return append([]*Comment{}, t.comments...)
}

// SetComments attaches comments loaded from persistence.
func (t *Ticket) SetComments(comments []*Comment) {
	t.comments = append([]*Comment{}, comments...)
}

// PreviousVersion is the version stored before the pending changes.
func (t *Ticket) PreviousVersion() int {
	if t.dirty {
		return t.version - 1
	}
	return t.version
}

// IsDirty reports whether the ticket has unsaved changes.
func (t *Ticket) IsDirty() bool {
	return t.dirty
}

// PendingActions returns the audit entries produced since the last flush.
func (t *Ticket) PendingActions() []*ActionEvent {
	return append([]*ActionEvent{}, t.pending...)
}

// FlushActions hands over the pending audit entries and marks the current
// state as saved. Call it once the ticket row has been written.
func (t *Ticket) FlushActions() []*ActionEvent {
	out := t.pending
	t.pending = nil
	t.dirty = false
	return out
}

// touch bumps the version once per unit of work and keeps timestamps
// from going backwards relative to creation.
func (t *Ticket) touch(now time.Time) time.Time {
	now = now.UTC()
	if now.Before(t.createdAt) {
		now = t.createdAt
	}
	t.updatedAt = now
	if !t.dirty {
		t.version++
		t.dirty = true
	}
	return now
}

func (t *Ticket) record(kind vo.ActionKind, actorID string, payload map[string]any, at time.Time) {
	t.pending = append(t.pending, newActionEvent(t.id, kind, actorID, payload, at))
}

func (t *Ticket) ensureLive() error {
	if t.IsDeleted() {
		return errors.NewNotFoundError("ticket not found", t.id)
	}
	return nil
}

// ChangeStatus moves the ticket along one edge of its status graph.
// A non-empty note entering a resolved status becomes the resolution notes.
func (t *Ticket) ChangeStatus(to vo.TicketStatus, actorID, note string, now time.Time) error {
	if err := t.ensureLive(); err != nil {
		return err
	}
	graph := t.Graph()
	if !graph.CanTransition(t.status, to) {
		return errors.NewInvalidTransitionError(string(t.status), string(to))
	}

	from := t.status
	now = t.touch(now)
	t.status = to

	if graph.IsResolved(to) {
		if t.resolvedAt == nil {
			t.resolvedAt = &now
		}
		if note != "" {
			t.resolutionNotes = note
		}
	}
	if graph.IsClosed(to) && t.closedAt == nil {
		t.closedAt = &now
	}

	t.record(vo.ActionStatusChange, actorID, map[string]any{
		PayloadFrom: string(from),
		PayloadTo:   string(to),
	}, now)
	return nil
}

// Assign sets the assignee. A ticket still in its initial status moves to the
// type's in-progress status; the returned flag reports whether it did.
func (t *Ticket) Assign(assigneeID, actorID string, now time.Time) (bool, error) {
	if err := t.ensureLive(); err != nil {
		return false, err
	}
	if assigneeID == "" {
		return false, errors.NewFieldValidationError([]errors.FieldError{{Field: "assignee_id", Message: "assignee_id is required"}})
	}
	if t.IsAssignee(assigneeID) {
		return false, errors.NewValidationError("ticket is already assigned to this user", assigneeID)
	}

	previous := t.assigneeID
	now = t.touch(now)
	assignee := assigneeID
	t.assigneeID = &assignee
	t.record(vo.ActionAssignment, actorID, map[string]any{
		PayloadFrom: optional(previous),
		PayloadTo:   assigneeID,
	}, now)

	graph := t.Graph()
	if t.status == graph.Initial && graph.InProgress != "" {
		if err := t.ChangeStatus(graph.InProgress, actorID, "", now); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// ApplyPatch updates editable fields. Root cause and solution changes are audited.
func (t *Ticket) ApplyPatch(p FieldPatch, actorID string, now time.Time) error {
	if err := t.ensureLive(); err != nil {
		return err
	}
	if err := t.validatePatch(p); err != nil {
		return err
	}

	now = t.touch(now)
	if p.Title != nil {
		t.title = trimmed(*p.Title)
	}
	if p.Description != nil {
		t.description = trimmed(*p.Description)
	}
	if p.Priority != nil {
		t.priority = *p.Priority
	}
	if p.Impact != nil {
		t.impact = *p.Impact
	}
	if p.Tags != nil {
		t.tags = NormalizeTags(*p.Tags)
	}
	if p.Category != nil {
		t.category = *p.Category
	}
	if p.ResolutionNotes != nil {
		t.resolutionNotes = *p.ResolutionNotes
	}
	if p.RootCause != nil && *p.RootCause != t.rootCause {
		t.record(vo.ActionRootCauseUpdate, actorID, map[string]any{PayloadFrom: t.rootCause, PayloadTo: *p.RootCause}, now)
		t.rootCause = *p.RootCause
	}
	if p.Workaround != nil {
		t.workaround = *p.Workaround
	}
	if p.Solution != nil && *p.Solution != t.solution {
		t.record(vo.ActionSolutionUpdate, actorID, map[string]any{PayloadFrom: t.solution, PayloadTo: *p.Solution}, now)
		t.solution = *p.Solution
	}
	if p.ChangeType != nil {
		t.changeType = *p.ChangeType
	}
	if p.RiskLevel != nil {
		t.riskLevel = *p.RiskLevel
	}
	if p.ScheduledStart != nil {
		t.scheduledStart = utcPtr(p.ScheduledStart)
	}
	if p.ScheduledEnd != nil {
		t.scheduledEnd = utcPtr(p.ScheduledEnd)
	}
	if p.ImplementationPlan != nil {
		t.implementationPlan = *p.ImplementationPlan
	}
	if p.BackoutPlan != nil {
		t.backoutPlan = *p.BackoutPlan
	}
	return nil
}

func (t *Ticket) validatePatch(p FieldPatch) error {
	touched := p.Fields()
	if len(touched) == 0 {
		return errors.NewValidationError("no fields to update")
	}

	var fields []errors.FieldError
	for _, f := range touched {
		if !f.AppliesTo(t.ticketType) {
			fields = append(fields, errors.FieldError{Field: string(f), Message: string(f) + " does not apply to " + t.ticketType.String()})
		}
	}
	if p.Title != nil {
		fields = append(fields, validateTitle(trimmed(*p.Title))...)
	}
	if p.Description != nil {
		fields = append(fields, validateDescription(trimmed(*p.Description))...)
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		fields = append(fields, errors.FieldError{Field: string(FieldPriority), Message: "priority must be one of [low medium high critical]"})
	}
	if p.Impact != nil && !p.Impact.IsValidFor(t.ticketType) {
		fields = append(fields, errors.FieldError{Field: string(FieldImpact), Message: "impact is not valid for " + t.ticketType.String()})
	}
	if p.Tags != nil {
		fields = append(fields, validateTags(NormalizeTags(*p.Tags))...)
	}
	if p.ChangeType != nil && !p.ChangeType.IsValid() {
		fields = append(fields, errors.FieldError{Field: string(FieldChangeType), Message: "change_type must be one of [standard normal emergency major]"})
	}
	if p.RiskLevel != nil && !p.RiskLevel.IsValid() {
		fields = append(fields, errors.FieldError{Field: string(FieldRiskLevel), Message: "risk_level must be one of [low medium high extreme]"})
	}
	for f, v := range map[Field]*string{
		FieldResolutionNotes: p.ResolutionNotes, FieldRootCause: p.RootCause, FieldWorkaround: p.Workaround,
		FieldSolution: p.Solution, FieldImplementationPlan: p.ImplementationPlan, FieldBackoutPlan: p.BackoutPlan,
	} {
		if v != nil {
			fields = append(fields, validateText(f, *v)...)
		}
	}
	if p.ScheduledStart != nil || p.ScheduledEnd != nil {
		start, end := t.scheduledStart, t.scheduledEnd
		if p.ScheduledStart != nil {
			start = p.ScheduledStart
		}
		if p.ScheduledEnd != nil {
			end = p.ScheduledEnd
		}
		fields = append(fields, validateSchedule(start, end)...)
	}

	if len(fields) > 0 {
		return errors.NewFieldValidationError(fields)
	}
	return nil
}

// LinkIncident relates an incident to this problem.
func (t *Ticket) LinkIncident(incidentID, actorID string, now time.Time) error {
	if err := t.ensureLive(); err != nil {
		return err
	}
	if t.ticketType != vo.TicketTypeProblem {
		return errors.NewValidationError("only problems can link related incidents")
	}
	for _, existing := range t.relatedIncidentIDs {
		if existing == incidentID {
			return errors.NewConflictError("incident is already linked", incidentID)
		}
	}
	now = t.touch(now)
	t.relatedIncidentIDs = append(t.relatedIncidentIDs, incidentID)
	t.record(vo.ActionRelatedLinkAdded, actorID, map[string]any{PayloadIncident: incidentID}, now)
	return nil
}

// UnlinkIncident removes a related incident from this problem.
func (t *Ticket) UnlinkIncident(incidentID, actorID string, now time.Time) error {
	if err := t.ensureLive(); err != nil {
		return err
	}
	idx := -1
	for i, existing := range t.relatedIncidentIDs {
		if existing == incidentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.NewNotFoundError("incident is not linked", incidentID)
	}
	now = t.touch(now)
	t.relatedIncidentIDs = append(t.relatedIncidentIDs[:idx:idx], t.relatedIncidentIDs[idx+1:]...)
	t.record(vo.ActionRelatedLinkRemoved, actorID, map[string]any{PayloadIncident: incidentID}, now)
	return nil
}

// RecordComment attaches a new comment and audits it. Comments do not bump
// the ticket version.
func (t *Ticket) RecordComment(c *Comment, actorID string) error {
	if err := t.ensureLive(); err != nil {
		return err
	}
	if c.TicketID() != t.id {
		return fmt.Errorf("comment ticket ID mismatch")
	}
	t.comments = append(t.comments, c)
	t.record(vo.ActionCommentAdded, actorID, map[string]any{
		PayloadCommentID: c.ID(),
		PayloadInternal:  c.IsInternal(),
	}, c.CreatedAt())
	return nil
}

// MarkDeleted tombstones the ticket. Comments and history are kept.
func (t *Ticket) MarkDeleted(now time.Time) error {
	if err := t.ensureLive(); err != nil {
		return err
	}
	now = t.touch(now)
	t.deletion = DeletedAt(now)
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
