package ticket

import (
	"sort"
	"strings"
	"time"

	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/errors"
)

// Field names an editable ticket attribute.
type Field string

const (
	FieldTitle              Field = "title"
	FieldDescription        Field = "description"
	FieldPriority           Field = "priority"
	FieldImpact             Field = "impact"
	FieldTags               Field = "tags"
	FieldCategory           Field = "category"
	FieldResolutionNotes    Field = "resolution_notes"
	FieldRootCause          Field = "root_cause"
	FieldWorkaround         Field = "workaround"
	FieldSolution           Field = "solution"
	FieldChangeType         Field = "change_type"
	FieldRiskLevel          Field = "risk_level"
	FieldScheduledStart     Field = "scheduled_start"
	FieldScheduledEnd       Field = "scheduled_end"
	FieldImplementationPlan Field = "implementation_plan"
	FieldBackoutPlan        Field = "backout_plan"
	FieldRelatedIncidents   Field = "related_incident_ids"
)

// IsResolution reports whether an assignee may edit the field.
func (f Field) IsResolution() bool {
	switch f {
	case FieldResolutionNotes, FieldRootCause, FieldWorkaround, FieldSolution, FieldRelatedIncidents:
		return true
	}
	return false
}

var commonFields = []Field{FieldTitle, FieldDescription, FieldPriority, FieldImpact, FieldTags, FieldResolutionNotes}

var typeFields = map[vo.TicketType][]Field{
	vo.TicketTypeIncident: {FieldCategory},
	vo.TicketTypeProblem:  {FieldRootCause, FieldWorkaround, FieldSolution, FieldRelatedIncidents},
	vo.TicketTypeChange: {
		FieldChangeType, FieldRiskLevel, FieldScheduledStart, FieldScheduledEnd,
		FieldImplementationPlan, FieldBackoutPlan,
	},
}

// AppliesTo reports whether the field exists on the ticket type.
func (f Field) AppliesTo(t vo.TicketType) bool {
	for _, c := range commonFields {
		if c == f {
			return true
		}
	}
	for _, c := range typeFields[t] {
		if c == f {
			return true
		}
	}
	return false
}

const (
	maxTitleLength       = 200
	maxDescriptionLength = 10000
	maxTextLength        = 10000
	maxTags              = 20
	maxTagLength         = 50
)

// FieldPatch is a partial update; nil members are left untouched.
type FieldPatch struct {
	Title              *string
	Description        *string
	Priority           *vo.Priority
	Impact             *vo.Impact
	Tags               *[]string
	Category           *string
	ResolutionNotes    *string
	RootCause          *string
	Workaround         *string
	Solution           *string
	ChangeType         *vo.ChangeType
	RiskLevel          *vo.RiskLevel
	ScheduledStart     *time.Time
	ScheduledEnd       *time.Time
	ImplementationPlan *string
	BackoutPlan        *string
}

// Fields lists the fields the patch touches, sorted.
func (p FieldPatch) Fields() []Field {
	var out []Field
	add := func(set bool, f Field) {
		if set {
			out = append(out, f)
		}
	}
	add(p.Title != nil, FieldTitle)
	add(p.Description != nil, FieldDescription)
	add(p.Priority != nil, FieldPriority)
	add(p.Impact != nil, FieldImpact)
	add(p.Tags != nil, FieldTags)
	add(p.Category != nil, FieldCategory)
	add(p.ResolutionNotes != nil, FieldResolutionNotes)
	add(p.RootCause != nil, FieldRootCause)
	add(p.Workaround != nil, FieldWorkaround)
	add(p.Solution != nil, FieldSolution)
	add(p.ChangeType != nil, FieldChangeType)
	add(p.RiskLevel != nil, FieldRiskLevel)
	add(p.ScheduledStart != nil, FieldScheduledStart)
	add(p.ScheduledEnd != nil, FieldScheduledEnd)
	add(p.ImplementationPlan != nil, FieldImplementationPlan)
	add(p.BackoutPlan != nil, FieldBackoutPlan)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (p FieldPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Draft carries the input of a new ticket.
type Draft struct {
	Type               vo.TicketType
	Title              string
	Description        string
	Priority           vo.Priority
	Impact             vo.Impact
	ReporterID         string
	ReporterDepartment string
	Tags               []string
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

// applyDefaults fills optional enums left empty by the caller.
func (d *Draft) applyDefaults() {
	if d.Priority == "" {
		d.Priority = vo.PriorityMedium
	}
	if d.Impact == "" {
		d.Impact = vo.ImpactMedium
	}
	if d.Type == vo.TicketTypeChange {
		if d.ChangeType == "" {
			d.ChangeType = vo.ChangeTypeNormal
		}
		if d.RiskLevel == "" {
			d.RiskLevel = vo.RiskLow
		}
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Tags = NormalizeTags(d.Tags)
}

// Validate returns every field-level problem of the draft at once.
func (d Draft) Validate() []errors.FieldError {
	var fields []errors.FieldError
	add := func(f Field, msg string) {
		fields = append(fields, errors.FieldError{Field: string(f), Message: msg})
	}

	if !d.Type.IsValid() {
		fields = append(fields, errors.FieldError{Field: "type", Message: "unknown ticket type"})
	}
	if d.ReporterID == "" {
		fields = append(fields, errors.FieldError{Field: "reporter_id", Message: "reporter is required"})
	}
	fields = append(fields, validateTitle(d.Title)...)
	fields = append(fields, validateDescription(d.Description)...)
	if !d.Priority.IsValid() {
		add(FieldPriority, "priority must be one of [low medium high critical]")
	}
	if !d.Impact.IsValidFor(d.Type) {
		add(FieldImpact, "impact is not valid for "+d.Type.String())
	}
	fields = append(fields, validateTags(d.Tags)...)

	if d.Type != vo.TicketTypeIncident && d.Category != "" {
		add(FieldCategory, "category only applies to incidents")
	}
	if d.Type != vo.TicketTypeProblem && (d.RootCause != "" || d.Workaround != "") {
		add(FieldRootCause, "root cause only applies to problems")
	}
	if d.Type == vo.TicketTypeChange {
		if !d.ChangeType.IsValid() {
			add(FieldChangeType, "change_type must be one of [standard normal emergency major]")
		}
		if !d.RiskLevel.IsValid() {
			add(FieldRiskLevel, "risk_level must be one of [low medium high extreme]")
		}
		fields = append(fields, validateSchedule(d.ScheduledStart, d.ScheduledEnd)...)
	} else if d.ChangeType != "" || d.RiskLevel != "" || d.ScheduledStart != nil || d.ScheduledEnd != nil {
		add(FieldChangeType, "change fields only apply to changes")
	}
	return fields
}

func validateTitle(title string) []errors.FieldError {
	switch {
	case title == "":
		return []errors.FieldError{{Field: string(FieldTitle), Message: "title is required"}}
	case len(title) > maxTitleLength:
		return []errors.FieldError{{Field: string(FieldTitle), Message: "title exceeds maximum length of 200 characters"}}
	}
	return nil
}

func validateDescription(description string) []errors.FieldError {
	switch {
	case description == "":
		return []errors.FieldError{{Field: string(FieldDescription), Message: "description is required"}}
	case len(description) > maxDescriptionLength:
		return []errors.FieldError{{Field: string(FieldDescription), Message: "description exceeds maximum length of 10000 characters"}}
	}
	return nil
}

func validateText(f Field, value string) []errors.FieldError {
	if len(value) > maxTextLength {
		return []errors.FieldError{{Field: string(f), Message: string(f) + " exceeds maximum length of 10000 characters"}}
	}
	return nil
}

func validateTags(tags []string) []errors.FieldError {
	if len(tags) > maxTags {
		return []errors.FieldError{{Field: string(FieldTags), Message: "at most 20 tags are allowed"}}
	}
	for _, tag := range tags {
		if len(tag) > maxTagLength {
			return []errors.FieldError{{Field: string(FieldTags), Message: "tags must be at most 50 characters long"}}
		}
	}
	return nil
}

func validateSchedule(start, end *time.Time) []errors.FieldError {
	if start != nil && end != nil && !end.After(*start) {
		return []errors.FieldError{{Field: string(FieldScheduledEnd), Message: "scheduled_end must be after scheduled_start"}}
	}
	return nil
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
