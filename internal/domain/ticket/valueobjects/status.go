package valueobjects

import "fmt"

type TicketStatus string

// Incident statuses.
const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in_progress"
	StatusOnHold     TicketStatus = "on_hold"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
	StatusCancelled  TicketStatus = "cancelled"
)

// Problem statuses. Resolved and closed are shared with incidents.
const (
	StatusIdentified          TicketStatus = "identified"
	StatusAnalyzing           TicketStatus = "analyzing"
	StatusRootCauseIdentified TicketStatus = "root_cause_identified"
	StatusWorkaroundAvailable TicketStatus = "workaround_available"
	StatusReopened            TicketStatus = "reopened"
)

// Change statuses. In-progress and closed are shared with incidents.
const (
	StatusDraft       TicketStatus = "draft"
	StatusSubmitted   TicketStatus = "submitted"
	StatusInReview    TicketStatus = "in_review"
	StatusScheduled   TicketStatus = "scheduled"
	StatusImplemented TicketStatus = "implemented"
	StatusFailed      TicketStatus = "failed"
	StatusRolledBack  TicketStatus = "rolled_back"
	StatusRejected    TicketStatus = "rejected"
)

func (ts TicketStatus) String() string {
	return string(ts)
}

// StatusGraph is the lifecycle configuration of one ticket type.
type StatusGraph struct {
	Type TicketType
	// Statuses in display order. Every status has an entry in Edges.
	Statuses []TicketStatus
	Initial  TicketStatus
	// InProgress is entered automatically when a ticket in Initial is assigned.
	// Empty when the type has no such edge.
	InProgress TicketStatus
	Edges      map[TicketStatus][]TicketStatus
	// Resolved statuses stamp resolved-at on first entry.
	Resolved []TicketStatus
	// Closed statuses stamp closed-at on first entry.
	Closed []TicketStatus
	// Terminal statuses block reporter edits. Reopen edges may still leave them.
	Terminal []TicketStatus
	// ReporterTransitions are the self-service targets a reporter may move to.
	ReporterTransitions []TicketStatus
}

var incidentGraph = StatusGraph{
	Type:       TicketTypeIncident,
	Statuses:   []TicketStatus{StatusOpen, StatusInProgress, StatusOnHold, StatusResolved, StatusClosed, StatusCancelled},
	Initial:    StatusOpen,
	InProgress: StatusInProgress,
	Edges: map[TicketStatus][]TicketStatus{
		StatusOpen:       {StatusInProgress, StatusOnHold, StatusResolved, StatusCancelled},
		StatusInProgress: {StatusOnHold, StatusResolved, StatusCancelled},
		StatusOnHold:     {StatusInProgress, StatusResolved, StatusCancelled},
		StatusResolved:   {StatusClosed, StatusInProgress},
		StatusClosed:     {},
		StatusCancelled:  {},
	},
	Resolved:            []TicketStatus{StatusResolved},
	Closed:              []TicketStatus{StatusClosed},
	Terminal:            []TicketStatus{StatusClosed, StatusCancelled},
	ReporterTransitions: []TicketStatus{StatusCancelled},
}

var problemGraph = StatusGraph{
	Type: TicketTypeProblem,
	Statuses: []TicketStatus{
		StatusIdentified, StatusAnalyzing, StatusRootCauseIdentified, StatusWorkaroundAvailable,
		StatusResolved, StatusClosed, StatusReopened,
	},
	Initial:    StatusIdentified,
	InProgress: StatusAnalyzing,
	Edges: map[TicketStatus][]TicketStatus{
		StatusIdentified:          {StatusAnalyzing},
		StatusAnalyzing:           {StatusRootCauseIdentified, StatusWorkaroundAvailable, StatusResolved},
		StatusRootCauseIdentified: {StatusWorkaroundAvailable, StatusResolved, StatusAnalyzing},
		StatusWorkaroundAvailable: {StatusResolved, StatusAnalyzing},
		StatusResolved:            {StatusClosed, StatusReopened},
		StatusClosed:              {StatusReopened},
		StatusReopened:            {StatusAnalyzing},
	},
	Resolved: []TicketStatus{StatusResolved},
	Closed:   []TicketStatus{StatusClosed},
	Terminal: []TicketStatus{StatusClosed},
}

var changeGraph = StatusGraph{
	Type: TicketTypeChange,
	Statuses: []TicketStatus{
		StatusDraft, StatusSubmitted, StatusInReview, StatusScheduled, StatusInProgress,
		StatusImplemented, StatusFailed, StatusRolledBack, StatusRejected, StatusClosed,
	},
	Initial: StatusDraft,
	Edges: map[TicketStatus][]TicketStatus{
		StatusDraft:       {StatusSubmitted},
		StatusSubmitted:   {StatusInReview, StatusRejected},
		StatusInReview:    {StatusScheduled, StatusRejected},
		StatusScheduled:   {StatusInProgress, StatusRejected},
		StatusInProgress:  {StatusImplemented, StatusFailed, StatusRolledBack},
		StatusImplemented: {StatusClosed},
		StatusFailed:      {StatusInProgress, StatusRolledBack},
		StatusRolledBack:  {StatusDraft, StatusRejected},
		StatusRejected:    {StatusDraft},
		StatusClosed:      {},
	},
	Resolved:            []TicketStatus{StatusImplemented},
	Closed:              []TicketStatus{StatusClosed},
	Terminal:            []TicketStatus{StatusClosed},
	ReporterTransitions: []TicketStatus{StatusSubmitted, StatusRejected},
}

// GraphFor returns the status graph of a ticket type.
func GraphFor(t TicketType) (StatusGraph, error) {
	switch t {
	case TicketTypeIncident:
		return incidentGraph, nil
	case TicketTypeProblem:
		return problemGraph, nil
	case TicketTypeChange:
		return changeGraph, nil
	}
	return StatusGraph{}, fmt.Errorf("invalid ticket type: %s", t)
}

// MustGraphFor is GraphFor for statically known types.
func MustGraphFor(t TicketType) StatusGraph {
	g, err := GraphFor(t)
	if err != nil {
		panic(err)
	}
	return g
}

// IsLegalTransition reports whether one step from -> to exists for the type.
func IsLegalTransition(t TicketType, from, to TicketStatus) bool {
	g, err := GraphFor(t)
	if err != nil {
		return false
	}
	return g.CanTransition(from, to)
}

func (g StatusGraph) IsValid(s TicketStatus) bool {
	_, ok := g.Edges[s]
	return ok
}

// Next returns the statuses reachable in one step. Unknown statuses have none.
func (g StatusGraph) Next(from TicketStatus) []TicketStatus {
	next := g.Edges[from]
	out := make([]TicketStatus, len(next))
	copy(out, next)
	return out
}

func (g StatusGraph) CanTransition(from, to TicketStatus) bool {
	for _, allowed := range g.Edges[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (g StatusGraph) IsResolved(s TicketStatus) bool {
	return contains(g.Resolved, s)
}

func (g StatusGraph) IsClosed(s TicketStatus) bool {
	return contains(g.Closed, s)
}

func (g StatusGraph) IsTerminal(s TicketStatus) bool {
	return contains(g.Terminal, s)
}

func (g StatusGraph) IsReporterTransition(to TicketStatus) bool {
	return contains(g.ReporterTransitions, to)
}

// ParseStatus validates s against the graph.
func (g StatusGraph) ParseStatus(s string) (TicketStatus, error) {
	ts := TicketStatus(s)
	if !g.IsValid(ts) {
		return "", fmt.Errorf("invalid %s status: %s", g.Type, s)
	}
	return ts, nil
}

func contains(list []TicketStatus, s TicketStatus) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
