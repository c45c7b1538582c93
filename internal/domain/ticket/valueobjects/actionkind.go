package valueobjects

// ActionKind classifies an audit trail entry.
type ActionKind string

const (
	ActionStatusChange       ActionKind = "status_change"
	ActionAssignment         ActionKind = "assignment"
	ActionCommentAdded       ActionKind = "comment_added"
	ActionRootCauseUpdate    ActionKind = "root_cause_update"
	ActionSolutionUpdate     ActionKind = "solution_update"
	ActionRelatedLinkAdded   ActionKind = "related_link_added"
	ActionRelatedLinkRemoved ActionKind = "related_link_removed"
)

func (k ActionKind) String() string {
	return string(k)
}

func (k ActionKind) IsValid() bool {
	switch k {
	case ActionStatusChange, ActionAssignment, ActionCommentAdded, ActionRootCauseUpdate,
		ActionSolutionUpdate, ActionRelatedLinkAdded, ActionRelatedLinkRemoved:
		return true
	}
	return false
}
