package ticket

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
	"github.com/servora/servora/internal/shared/errors"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestTicket(t *testing.T, typ vo.TicketType) *Ticket {
	t.Helper()
	tk, err := NewTicket(Draft{
		Type:               typ,
		Title:              "Mail server down",
		Description:        "Users cannot send mail",
		ReporterID:         "reporter-1",
		ReporterDepartment: "finance",
		Tags:               []string{"Mail", " mail ", "outage"},
	}, t0)
	require.NoError(t, err)
	tk.FlushActions()
	return tk
}

func TestNewTicket_Defaults(t *testing.T) {
	tests := []struct {
		typ     vo.TicketType
		initial vo.TicketStatus
		prefix  string
	}{
		{vo.TicketTypeIncident, vo.StatusOpen, "INC-"},
		{vo.TicketTypeProblem, vo.StatusIdentified, "PRB-"},
		{vo.TicketTypeChange, vo.StatusDraft, "CHG-"},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			tk := newTestTicket(t, tt.typ)

			assert.NotEmpty(t, tk.ID())
			assert.True(t, strings.HasPrefix(tk.Number(), tt.prefix))
			assert.Equal(t, tt.initial, tk.Status())
			assert.Equal(t, vo.PriorityMedium, tk.Priority())
			assert.Equal(t, vo.ImpactMedium, tk.Impact())
			assert.Equal(t, []string{"mail", "outage"}, tk.Tags())
			assert.Equal(t, 1, tk.Version())
			assert.False(t, tk.IsDeleted())
			assert.Nil(t, tk.ResolvedAt())
			assert.Empty(t, tk.AssigneeID())
		})
	}

	change := newTestTicket(t, vo.TicketTypeChange)
	assert.Equal(t, vo.ChangeTypeNormal, change.ChangeType())
	assert.Equal(t, vo.RiskLow, change.RiskLevel())
}

func TestNewTicket_Validation(t *testing.T) {
	start := t0.Add(48 * time.Hour)
	end := start.Add(-time.Hour)

	tests := []struct {
		name       string
		draft      Draft
		wantFields []string
	}{
		{
			name:       "missing title and description",
			draft:      Draft{Type: vo.TicketTypeIncident, ReporterID: "r"},
			wantFields: []string{"title", "description"},
		},
		{
			name:       "missing reporter",
			draft:      Draft{Type: vo.TicketTypeIncident, Title: "t", Description: "d"},
			wantFields: []string{"reporter_id"},
		},
		{
			name:       "enterprise impact on incident",
			draft:      Draft{Type: vo.TicketTypeIncident, Title: "t", Description: "d", ReporterID: "r", Impact: vo.ImpactEnterprise},
			wantFields: []string{"impact"},
		},
		{
			name: "change schedule inverted",
			draft: Draft{
				Type: vo.TicketTypeChange, Title: "t", Description: "d", ReporterID: "r",
				ScheduledStart: &start, ScheduledEnd: &end,
			},
			wantFields: []string{"scheduled_end"},
		},
		{
			name:       "root cause on incident",
			draft:      Draft{Type: vo.TicketTypeIncident, Title: "t", Description: "d", ReporterID: "r", RootCause: "disk"},
			wantFields: []string{"root_cause"},
		},
		{
			name:       "title too long",
			draft:      Draft{Type: vo.TicketTypeProblem, Title: strings.Repeat("x", 201), Description: "d", ReporterID: "r"},
			wantFields: []string{"title"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTicket(tt.draft, t0)
			require.Error(t, err)
			appErr := errors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)

			var got []string
			for _, f := range appErr.Fields {
				got = append(got, f.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, got)
		})
	}

	_, err := NewTicket(Draft{
		Type: vo.TicketTypeChange, Title: "t", Description: "d", ReporterID: "r", Impact: vo.ImpactEnterprise,
	}, t0)
	assert.NoError(t, err)
}

func TestTicket_ChangeStatus(t *testing.T) {
	t.Run("legal edge records one action and bumps version once", func(t *testing.T) {
		tk := newTestTicket(t, vo.TicketTypeIncident)

		require.NoError(t, tk.ChangeStatus(vo.StatusInProgress, "agent-1", "", t0.Add(time.Minute)))

		assert.Equal(t, vo.StatusInProgress, tk.Status())
		assert.Equal(t, 2, tk.Version())
		assert.Equal(t, 1, tk.PreviousVersion())
		assert.True(t, tk.IsDirty())

		actions := tk.FlushActions()
		require.Len(t, actions, 1)
		assert.Equal(t, vo.ActionStatusChange, actions[0].Kind())
		assert.Equal(t, "open", *actions[0].From())
		assert.Equal(t, "in_progress", *actions[0].To())
		assert.Equal(t, "agent-1", actions[0].ActorID())
		assert.False(t, tk.IsDirty())
	})

	t.Run("illegal edge carries from and to", func(t *testing.T) {
		tk := newTestTicket(t, vo.TicketTypeIncident)

		err := tk.ChangeStatus(vo.StatusClosed, "agent-1", "", t0)
		require.Error(t, err)
		appErr := errors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, errors.ErrorTypeInvalidTransition, appErr.Type)
		assert.Equal(t, "open", appErr.From)
		assert.Equal(t, "closed", appErr.To)
		assert.Equal(t, 1, tk.Version())
		assert.Empty(t, tk.PendingActions())
	})

	t.Run("resolved timestamp is set once and notes attached", func(t *testing.T) {
		tk := newTestTicket(t, vo.TicketTypeIncident)
		first := t0.Add(time.Hour)

		require.NoError(t, tk.ChangeStatus(vo.StatusResolved, "agent-1", "restarted postfix", first))
		require.NotNil(t, tk.ResolvedAt())
		assert.Equal(t, first, *tk.ResolvedAt())
		assert.Equal(t, "restarted postfix", tk.ResolutionNotes())

		err := tk.ChangeStatus(vo.StatusResolved, "agent-1", "again", first.Add(time.Hour))
		assert.True(t, errors.IsInvalidTransitionError(err))

		require.NoError(t, tk.ChangeStatus(vo.StatusInProgress, "agent-1", "", first.Add(2*time.Hour)))
		require.NoError(t, tk.ChangeStatus(vo.StatusResolved, "agent-1", "", first.Add(3*time.Hour)))
		assert.Equal(t, first, *tk.ResolvedAt())
		assert.Equal(t, "restarted postfix", tk.ResolutionNotes())

		require.NoError(t, tk.ChangeStatus(vo.StatusClosed, "agent-1", "", first.Add(4*time.Hour)))
		require.NotNil(t, tk.ClosedAt())
		assert.Equal(t, first.Add(4*time.Hour), *tk.ClosedAt())
		assert.True(t, tk.IsTerminal())
		assert.Len(t, tk.FlushActions(), 4)
	})

	t.Run("problem reopen keeps timestamps", func(t *testing.T) {
		tk := newTestTicket(t, vo.TicketTypeProblem)
		steps := []vo.TicketStatus{vo.StatusAnalyzing, vo.StatusResolved, vo.StatusClosed, vo.StatusReopened, vo.StatusAnalyzing}
		for i, s := range steps {
			require.NoError(t, tk.ChangeStatus(s, "agent-1", "", t0.Add(time.Duration(i+1)*time.Hour)))
		}
		assert.NotNil(t, tk.ResolvedAt())
		assert.NotNil(t, tk.ClosedAt())
		assert.Equal(t, vo.StatusAnalyzing, tk.Status())
	})

	t.Run("timestamps never precede creation", func(t *testing.T) {
		tk := newTestTicket(t, vo.TicketTypeIncident)
		require.NoError(t, tk.ChangeStatus(vo.StatusResolved, "agent-1", "", t0.Add(-time.Hour)))
		assert.Equal(t, t0, *tk.ResolvedAt())
		assert.Equal(t, t0, tk.UpdatedAt())
	})
}

func TestTicket_Assign(t *testing.T) {
	tests := []struct {
		typ            vo.TicketType
		wantStatus     vo.TicketStatus
		wantTransition bool
	}{
		{vo.TicketTypeIncident, vo.StatusInProgress, true},
		{vo.TicketTypeProblem, vo.StatusAnalyzing, true},
		{vo.TicketTypeChange, vo.StatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			tk := newTestTicket(t, tt.typ)

			moved, err := tk.Assign("agent-1", "admin-1", t0.Add(time.Minute))
			require.NoError(t, err)
			assert.Equal(t, tt.wantTransition, moved)
			assert.Equal(t, tt.wantStatus, tk.Status())
			assert.Equal(t, "agent-1", tk.AssigneeID())
			assert.Equal(t, 2, tk.Version())

			actions := tk.FlushActions()
			require.NotEmpty(t, actions)
			assert.Equal(t, vo.ActionAssignment, actions[0].Kind())
			assert.Nil(t, actions[0].From())
			assert.Equal(t, "agent-1", *actions[0].To())
			if tt.wantTransition {
				require.Len(t, actions, 2)
				assert.Equal(t, vo.ActionStatusChange, actions[1].Kind())
			} else {
				assert.Len(t, actions, 1)
			}
		})
	}

	t.Run("reassign records previous assignee", func(t *testing.T) {
		tk := newTestTicket(t, vo.TicketTypeIncident)
		_, err := tk.Assign("agent-1", "admin-1", t0)
		require.NoError(t, err)
		tk.FlushActions()

		moved, err := tk.Assign("agent-2", "agent-1", t0.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, moved)

		actions := tk.FlushActions()
		require.Len(t, actions, 1)
		assert.Equal(t, "agent-1", *actions[0].From())
		assert.Equal(t, "agent-2", *actions[0].To())
	})

	t.Run("same assignee is rejected", func(t *testing.T) {
		tk := newTestTicket(t, vo.TicketTypeIncident)
		_, err := tk.Assign("agent-1", "admin-1", t0)
		require.NoError(t, err)

		_, err = tk.Assign("agent-1", "admin-1", t0)
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestTicket_ApplyPatch(t *testing.T) {
	t.Run("problem root cause and solution are audited", func(t *testing.T) {
		tk := newTestTicket(t, vo.TicketTypeProblem)
		rootCause := "expired certificate"
		solution := "automate renewal"
		title := "  Certificate expiry  "

		require.NoError(t, tk.ApplyPatch(FieldPatch{Title: &title, RootCause: &rootCause, Solution: &solution}, "agent-1", t0.Add(time.Hour)))

		assert.Equal(t, "Certificate expiry", tk.Title())
		assert.Equal(t, rootCause, tk.RootCause())
		actions := tk.FlushActions()
		require.Len(t, actions, 2)
		assert.Equal(t, vo.ActionRootCauseUpdate, actions[0].Kind())
		assert.Equal(t, vo.ActionSolutionUpdate, actions[1].Kind())
		assert.Equal(t, 2, tk.Version())
	})

	t.Run("field of another type is rejected", func(t *testing.T) {
		tk := newTestTicket(t, vo.TicketTypeIncident)
		rootCause := "x"
		err := tk.ApplyPatch(FieldPatch{RootCause: &rootCause}, "agent-1", t0)
		assert.True(t, errors.IsValidationError(err))
		assert.False(t, tk.IsDirty())
	})

	t.Run("empty patch is rejected", func(t *testing.T) {
		tk := newTestTicket(t, vo.TicketTypeIncident)
		assert.True(t, errors.IsValidationError(tk.ApplyPatch(FieldPatch{}, "agent-1", t0)))
	})

	t.Run("schedule checked against stored start", func(t *testing.T) {
		start := t0.Add(24 * time.Hour)
		tk, err := NewTicket(Draft{
			Type: vo.TicketTypeChange, Title: "t", Description: "d", ReporterID: "r", ScheduledStart: &start,
		}, t0)
		require.NoError(t, err)

		early := start.Add(-time.Minute)
		assert.True(t, errors.IsValidationError(tk.ApplyPatch(FieldPatch{ScheduledEnd: &early}, "r", t0)))

		late := start.Add(time.Hour)
		require.NoError(t, tk.ApplyPatch(FieldPatch{ScheduledEnd: &late}, "r", t0))
		assert.Equal(t, late, *tk.ScheduledEnd())
	})
}

func TestFieldPatch_Fields(t *testing.T) {
	notes := "n"
	p := vo.PriorityHigh
	patch := FieldPatch{ResolutionNotes: &notes, Priority: &p}

	assert.Equal(t, []Field{FieldPriority, FieldResolutionNotes}, patch.Fields())
	assert.True(t, FieldResolutionNotes.IsResolution())
	assert.False(t, FieldPriority.IsResolution())
	assert.True(t, FieldBackoutPlan.AppliesTo(vo.TicketTypeChange))
	assert.False(t, FieldBackoutPlan.AppliesTo(vo.TicketTypeIncident))
}

func TestTicket_RelatedIncidents(t *testing.T) {
	problem := newTestTicket(t, vo.TicketTypeProblem)

	require.NoError(t, problem.LinkIncident("inc-1", "agent-1", t0))
	assert.True(t, errors.IsConflictError(problem.LinkIncident("inc-1", "agent-1", t0)))
	require.NoError(t, problem.LinkIncident("inc-2", "agent-1", t0))
	assert.Equal(t, []string{"inc-1", "inc-2"}, problem.RelatedIncidentIDs())

	require.NoError(t, problem.UnlinkIncident("inc-1", "agent-1", t0))
	assert.Equal(t, []string{"inc-2"}, problem.RelatedIncidentIDs())
	assert.True(t, errors.IsNotFoundError(problem.UnlinkIncident("inc-9", "agent-1", t0)))

	actions := problem.FlushActions()
	require.Len(t, actions, 3)
	assert.Equal(t, vo.ActionRelatedLinkRemoved, actions[2].Kind())
	assert.Equal(t, "inc-1", actions[2].Payload()[PayloadIncident])

	incident := newTestTicket(t, vo.TicketTypeIncident)
	assert.True(t, errors.IsValidationError(incident.LinkIncident("inc-1", "agent-1", t0)))
}

func TestTicket_RecordComment(t *testing.T) {
	tk := newTestTicket(t, vo.TicketTypeIncident)
	c, err := NewComment(tk.ID(), "agent-1", "looking into it", true, t0.Add(time.Minute))
	require.NoError(t, err)

	require.NoError(t, tk.RecordComment(c, "agent-1"))

	assert.Len(t, tk.Comments(), 1)
	assert.Equal(t, 1, tk.Version())
	assert.False(t, tk.IsDirty())
	actions := tk.FlushActions()
	require.Len(t, actions, 1)
	assert.Equal(t, vo.ActionCommentAdded, actions[0].Kind())
	assert.Equal(t, true, actions[0].Payload()[PayloadInternal])

	other, err := NewComment("other-ticket", "agent-1", "x", false, t0)
	require.NoError(t, err)
	assert.Error(t, tk.RecordComment(other, "agent-1"))
}

func TestTicket_MarkDeleted(t *testing.T) {
	tk := newTestTicket(t, vo.TicketTypeIncident)
	at := t0.Add(time.Hour)

	require.NoError(t, tk.MarkDeleted(at))

	assert.True(t, tk.IsDeleted())
	deletedAt, ok := tk.Deletion().At()
	assert.True(t, ok)
	assert.Equal(t, at, deletedAt)
	assert.Equal(t, 2, tk.Version())

	assert.True(t, errors.IsNotFoundError(tk.MarkDeleted(at)))
	assert.True(t, errors.IsNotFoundError(tk.ChangeStatus(vo.StatusInProgress, "a", "", at)))
}

func TestReconstructTicket(t *testing.T) {
	deletedAt := t0.Add(time.Hour)
	tk, err := ReconstructTicket(Snapshot{
		ID: "t-1", Number: "INC-ABCDEFGH", Type: vo.TicketTypeIncident, Title: "t", Description: "d",
		Status: vo.StatusOnHold, Priority: vo.PriorityHigh, Impact: vo.ImpactLow, ReporterID: "r",
		CreatedAt: t0, UpdatedAt: t0, DeletedAt: &deletedAt, Version: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, tk.Version())
	assert.Equal(t, 7, tk.PreviousVersion())
	assert.True(t, tk.IsDeleted())
	assert.Equal(t, []string{}, tk.Tags())

	_, err = ReconstructTicket(Snapshot{ID: "t-2", Type: vo.TicketTypeIncident, Status: vo.StatusDraft, ReporterID: "r"})
	assert.Error(t, err)
}

func TestDeletion(t *testing.T) {
	assert.False(t, Active().IsDeleted())
	assert.Nil(t, Active().Timestamp())

	local := time.Date(2025, 1, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	d := DeletionFrom(&local)
	assert.True(t, d.IsDeleted())
	assert.Equal(t, time.UTC, d.Timestamp().Location())
}

func TestNewComment(t *testing.T) {
	_, err := NewComment("t-1", "u-1", "   ", false, t0)
	assert.True(t, errors.IsValidationError(err))

	_, err = NewComment("t-1", "u-1", strings.Repeat("a", maxCommentLength+1), false, t0)
	assert.True(t, errors.IsValidationError(err))

	c, err := NewComment("t-1", "u-1", " hello ", false, t0)
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Body())
	assert.NotEmpty(t, c.ID())
}
